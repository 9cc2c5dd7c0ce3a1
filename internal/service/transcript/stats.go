package transcript

import (
	"math"
	"sort"

	"call-transcript-service/internal/models"
)

// LongInterruptionSeconds is the duration above which an interruption counts
// towards CallStats.NumLongInterruptions.
const LongInterruptionSeconds = 2.0

// Percentiles returns p50, p90 and p95 using the floor-index rule
// sorted[floor(n*p)]. An empty input yields zeros.
func Percentiles(values []float64) (p50, p90, p95 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	at := func(p float64) float64 {
		idx := int(math.Floor(float64(len(sorted)) * p))
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	return at(0.5), at(0.9), at(0.95)
}

// Stats summarizes a transcript's latency and interruption distributions.
func Stats(r models.TranscriptResult) models.CallStats {
	latencies := make([]float64, len(r.LatencyBlocks))
	for i, l := range r.LatencyBlocks {
		latencies[i] = l.Duration
	}

	var long int
	interruptions := make([]float64, len(r.Interruptions))
	for i, in := range r.Interruptions {
		interruptions[i] = in.Duration
		if in.Duration > LongInterruptionSeconds {
			long++
		}
	}

	var s models.CallStats
	s.LatencyP50, s.LatencyP90, s.LatencyP95 = Percentiles(latencies)
	s.InterruptionP50, s.InterruptionP90, s.InterruptionP95 = Percentiles(interruptions)
	s.NumLongInterruptions = long
	return s
}
