package transcript

import (
	"math"
	"strings"

	"call-transcript-service/internal/models"
)

// EnergyChecker confirms that both channels carry speech at a point in time.
// It filters out overlaps caused by transcription noise while one party is
// actually silent.
type EnergyChecker interface {
	BothActive(start float64) bool
}

// DetectInterruptions reports, for every agent turn, the first user turn that
// overlaps it. A nil checker accepts every temporal overlap.
//
// Only one interruption is reported per agent turn even if several user turns
// overlap it.
func DetectInterruptions(turns []models.Turn, agentWords []models.WordRecord, checker EnergyChecker) []models.InterruptionRecord {
	out := make([]models.InterruptionRecord, 0)

	for _, a := range turns {
		if a.Role != models.SpeakerAgent {
			continue
		}
		for _, u := range turns {
			if u.Role != models.SpeakerUser {
				continue
			}
			if !(a.Start < u.End && a.End > u.Start) {
				continue
			}

			overlapStart := math.Max(a.Start, u.Start)
			if checker != nil && !checker.BothActive(overlapStart) {
				continue
			}

			out = append(out, models.InterruptionRecord{
				SecondsFromStart: overlapStart,
				Duration:         a.End - overlapStart,
				Text:             wordsBetween(agentWords, overlapStart, a.End),
			})
			break
		}
	}
	return out
}

// wordsBetween joins the punctuated text of words starting in [from, to).
func wordsBetween(words []models.WordRecord, from, to float64) string {
	var parts []string
	for _, w := range words {
		if w.Start >= from && w.Start < to {
			parts = append(parts, w.PunctuatedText)
		}
	}
	return strings.Join(parts, " ")
}
