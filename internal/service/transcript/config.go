// Package transcript fuses two per-speaker word streams into a single
// conversation transcript with turns, interruptions and latency blocks.
package transcript

// Default heuristic thresholds, in seconds.
const (
	DefaultSilenceGapSeconds = 1.5
	DefaultTurnGapSeconds    = DefaultSilenceGapSeconds
)

// Config holds the tunable boundary heuristics.
//
// SilenceGapSeconds is used by the utterance segmenter and TurnGapSeconds by
// the turn builder. They default to the same value; the two are kept apart so
// recordings that need a looser same-speaker restart rule can be tuned
// without changing chunking.
type Config struct {
	SilenceGapSeconds float64
	TurnGapSeconds    float64
}

// DefaultConfig returns the default heuristic thresholds.
func DefaultConfig() Config {
	return Config{
		SilenceGapSeconds: DefaultSilenceGapSeconds,
		TurnGapSeconds:    DefaultTurnGapSeconds,
	}
}
