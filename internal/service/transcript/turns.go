package transcript

import (
	"strings"

	"call-transcript-service/internal/models"
)

// BuildTurns coalesces consecutive same-speaker chunks into turns.
//
// A new turn starts on a speaker change, or when the same speaker resumes
// after more than cfg.TurnGapSeconds of silence with a capitalized chunk.
func BuildTurns(chunks []models.Chunk, cfg Config) []models.Turn {
	turns := make([]models.Turn, 0)
	if len(chunks) == 0 {
		return turns
	}

	var (
		current models.Turn
		parts   []string
		prevEnd float64
	)
	open := func(c models.Chunk) {
		current = models.Turn{Role: c.Speaker, Start: c.Start, End: c.End}
		parts = append(parts[:0], strings.TrimSpace(c.Text))
	}
	flush := func() {
		current.Text = strings.Join(parts, " ")
		turns = append(turns, current)
	}

	open(chunks[0])
	prevEnd = chunks[0].End

	for _, c := range chunks[1:] {
		restart := c.Start-prevEnd > cfg.TurnGapSeconds && startsUpper(c.Text)
		if c.Speaker != current.Role || restart {
			flush()
			open(c)
		} else {
			parts = append(parts, strings.TrimSpace(c.Text))
			current.End = c.End
		}
		prevEnd = c.End
	}

	flush()
	return turns
}
