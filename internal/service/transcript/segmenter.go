package transcript

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"call-transcript-service/internal/models"
)

// ErrMalformedWord is returned when a word record violates its invariants.
var ErrMalformedWord = errors.New("malformed word record")

// Segment splits one speaker's word stream into utterance chunks.
//
// A chunk ends on sentence-final punctuation, before a word that follows a
// silence longer than cfg.SilenceGapSeconds and starts with an uppercase
// letter, or at the end of the stream.
func Segment(speaker models.Speaker, words []models.WordRecord, cfg Config) ([]models.Chunk, error) {
	chunks := make([]models.Chunk, 0)

	var (
		buf        []string
		start, end float64
	)
	flush := func() {
		chunks = append(chunks, models.Chunk{
			Speaker: speaker,
			Start:   start,
			End:     end,
			Text:    strings.Join(buf, " "),
		})
		buf = buf[:0]
	}

	for i, w := range words {
		if err := validateWord(w); err != nil {
			return nil, fmt.Errorf("%s word %d: %w", speaker, i, err)
		}

		if len(buf) == 0 {
			start = w.Start
		}
		buf = append(buf, w.PunctuatedText)
		end = w.End

		if endsSentence(w.PunctuatedText) {
			flush()
			continue
		}

		if i+1 < len(words) {
			next := words[i+1]
			if next.Start-w.End > cfg.SilenceGapSeconds && startsUpper(next.PunctuatedText) {
				flush()
			}
		}
	}

	if len(buf) > 0 {
		flush()
	}
	return chunks, nil
}

func validateWord(w models.WordRecord) error {
	switch {
	case w.PunctuatedText == "":
		return fmt.Errorf("%w: empty punctuated text", ErrMalformedWord)
	case math.IsNaN(w.Start) || math.IsNaN(w.End):
		return fmt.Errorf("%w: NaN timestamp for %q", ErrMalformedWord, w.PunctuatedText)
	case w.End < w.Start:
		return fmt.Errorf("%w: %q ends at %.3f before it starts at %.3f",
			ErrMalformedWord, w.PunctuatedText, w.End, w.Start)
	}
	return nil
}

func endsSentence(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == '.' || r == '?' || r == '!'
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
