// Package schema checks assembled transcripts before they leave the service.
package schema

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"call-transcript-service/internal/models"
	"call-transcript-service/internal/observability/logging"
)

// ErrInvalidTranscript wraps every validation failure.
var ErrInvalidTranscript = errors.New("invalid transcript")

type Validator struct {
	logger zerolog.Logger
}

func New() *Validator {
	return &Validator{logger: logging.WithComponent("schema")}
}

// Validate checks the structural rules of a transcript: non-nil lists,
// known roles, segments ordered by start with end >= start, and
// non-negative offsets and durations for interruptions and latency blocks.
// All violations are reported together.
func (v *Validator) Validate(r models.TranscriptResult) error {
	var errs []error

	if r.Segments == nil || r.Interruptions == nil || r.LatencyBlocks == nil {
		errs = append(errs, errors.New("lists must be non-nil"))
	}

	for i, s := range r.Segments {
		if s.Role != models.SpeakerUser && s.Role != models.SpeakerAgent {
			errs = append(errs, fmt.Errorf("segment %d: unknown role %q", i, s.Role))
		}
		if s.End < s.Start {
			errs = append(errs, fmt.Errorf("segment %d: end %.2f before start %.2f", i, s.End, s.Start))
		}
		if i > 0 && s.Start < r.Segments[i-1].Start {
			errs = append(errs, fmt.Errorf("segment %d: starts before segment %d", i, i-1))
		}
	}
	for i, in := range r.Interruptions {
		if in.SecondsFromStart < 0 || in.Duration < 0 {
			errs = append(errs, fmt.Errorf("interruption %d: negative offset or duration", i))
		}
	}
	for i, l := range r.LatencyBlocks {
		if l.SecondsFromStart < 0 || l.Duration < 0 {
			errs = append(errs, fmt.Errorf("latency block %d: negative offset or duration", i))
		}
	}

	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", ErrInvalidTranscript, errors.Join(errs...))
		v.logger.Warn().Str("method", "Validate").Err(err).Msg("Transcript failed validation")
		return err
	}

	v.logger.Debug().
		Str("method", "Validate").
		Int("segments", len(r.Segments)).
		Msg("Transcript validated")
	return nil
}
