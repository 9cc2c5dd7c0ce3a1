package transcript

import (
	"fmt"

	"github.com/rs/zerolog"

	"call-transcript-service/internal/models"
	"call-transcript-service/internal/observability/logging"
	"call-transcript-service/internal/observability/metrics"
)

// Builder runs the fusion pipeline: segment both speakers, merge, build
// turns, then detect interruptions and latency.
//
// Build never fails. Any internal error or panic yields the empty result so
// a bug in the heuristics costs one transcript, not the worker.
type Builder struct {
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewBuilder creates a Builder with the given thresholds.
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		cfg:     cfg,
		logger:  logging.WithComponent("transcript"),
		metrics: metrics.DefaultMetrics,
	}
}

// Config returns the thresholds the builder was created with.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build fuses the two word streams into a transcript. checker may be nil,
// in which case temporal overlap alone is enough to report an interruption.
func (b *Builder) Build(userWords, agentWords []models.WordRecord, checker EnergyChecker) (result models.TranscriptResult) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("method", "Build").
				Interface("panic", r).
				Msg("Transcript assembly panicked, returning empty transcript")
			b.metrics.RecordFailSoft("panic")
			result = models.EmptyResult()
		}
	}()

	res, err := b.build(userWords, agentWords, checker)
	if err != nil {
		b.logger.Warn().
			Str("method", "Build").
			Err(err).
			Msg("Transcript assembly failed, returning empty transcript")
		b.metrics.RecordFailSoft("error")
		return models.EmptyResult()
	}
	return res
}

func (b *Builder) build(userWords, agentWords []models.WordRecord, checker EnergyChecker) (models.TranscriptResult, error) {
	userChunks, err := Segment(models.SpeakerUser, userWords, b.cfg)
	if err != nil {
		return models.TranscriptResult{}, fmt.Errorf("segment user: %w", err)
	}
	agentChunks, err := Segment(models.SpeakerAgent, agentWords, b.cfg)
	if err != nil {
		return models.TranscriptResult{}, fmt.Errorf("segment agent: %w", err)
	}

	turns := BuildTurns(Merge(userChunks, agentChunks), b.cfg)
	interruptions := DetectInterruptions(turns, agentWords, checker)
	latency := DetectLatency(turns)

	for _, t := range turns {
		b.metrics.RecordTurn(string(t.Role))
	}
	b.metrics.RecordInterruptions(len(interruptions))
	for _, l := range latency {
		b.metrics.RecordLatencyBlock(l.Duration)
	}

	b.logger.Debug().
		Int("userChunks", len(userChunks)).
		Int("agentChunks", len(agentChunks)).
		Int("turns", len(turns)).
		Int("interruptions", len(interruptions)).
		Int("latencyBlocks", len(latency)).
		Msg("Transcript assembled")

	return models.TranscriptResult{
		Segments:      turns,
		Interruptions: interruptions,
		LatencyBlocks: latency,
	}, nil
}
