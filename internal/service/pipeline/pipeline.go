// Package pipeline runs a stereo call recording through splitting,
// transcription, optional alignment and transcript assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"call-transcript-service/internal/models"
	"call-transcript-service/internal/observability/logging"
	"call-transcript-service/internal/observability/metrics"
	"call-transcript-service/internal/schema"
	"call-transcript-service/internal/service/audio"
	"call-transcript-service/internal/service/job"
	"call-transcript-service/internal/service/stt"
	"call-transcript-service/internal/service/transcript"
	"call-transcript-service/internal/storage"
)

// ErrInvalidRequest is returned for requests rejected before processing.
var ErrInvalidRequest = errors.New("invalid request")

// Processing modes, used as metric labels.
const (
	ModePlain   = "plain"
	ModeAligned = "aligned"
)

// Aligner refines provider word timestamps against a channel.
type Aligner interface {
	Refine(ctx context.Context, clip *audio.Clip, words []models.WordRecord) ([]models.WordRecord, error)
}

// Store persists processed calls.
type Store interface {
	Save(ctx context.Context, r storage.Record) error
}

// Publisher emits transcript lifecycle events.
type Publisher interface {
	PublishCompleted(ctx context.Context, event models.TranscriptCompleted) error
	PublishFailed(ctx context.Context, event models.TranscriptFailed) error
}

// Request describes one call to process.
type Request struct {
	CallID   string // generated when empty
	AudioURL string
	Language string // provider default when empty
	Align    *bool  // Config.AlignByDefault when nil
}

// Response is the outcome of a processed call.
type Response struct {
	CallID     string                  `json:"callId"`
	JobID      string                  `json:"jobId"`
	Aligned    bool                    `json:"aligned"`
	Transcript models.TranscriptResult `json:"transcript"`
	Stats      models.CallStats        `json:"stats"`
}

// Config holds pipeline settings.
type Config struct {
	LanguageCode    string
	AlignByDefault  bool
	EnergyThreshold float64
	EnergyWindow    float64
}

// Deps are the collaborators of a Pipeline. Aligner, Store and Publisher
// are optional.
type Deps struct {
	Splitter  audio.Splitter
	Provider  stt.Provider
	Aligner   Aligner
	Builder   *transcript.Builder
	Validator *schema.Validator
	Store     Store
	Publisher Publisher
}

// Pipeline processes calls. Safe for concurrent use.
type Pipeline struct {
	deps    Deps
	cfg     Config
	jobs    *job.Generator
	metrics *metrics.Metrics
}

// New creates a pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	if deps.Builder == nil {
		deps.Builder = transcript.NewBuilder(transcript.DefaultConfig())
	}
	if deps.Validator == nil {
		deps.Validator = schema.New()
	}
	return &Pipeline{
		deps:    deps,
		cfg:     cfg,
		jobs:    job.New(),
		metrics: metrics.DefaultMetrics,
	}
}

// ProviderName returns the name of the configured STT provider.
func (p *Pipeline) ProviderName() string {
	return p.deps.Provider.Name()
}

// run carries the per-job state through the stages.
type run struct {
	req       Request
	callID    string
	lifecycle *job.Lifecycle
	aligned   bool
	logger    zerolog.Logger

	user, agent           *audio.Clip
	userWords, agentWords []models.WordRecord
}

// Process runs a call through the pipeline. Errors from splitting,
// transcription or alignment fail the job; assembly never fails and falls
// back to the empty transcript.
func (p *Pipeline) Process(ctx context.Context, req Request) (resp *Response, err error) {
	if req.AudioURL == "" {
		return nil, fmt.Errorf("%w: stereoAudioUrl is required", ErrInvalidRequest)
	}

	r := &run{req: req, callID: req.CallID, aligned: p.cfg.AlignByDefault}
	if r.callID == "" {
		r.callID = uuid.NewString()
	}
	if req.Align != nil {
		r.aligned = *req.Align
	}
	if r.aligned && p.deps.Aligner == nil {
		return nil, fmt.Errorf("%w: alignment is not available", ErrInvalidRequest)
	}
	jobID := p.jobs.Next(r.callID)
	r.lifecycle = job.NewLifecycle(jobID)
	r.logger = logging.WithJob(r.callID, jobID).With().Str("component", "pipeline").Logger()

	mode := ModePlain
	if r.aligned {
		mode = ModeAligned
	}

	start := time.Now()
	p.metrics.RecordPipelineStart()
	defer func() {
		p.metrics.RecordPipelineEnd(mode, err, time.Since(start).Seconds())
	}()

	r.logger.Info().
		Str("method", "Process").
		Str("audioUrl", req.AudioURL).
		Str("mode", mode).
		Msg("Processing call")

	if err := p.split(ctx, r); err != nil {
		return nil, p.fail(ctx, r, err)
	}
	if err := p.transcribe(ctx, r); err != nil {
		return nil, p.fail(ctx, r, err)
	}
	if r.aligned {
		if err := p.align(ctx, r); err != nil {
			return nil, p.fail(ctx, r, err)
		}
	}

	resp = p.assemble(r)
	if err := p.advance(r, job.StateCompleted); err != nil {
		return nil, p.fail(ctx, r, err)
	}

	p.persist(ctx, r, resp)
	p.publishCompleted(ctx, r, resp)

	r.logger.Info().
		Str("method", "Process").
		Int("segments", len(resp.Transcript.Segments)).
		Int("interruptions", len(resp.Transcript.Interruptions)).
		Int("latencyBlocks", len(resp.Transcript.LatencyBlocks)).
		Dur("duration", time.Since(start)).
		Msg("Call processed")

	return resp, nil
}

func (p *Pipeline) advance(r *run, to job.State) error {
	if err := r.lifecycle.Advance(to); err != nil {
		return err
	}
	r.logger.Debug().
		Str("method", "advance").
		Str("state", to.String()).
		Msg("Job state changed")
	return nil
}

func (p *Pipeline) split(ctx context.Context, r *run) error {
	if err := p.advance(r, job.StateSplitting); err != nil {
		return err
	}
	start := time.Now()
	user, agent, err := p.deps.Splitter.Split(ctx, r.req.AudioURL)
	p.metrics.RecordStage("split", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("split recording: %w", err)
	}
	r.user, r.agent = user, agent
	return nil
}

// transcribe sends both channels to the provider concurrently. A nil
// channel yields an empty word list.
func (p *Pipeline) transcribe(ctx context.Context, r *run) error {
	if err := p.advance(r, job.StateTranscribing); err != nil {
		return err
	}
	start := time.Now()
	language := r.req.Language
	if language == "" {
		language = p.cfg.LanguageCode
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		words, err := p.transcribeChannel(gctx, r, models.SpeakerUser, r.user, language)
		r.userWords = words
		return err
	})
	g.Go(func() error {
		words, err := p.transcribeChannel(gctx, r, models.SpeakerAgent, r.agent, language)
		r.agentWords = words
		return err
	})
	err := g.Wait()
	p.metrics.RecordStage("transcribe", time.Since(start).Seconds())
	return err
}

func (p *Pipeline) transcribeChannel(ctx context.Context, r *run, speaker models.Speaker, clip *audio.Clip, language string) ([]models.WordRecord, error) {
	if clip == nil {
		return []models.WordRecord{}, nil
	}
	provider := p.deps.Provider.Name()
	logger := logging.WithChannel(r.callID, r.lifecycle.JobId(), string(speaker), provider)

	start := time.Now()
	words, err := p.deps.Provider.Transcribe(ctx, clip, language)
	p.metrics.RecordSTT(provider, string(speaker), len(words), err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("transcribe %s channel: %w", speaker, err)
	}

	logger.Debug().
		Str("method", "transcribeChannel").
		Int("words", len(words)).
		Msg("Channel transcribed")
	return words, nil
}

func (p *Pipeline) align(ctx context.Context, r *run) error {
	if err := p.advance(r, job.StateAligning); err != nil {
		return err
	}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		words, err := p.deps.Aligner.Refine(gctx, r.user, r.userWords)
		if err != nil {
			return fmt.Errorf("align user channel: %w", err)
		}
		r.userWords = words
		return nil
	})
	g.Go(func() error {
		words, err := p.deps.Aligner.Refine(gctx, r.agent, r.agentWords)
		if err != nil {
			return fmt.Errorf("align agent channel: %w", err)
		}
		r.agentWords = words
		return nil
	})
	err := g.Wait()
	p.metrics.RecordStage("align", time.Since(start).Seconds())
	return err
}

// assemble builds and validates the transcript. It cannot fail: an invalid
// transcript is replaced by the empty one.
func (p *Pipeline) assemble(r *run) *Response {
	start := time.Now()
	// Lifecycle order is guaranteed here; an error would be a programming bug.
	_ = p.advance(r, job.StateAssembling)

	var checker transcript.EnergyChecker
	if r.user != nil && r.agent != nil {
		checker = audio.NewEnergyChecker(r.user, r.agent, p.cfg.EnergyThreshold, p.cfg.EnergyWindow)
	}

	result := p.deps.Builder.Build(r.userWords, r.agentWords, checker)
	if err := p.deps.Validator.Validate(result); err != nil {
		p.metrics.RecordFailSoft("invalid")
		result = models.EmptyResult()
	}
	p.metrics.RecordStage("assemble", time.Since(start).Seconds())

	return &Response{
		CallID:     r.callID,
		JobID:      r.lifecycle.JobId(),
		Aligned:    r.aligned,
		Transcript: result,
		Stats:      transcript.Stats(result),
	}
}

// persist stores the processed call. Storage failures are logged and do
// not fail the request.
func (p *Pipeline) persist(ctx context.Context, r *run, resp *Response) {
	if p.deps.Store == nil {
		return
	}
	err := p.deps.Store.Save(ctx, storage.Record{
		CallID:     resp.CallID,
		JobID:      resp.JobID,
		AudioURL:   r.req.AudioURL,
		Aligned:    resp.Aligned,
		Transcript: resp.Transcript,
		Stats:      resp.Stats,
	})
	if err != nil {
		r.logger.Error().Str("method", "persist").Err(err).Msg("Failed to store transcript")
	}
}

func (p *Pipeline) publishCompleted(ctx context.Context, r *run, resp *Response) {
	if p.deps.Publisher == nil {
		return
	}
	err := p.deps.Publisher.PublishCompleted(ctx, models.TranscriptCompleted{
		EventType:  models.EventTranscriptCompleted,
		CallID:     resp.CallID,
		JobID:      resp.JobID,
		AudioURL:   r.req.AudioURL,
		Aligned:    resp.Aligned,
		Transcript: resp.Transcript,
		Stats:      resp.Stats,
		Timestamp:  time.Now().UnixMilli(),
	})
	if err != nil {
		r.logger.Error().Str("method", "publishCompleted").Err(err).Msg("Failed to publish completed event")
	}
}

// fail moves the job to FAILED, publishes the failure and returns err.
func (p *Pipeline) fail(ctx context.Context, r *run, err error) error {
	r.lifecycle.Fail()
	stage := r.lifecycle.FailedStage()

	logger := logging.WithStage(r.callID, stage)
	logger.Error().
		Str("method", "Process").
		Str("jobId", r.lifecycle.JobId()).
		Err(err).
		Msg("Call processing failed")

	if p.deps.Publisher != nil {
		// Publish even when the request context was cancelled.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if perr := p.deps.Publisher.PublishFailed(pubCtx, models.TranscriptFailed{
			EventType: models.EventTranscriptFailed,
			CallID:    r.callID,
			JobID:     r.lifecycle.JobId(),
			AudioURL:  r.req.AudioURL,
			Stage:     stage,
			Error:     err.Error(),
			Timestamp: time.Now().UnixMilli(),
		}); perr != nil {
			r.logger.Error().Str("method", "fail").Err(perr).Msg("Failed to publish failed event")
		}
	}
	return err
}

// IsClientError reports whether err was caused by the request or the
// recording rather than by the service or its providers.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		audio.ErrNotWAV,
		audio.ErrUnsupportedChannels,
		audio.ErrTooLarge,
		audio.ErrTooLong,
		stt.ErrAudioTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
