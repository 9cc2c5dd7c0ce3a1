// Package mock provides a mock STT provider for testing without cloud credentials.
// It places scripted utterances over the voiced regions of a clip so that the
// resulting word timings follow the actual audio.
package mock

import (
	"context"
	"strings"

	"call-transcript-service/internal/models"
	"call-transcript-service/internal/service/audio"
	"call-transcript-service/internal/service/stt"
)

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []string{
	"Hi, I'd like to order a coffee.",
	"Sure, what size would you like?",
	"A large latte please.",
	"Anything else for you today?",
	"No, that's all. Thank you very much.",
}

// Voice activity parameters used to find where words go.
const (
	frameSeconds    = 0.02
	energyThreshold = 0.01
	minGapSeconds   = 0.3
	minRegionLength = 0.2
	// Share of each word slot that is spoken; the rest is inter-word silence.
	wordFill = 0.8
)

// Adapter implements stt.Provider with scripted responses.
type Adapter struct {
	utterances []string
}

// New creates a mock provider using DefaultUtterances.
func New() *Adapter {
	return NewWithUtterances(DefaultUtterances)
}

// NewWithUtterances creates a mock provider that cycles through utterances,
// one per voiced region.
func NewWithUtterances(utterances []string) *Adapter {
	return &Adapter{utterances: utterances}
}

// Name implements stt.Provider.
func (a *Adapter) Name() string { return "mock" }

// Transcribe spreads the words of one utterance evenly across each voiced
// region of the clip.
func (a *Adapter) Transcribe(ctx context.Context, clip *audio.Clip, languageCode string) ([]models.WordRecord, error) {
	words := make([]models.WordRecord, 0)
	if clip == nil || len(a.utterances) == 0 {
		return words, nil
	}

	regions := audio.VoicedRegions(clip, frameSeconds, energyThreshold, minGapSeconds, minRegionLength)
	for i, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := strings.Fields(a.utterances[i%len(a.utterances)])
		if len(tokens) == 0 {
			continue
		}
		slot := (r.End - r.Start) / float64(len(tokens))
		for k, tok := range tokens {
			start := r.Start + float64(k)*slot
			words = append(words, models.WordRecord{
				Text:           stt.Normalize(tok),
				PunctuatedText: tok,
				Start:          start,
				End:            start + slot*wordFill,
			})
		}
	}
	return words, nil
}

var _ stt.Provider = (*Adapter)(nil)
