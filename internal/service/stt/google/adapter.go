// Package google provides a Google Cloud Speech-to-Text provider.
package google

import (
	"context"
	"fmt"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"

	"call-transcript-service/internal/models"
	"call-transcript-service/internal/service/audio"
	"call-transcript-service/internal/service/stt"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode string
	Model        string
	UseEnhanced  bool
	// Recordings longer than this use LongRunningRecognize.
	MaxSyncDuration time.Duration
	// Largest LINEAR16 payload sent inline. Both recognize calls carry the
	// audio as content, which the API caps at 10 MB.
	MaxInlineBytes int
}

// DefaultMaxInlineBytes is the API limit for inline audio content.
const DefaultMaxInlineBytes = 10 << 20

// DefaultConfig returns the default recognition settings for phone audio.
func DefaultConfig() Config {
	return Config{
		LanguageCode:    "en-US",
		Model:           "phone_call",
		UseEnhanced:     true,
		MaxSyncDuration: 55 * time.Second,
		MaxInlineBytes:  DefaultMaxInlineBytes,
	}
}

// recognizer is the subset of speech.Client used by the provider.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest, opts ...gax.CallOption) (*speech.LongRunningRecognizeOperation, error)
}

// Adapter implements stt.Provider using Google Cloud Speech-to-Text.
type Adapter struct {
	client recognizer
	closer func() error
	cfg    Config
}

// New creates a new Google STT provider.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Adapter{client: c, closer: c.Close, cfg: cfg}, nil
}

// Name implements stt.Provider.
func (a *Adapter) Name() string { return "google" }

// Transcribe sends the clip as LINEAR16 and returns word-level timestamps.
func (a *Adapter) Transcribe(ctx context.Context, clip *audio.Clip, languageCode string) ([]models.WordRecord, error) {
	if clip == nil || len(clip.Samples) == 0 {
		return []models.WordRecord{}, nil
	}
	if languageCode == "" {
		languageCode = a.cfg.LanguageCode
	}

	pcm := clip.PCM16()
	if a.cfg.MaxInlineBytes > 0 && len(pcm) > a.cfg.MaxInlineBytes {
		return nil, fmt.Errorf("%w: %d bytes of LINEAR16 (%.0fs at %d Hz), limit %d",
			stt.ErrAudioTooLarge, len(pcm), clip.Duration(), clip.SampleRate, a.cfg.MaxInlineBytes)
	}

	config := a.recognitionConfig(clip.SampleRate, languageCode)
	content := &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
	}

	var results []*speechpb.SpeechRecognitionResult
	if time.Duration(clip.Duration()*float64(time.Second)) > a.cfg.MaxSyncDuration {
		op, err := a.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
			Config: config,
			Audio:  content,
		})
		if err != nil {
			return nil, fmt.Errorf("long running recognize: %w", err)
		}
		resp, err := op.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("long running recognize wait: %w", err)
		}
		results = resp.Results
	} else {
		resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
			Config: config,
			Audio:  content,
		})
		if err != nil {
			return nil, fmt.Errorf("recognize: %w", err)
		}
		results = resp.Results
	}

	return wordsFromResults(results), nil
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

func (a *Adapter) recognitionConfig(sampleRate int, languageCode string) *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(sampleRate),
		AudioChannelCount:          1,
		LanguageCode:               languageCode,
		Model:                      a.cfg.Model,
		UseEnhanced:                a.cfg.UseEnhanced,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
	}
}

// wordsFromResults flattens the top alternative of each result. With
// automatic punctuation enabled the word carries its punctuation.
func wordsFromResults(results []*speechpb.SpeechRecognitionResult) []models.WordRecord {
	words := make([]models.WordRecord, 0)
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		for _, w := range r.Alternatives[0].Words {
			if w.Word == "" {
				continue
			}
			words = append(words, models.WordRecord{
				Text:           stt.Normalize(w.Word),
				PunctuatedText: w.Word,
				Start:          w.GetStartTime().AsDuration().Seconds(),
				End:            w.GetEndTime().AsDuration().Seconds(),
			})
		}
	}
	return words
}

var _ stt.Provider = (*Adapter)(nil)
