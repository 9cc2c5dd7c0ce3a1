// Package providers builds the configured STT provider.
package providers

import (
	"context"
	"fmt"

	"call-transcript-service/internal/config"
	"call-transcript-service/internal/service/stt"
	"call-transcript-service/internal/service/stt/google"
	"call-transcript-service/internal/service/stt/mock"
)

// New returns the provider named by cfg.Provider and a function that
// releases it.
func New(ctx context.Context, cfg config.STTConfig) (stt.Provider, func() error, error) {
	switch cfg.Provider {
	case "", "mock":
		return mock.New(), func() error { return nil }, nil
	case "google":
		gcfg := google.DefaultConfig()
		if cfg.LanguageCode != "" {
			gcfg.LanguageCode = cfg.LanguageCode
		}
		if cfg.Model != "" {
			gcfg.Model = cfg.Model
		}
		gcfg.UseEnhanced = cfg.UseEnhanced
		if cfg.MaxSyncAudio > 0 {
			gcfg.MaxSyncDuration = cfg.MaxSyncAudio
		}
		a, err := google.New(ctx, gcfg)
		if err != nil {
			return nil, nil, err
		}
		return a, a.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}
