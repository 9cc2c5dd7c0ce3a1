package app

import (
	"testing"

	"github.com/rs/zerolog"

	"call-transcript-service/internal/config"
)

func TestApplication_Lifecycle(t *testing.T) {
	a := New(&config.Configuration{})

	if a.Ready() {
		t.Error("expected application not to be ready before Start")
	}
	if err := a.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Ready() {
		t.Error("expected application to be ready after Start")
	}
	if a.StartupTime.IsZero() {
		t.Error("expected startup time to be set")
	}

	a.Shutdown()
	if a.Ready() {
		t.Error("expected application not to be ready after Shutdown")
	}
}

func TestSetupLogger_Level(t *testing.T) {
	tests := []struct {
		name     string
		cfgLevel string
		envLevel string
		expected zerolog.Level
	}{
		{"configured level", "debug", "", zerolog.DebugLevel},
		{"env overrides config", "debug", "warn", zerolog.WarnLevel},
		{"invalid falls back to info", "loud", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ZEROLOG_LOG_LEVEL", tt.envLevel)
			cfg := &config.Configuration{}
			cfg.Observability.LogLevel = tt.cfgLevel

			New(cfg)

			if got := zerolog.GlobalLevel(); got != tt.expected {
				t.Errorf("expected level %v, got %v", tt.expected, got)
			}
		})
	}
}
