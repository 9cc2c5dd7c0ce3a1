// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
	Output     io.Writer // os.Stdout when nil
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithCall returns a logger with call context.
func WithCall(callId string) zerolog.Logger {
	return log.With().
		Str("callId", callId).
		Logger()
}

// WithJob returns a logger with call and job context.
func WithJob(callId, jobId string) zerolog.Logger {
	return log.With().
		Str("callId", callId).
		Str("jobId", jobId).
		Logger()
}

// WithStage returns a logger with call context and the pipeline stage.
func WithStage(callId, stage string) zerolog.Logger {
	return log.With().
		Str("callId", callId).
		Str("stage", stage).
		Logger()
}

// WithChannel returns a logger scoped to one speaker channel of a job.
func WithChannel(callId, jobId, speaker, provider string) zerolog.Logger {
	return log.With().
		Str("callId", callId).
		Str("jobId", jobId).
		Str("speaker", speaker).
		Str("sttProvider", provider).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}
