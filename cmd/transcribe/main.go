// Command transcribe runs the call pipeline over a local or remote stereo
// recording without starting the service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"call-transcript-service/internal/config"
	"call-transcript-service/internal/observability/logging"
	"call-transcript-service/internal/schema"
	"call-transcript-service/internal/service/align"
	"call-transcript-service/internal/service/audio"
	"call-transcript-service/internal/service/pipeline"
	"call-transcript-service/internal/service/stt/providers"
	"call-transcript-service/internal/service/transcript"
	"call-transcript-service/internal/storage"
)

type options struct {
	provider    string
	language    string
	callID      string
	align       bool
	calibration string
	db          string
	statsOnly   bool
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := options{
		provider:    cfg.STT.Provider,
		language:    cfg.STT.LanguageCode,
		align:       cfg.Align.Enabled,
		calibration: cfg.Align.CalibrationPath,
		logLevel:    "warn",
	}

	cmd := &cobra.Command{
		Use:   "transcribe <recording>",
		Short: "Fuse a stereo call recording into turns, interruptions and latency blocks",
		Long: "Splits a stereo WAV recording (user on the left channel, agent on the right),\n" +
			"transcribes both channels and prints the call transcript as JSON.\n" +
			"The recording may be a local path, a file:// URL or an http(s) URL.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, opts, args[0], cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.provider, "provider", opts.provider, "STT provider (mock|google)")
	flags.StringVar(&opts.language, "language", opts.language, "Language code")
	flags.StringVar(&opts.callID, "call-id", "", "Call ID (generated when empty)")
	flags.BoolVar(&opts.align, "align", opts.align, "Refine word timestamps against the audio")
	flags.StringVar(&opts.calibration, "calibration", opts.calibration, "Aligner calibration YAML (built-in when empty)")
	flags.StringVar(&opts.db, "db", "", "SQLite file to store the result in")
	flags.BoolVar(&opts.statsOnly, "stats", false, "Print only the call statistics")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level")
	return cmd
}

func run(ctx context.Context, cfg *config.Configuration, opts options, recording string, cmd *cobra.Command) error {
	logging.Init(logging.Config{Level: opts.logLevel, Format: "console", TimeFormat: time.RFC3339, Output: cmd.ErrOrStderr()})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sttCfg := cfg.STT
	sttCfg.Provider = opts.provider
	sttCfg.LanguageCode = opts.language
	provider, closeProvider, err := providers.New(ctx, sttCfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	deps := pipeline.Deps{
		Splitter: audio.NewSource(audio.Limits{
			MaxAudioBytes:   cfg.Audio.MaxAudioBytes,
			MaxDuration:     cfg.Audio.MaxDuration,
			DownloadTimeout: cfg.Audio.DownloadTimeout,
		}),
		Provider: provider,
		Aligner:  align.New(opts.calibration),
		Builder: transcript.NewBuilder(transcript.Config{
			SilenceGapSeconds: cfg.Transcript.SilenceGapSeconds,
			TurnGapSeconds:    cfg.Transcript.TurnGapSeconds,
		}),
		Validator: schema.New(),
	}
	if opts.db != "" {
		store, err := storage.Open(opts.db)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Store = store
	}

	p := pipeline.New(pipeline.Config{
		LanguageCode:    opts.language,
		AlignByDefault:  opts.align,
		EnergyThreshold: cfg.Transcript.EnergyThreshold,
		EnergyWindow:    cfg.Transcript.EnergyWindow,
	}, deps)

	resp, err := p.Process(ctx, pipeline.Request{CallID: opts.callID, AudioURL: recording})
	if err != nil {
		return fmt.Errorf("process %s: %w", recording, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if opts.statsOnly {
		return enc.Encode(resp.Stats)
	}
	return enc.Encode(resp)
}
