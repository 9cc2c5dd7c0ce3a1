package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "call-transcript-service/internal/api/grpc"
	"call-transcript-service/internal/app"
	"call-transcript-service/internal/config"
	"call-transcript-service/internal/events"
	httpapi "call-transcript-service/internal/http"
	"call-transcript-service/internal/observability"
	"call-transcript-service/internal/observability/metrics"
	"call-transcript-service/internal/schema"
	"call-transcript-service/internal/service/align"
	"call-transcript-service/internal/service/audio"
	"call-transcript-service/internal/service/pipeline"
	"call-transcript-service/internal/service/stt/providers"
	"call-transcript-service/internal/service/transcript"
	"call-transcript-service/internal/storage"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	logger := application.Logger.With().Str("method", "main").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := providers.New(ctx, cfg.STT)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.STT.Provider).Msg("Failed to create STT provider")
	}
	defer closeProvider()

	// Create Kafka publisher with separate topics for completed and failed transcripts
	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Principal:      cfg.Kafka.Principal,
	})
	defer publisher.Close()

	deps := pipeline.Deps{
		Splitter: audio.NewSource(audio.Limits{
			MaxAudioBytes:   cfg.Audio.MaxAudioBytes,
			MaxDuration:     cfg.Audio.MaxDuration,
			DownloadTimeout: cfg.Audio.DownloadTimeout,
		}),
		Provider: provider,
		Aligner:  align.New(cfg.Align.CalibrationPath),
		Builder: transcript.NewBuilder(transcript.Config{
			SilenceGapSeconds: cfg.Transcript.SilenceGapSeconds,
			TurnGapSeconds:    cfg.Transcript.TurnGapSeconds,
		}),
		Validator: schema.New(),
		Publisher: publisher,
	}

	// Persistence is optional; the reader stays a nil interface when disabled.
	var reader httpapi.Reader
	checks := map[string]observability.Check{
		"app": func(context.Context) error {
			if !application.Ready() {
				return observability.ErrNotReady
			}
			return nil
		},
	}
	if cfg.Storage.SQLitePath != "" {
		store, err := storage.Open(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("Failed to open storage")
		}
		defer store.Close()
		deps.Store = store
		reader = store
		checks["storage"] = store.Ping
	}

	proc := pipeline.New(pipeline.Config{
		LanguageCode:    cfg.STT.LanguageCode,
		AlignByDefault:  cfg.Align.Enabled,
		EnergyThreshold: cfg.Transcript.EnergyThreshold,
		EnergyWindow:    cfg.Transcript.EnergyWindow,
	}, deps)

	// Observability server: /metrics, /healthz, /readyz
	obsServer := observability.NewServer(":"+cfg.Service.MetricsPort, checks)
	obsServer.Start()

	// gRPC server
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to listen")
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(metrics.DefaultMetrics)),
	)

	// Register gRPC health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	// Register application services
	grpcapi.Register(server, proc)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(server)

	// HTTP API
	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application, proc, reader),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start application")
	}
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		logger.Info().Str("port", cfg.Service.GRPCPort).Str("sttProvider", proc.ProviderName()).Msg("gRPC server started")
		if err := server.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("gRPC serve failed")
		}
	}()
	go func() {
		logger.Info().Str("port", cfg.Service.HTTPPort).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	<-ctx.Done()

	application.Shutdown()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown error")
	}
	server.GracefulStop()
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Observability shutdown error")
	}

	// Flush logs before deferred closers run
	_ = os.Stdout.Sync()
}
