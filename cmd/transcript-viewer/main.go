// Transcript Viewer - live display of processed calls.
// Consumes the completed and failed transcript topics and pushes them to
// browsers over WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"call-transcript-service/internal/observability/logging"
	"call-transcript-service/internal/viewer"
)

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicCompleted := flag.String("topic-completed", "call.transcript.completed", "Completed transcript topic")
	topicFailed := flag.String("topic-failed", "call.transcript.failed", "Failed transcript topic")
	lookback := flag.Duration("lookback", time.Hour, "How far back to replay events on start")
	flag.Parse()

	cfg := logging.DefaultConfig()
	cfg.Format = "console"
	logging.Init(cfg)
	logger := logging.WithComponent("transcript-viewer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := viewer.NewHub()
	go hub.Run(ctx)

	brokerList := strings.Split(*brokers, ",")
	for _, topic := range []string{*topicCompleted, *topicFailed} {
		go viewer.Consume(ctx, hub, viewer.NewReader(ctx, brokerList, topic, *lookback), topic)
	}

	server := &http.Server{
		Addr:              ":" + *port,
		Handler:           viewer.Handler(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("url", "http://localhost:"+*port).
		Strs("brokers", brokerList).
		Strs("topics", []string{*topicCompleted, *topicFailed}).
		Msg("Transcript Viewer starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
}
