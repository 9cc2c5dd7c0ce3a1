package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"call-transcript-service/internal/app"
	"call-transcript-service/internal/observability/logging"
)

// NewRouter constructs the HTTP router for the service. reader may be nil
// when persistence is disabled.
func NewRouter(application *app.Application, processor Processor, reader Reader) http.Handler {
	h := &handler{
		processor: processor,
		reader:    reader,
		logger:    logging.WithComponent("http"),
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1/transcripts", func(r chi.Router) {
		r.Post("/", h.createTranscript)
		r.Get("/", h.listTranscripts)
		r.Get("/{id}", h.getTranscript)
	})

	return r
}

// requestLogger logs each request with its status and duration.
func requestLogger(next http.Handler) http.Handler {
	logger := logging.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info().
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("httpMethod", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
