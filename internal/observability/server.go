package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// ErrNotReady is returned by readiness checks that are not yet satisfied.
var ErrNotReady = errors.New("not ready")

// Check is a named readiness probe, e.g. the application lifecycle or the
// transcript store.
type Check func(ctx context.Context) error

// checkTimeout bounds each readiness probe.
const checkTimeout = time.Second

// Server exposes /metrics, /healthz and /readyz on a side port.
type Server struct {
	server *http.Server
	addr   string
}

// NewServer creates the observability server. The service is ready when
// every check passes.
func NewServer(addr string, checks map[string]Check) *Server {
	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:         addr,
			Handler:      Handler(checks),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// readiness is the /readyz body.
type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler returns the observability routes.
func Handler(checks map[string]Check) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	// Liveness only; dependencies are reported by /readyz
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		body, ok := runChecks(r.Context(), checks)
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})

	return mux
}

func runChecks(ctx context.Context, checks map[string]Check) (readiness, bool) {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	body := readiness{Status: "ready", Checks: make(map[string]string, len(checks))}
	ok := true
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](cctx)
		cancel()
		if err != nil {
			ok = false
			body.Checks[name] = err.Error()
			log.Warn().Str("component", "observability").Str("check", name).Err(err).Msg("Readiness check failed")
			continue
		}
		body.Checks[name] = "ok"
	}
	if !ok {
		body.Status = "not ready"
	}
	return body, ok
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting observability HTTP server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Observability HTTP server error")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down observability HTTP server")
	return s.server.Shutdown(ctx)
}
