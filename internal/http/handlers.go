package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"call-transcript-service/internal/service/pipeline"
	"call-transcript-service/internal/storage"
)

const (
	maxRequestBytes  = 1 << 20
	defaultListLimit = 20
	maxListLimit     = 100
)

// Processor runs a call through the transcript pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// Reader looks up processed calls.
type Reader interface {
	Get(ctx context.Context, id string) (storage.Record, error)
	List(ctx context.Context, limit int) ([]storage.Record, error)
}

type handler struct {
	processor Processor
	reader    Reader
	logger    zerolog.Logger
}

type transcriptRequest struct {
	StereoAudioURL string `json:"stereoAudioUrl"`
	Language       string `json:"language,omitempty"`
	Align          *bool  `json:"align,omitempty"`
	CallID         string `json:"callId,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) createTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	resp, err := h.processor.Process(r.Context(), pipeline.Request{
		CallID:   req.CallID,
		AudioURL: req.StereoAudioURL,
		Language: req.Language,
		Align:    req.Align,
	})
	if err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getTranscript(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		h.writeError(w, http.StatusServiceUnavailable, "storage is disabled")
		return
	}
	rec, err := h.reader.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Str("method", "getTranscript").Err(err).Msg("Failed to read transcript")
		h.writeError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *handler) listTranscripts(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		h.writeError(w, http.StatusServiceUnavailable, "storage is disabled")
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := h.reader.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Str("method", "listTranscripts").Err(err).Msg("Failed to list transcripts")
		h.writeError(w, http.StatusInternalServerError, "failed to list transcripts")
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest
	case pipeline.IsClientError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Str("method", "writeJSON").Err(err).Msg("Failed to encode response")
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
