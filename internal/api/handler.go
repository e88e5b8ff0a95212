package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/healthcatchers/iris/internal/assessment"
	"github.com/healthcatchers/iris/internal/domain"
	"github.com/healthcatchers/iris/internal/metrics"
)

// MaxBodyBytes caps an HTTP questionnaire body.
const MaxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	service  *assessment.Service
	repo     domain.ArtifactRepository
	bus      domain.EventBus
	metrics  *metrics.Metrics
	ws       domain.WebSocketConfig
	upgrader websocket.Upgrader
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		service: deps.Service,
		repo:    deps.Repository,
		bus:     deps.Bus,
		metrics: deps.Metrics,
		ws:      deps.WebSocket,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		version: deps.Version,
	}
}

// Assess handles POST /v1/assessments requests.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.decode(w, r)
	if !ok {
		return
	}
	resp, err := h.service.ProcessAssessment(r.Context(), raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Predict handles POST /v1/predictions requests.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.decode(w, r)
	if !ok {
		return
	}
	resp, err := h.service.PredictDryEye(r.Context(), raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Model returns the loaded classifier artifact metadata.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Model())
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			slog.Warn("repository ping failed", "error", err)
			status = "degraded"
		}
	}

	// Check bus health
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			slog.Warn("event bus ping failed", "error", err)
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
		"model":   h.service.Model().Name,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// decode reads a questionnaire object. Numbers stay json.Number so the
// normalizer sees exactly what the client sent.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (domain.RawAssessmentInput, bool) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw domain.RawAssessmentInput
	if err := dec.Decode(&raw); err != nil {
		h.metrics.TransportError("http")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "request body too large",
			})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body: expected an object",
		})
		return nil, false
	}
	if raw == nil {
		raw = domain.RawAssessmentInput{}
	}
	return raw, true
}

// writeError maps engine errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("assessment failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
		)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}

// StatusFor returns the HTTP status for an engine error. Inference and any
// unclassified failure are server errors.
func StatusFor(err error) int {
	if errors.Is(err, domain.ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
