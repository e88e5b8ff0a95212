package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/healthcatchers/iris/internal/assessment"
	"github.com/healthcatchers/iris/internal/domain"
	"golang.org/x/time/rate"
)

const wsWriteWait = 10 * time.Second

// WebSocket upgrades GET /ws and answers each envelope with exactly one reply.
// Every connection gets its own token bucket; messages over the limit are
// answered with an error envelope rather than dropped. A message larger
// than MaxMessageBytes gets no envelope: the connection is closed with
// status 1009 (message too big).
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The server read timeout does not apply to a long-lived connection.
	conn.SetReadDeadline(time.Time{})
	if h.ws.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.ws.MaxMessageBytes)
	}

	h.metrics.WebSocketOpened()
	defer h.metrics.WebSocketClosed()

	limit := rate.Limit(h.ws.MessagesPerSecond)
	if h.ws.MessagesPerSecond <= 0 {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, h.ws.Burst)
	requestID := GetRequestID(r.Context())
	slog.Debug("websocket connected", "request_id", requestID, "remote", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "error", err, "request_id", requestID)
			}
			return
		}

		reply := h.answer(r, limiter, data)
		if reply.Action == domain.ActionError {
			h.metrics.TransportError("websocket")
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			slog.Warn("websocket write failed", "error", err, "request_id", requestID)
			return
		}
	}
}

func (h *Handler) answer(r *http.Request, limiter *rate.Limiter, data []byte) domain.Envelope {
	var req domain.Envelope
	if err := json.Unmarshal(data, &req); err != nil {
		return assessment.ErrorEnvelope("", "invalid JSON message")
	}
	if !limiter.Allow() {
		h.metrics.RateLimited()
		return assessment.ErrorEnvelope(req.ID, "rate limit exceeded")
	}
	return h.service.Dispatch(r.Context(), req)
}
