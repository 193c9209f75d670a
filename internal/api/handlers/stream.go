package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	apierrors "github.com/narvanalabs/solr-monitor/internal/api/errors"
	"github.com/narvanalabs/solr-monitor/internal/stream"
)

// wsWriteTimeout bounds a single websocket write.
const wsWriteTimeout = 10 * time.Second

// StreamHandler pushes cluster snapshots over SSE and WebSocket.
type StreamHandler struct {
	broker *stream.Broker
	poller *stream.Poller
	logger *slog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(broker *stream.Broker, poller *stream.Poller, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		broker: broker,
		poller: poller,
		logger: logger,
	}
}

// subscribe registers a subscriber and asks for a fresh snapshot when none is
// cached yet.
func (h *StreamHandler) subscribe() *stream.Subscriber {
	sub := h.broker.Subscribe()
	if h.broker.Latest() == nil {
		h.poller.Trigger()
	}
	return sub
}

// SSE handles GET /cluster/stream - snapshots as Server-Sent Events.
func (h *StreamHandler) SSE(w http.ResponseWriter, r *http.Request) {
	if !h.poller.Enabled() {
		WriteError(w, r, apierrors.New(apierrors.CodeNotFound, "snapshot streaming is disabled"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, apierrors.NewInternalError("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.subscribe()
	defer h.broker.Unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-sub.Ch:
			if !ok {
				return
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				h.logger.Error("failed to encode snapshot", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// WebSocket handles GET /cluster/ws - snapshots as JSON text messages.
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.poller.Enabled() {
		WriteError(w, r, apierrors.New(apierrors.CodeNotFound, "snapshot streaming is disabled"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	sub := h.subscribe()
	defer h.broker.Unsubscribe(sub)

	// The reader only watches for the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snapshot, ok := <-sub.Ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
