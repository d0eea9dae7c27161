// internal/handler/events_handler.go
package handler

import (
	"net/http"
	"strconv"

	"escrow-service/internal/events"
	"escrow-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsHandler streams escrow events to websocket subscribers, one
// subscription per service.
type EventsHandler struct {
	notifier *events.Notifier
	logger   *zap.Logger
}

func NewEventsHandler(notifier *events.Notifier, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{notifier: notifier, logger: logger}
}

func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	serviceID, err := strconv.ParseUint(chi.URLParam(r, "serviceID"), 10, 64)
	if err != nil || serviceID == 0 {
		response.Error(w, http.StatusBadRequest, "invalid service id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.notifier.RegisterConnection(serviceID, conn)
	h.logger.Info("event subscriber connected",
		zap.Uint64("service_id", serviceID),
		zap.String("remote_addr", r.RemoteAddr))

	defer func() {
		h.notifier.UnregisterConnection(serviceID, conn)
		conn.Close()
	}()

	// Subscribers only listen; the read loop exists to detect close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
