// ==============================================================================
// KYC EVENT FEED - internal/handler/events.go
// ==============================================================================

// Package handler provides HTTP handlers for the loan origination services.
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"loanserve/internal/domain"
	"loanserve/internal/middleware"
	"loanserve/internal/notification"
	"loanserve/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (CORS)
	},
}

const eventPingInterval = 30 * time.Second

// EventsHandler streams verification status changes to operator dashboards.
type EventsHandler struct {
	notifications *notification.Service
	logger        logger.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(n *notification.Service, log logger.Logger) *EventsHandler {
	return &EventsHandler{
		notifications: n,
		logger:        log,
	}
}

// Stream upgrades the connection and relays status events until the client
// goes away. Only admins see the cross-customer feed.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.RoleFromContext(r.Context())
	if role != domain.RoleAdmin {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"admin role required"}`))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	events, cancel := h.notifications.Subscribe()
	defer cancel()

	h.logger.Info("Event feed client connected", nil)

	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Error("Failed to send event", map[string]interface{}{"error": err.Error()})
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
