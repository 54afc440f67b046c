package handler

import (
	"net/http"
	"slices"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnectionServer owns upgraded websocket connections
type ConnectionServer interface {
	Serve(conn *websocket.Conn, tenantID uuid.UUID, userID string)
}

// NotificationHandler upgrades authenticated requests to the notification websocket
type NotificationHandler struct {
	BaseHandler
	server   ConnectionServer
	upgrader websocket.Upgrader
}

// NewNotificationHandler creates the websocket handler. allowedOrigins follows the CORS setting:
// "*" accepts any origin and an empty list only same-origin requests.
func NewNotificationHandler(server ConnectionServer, allowedOrigins []string) *NotificationHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if slices.Contains(allowedOrigins, "*") {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	} else if len(allowedOrigins) > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin)
		}
	}
	return &NotificationHandler{server: server, upgrader: upgrader}
}

// Connect upgrades the request and blocks until the client goes away.
// GET /ws/notifications?token=...
func (h *NotificationHandler) Connect(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context missing")
		return
	}
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "User context missing")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logger.L(c.Request.Context()).Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.server.Serve(conn, tenantID, actor.ID)
}
