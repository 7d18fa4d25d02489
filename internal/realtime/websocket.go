package realtime

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cabinbook/internal/pkg/jwt"
	"cabinbook/internal/pkg/response"
)

type WSHandler struct {
	hub      *Hub
	jwt      *jwt.Service
	upgrader websocket.Upgrader
}

// NewWSHandler accepts connections from allowedOrigins, or from any origin
// when the list is empty or contains "*".
func NewWSHandler(hub *Hub, jwtService *jwt.Service, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		hub: hub,
		jwt: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// HandleWebSocket serves GET /ws/availability?container_id=&token=.
// Browsers cannot set headers on websocket requests, so the token is a query parameter.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "token query parameter is required")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}

	containerID, err := strconv.ParseInt(c.Query("container_id"), 10, 64)
	if err != nil || containerID <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "container_id is required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := h.hub.Register(containerID, conn)
	h.hub.log.Debug("websocket subscribed", "user_id", claims.UserID, "container_id", containerID)
	defer h.hub.Unregister(sub)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Subscribers only listen; reading drives pong handling and close detection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.hub.log.Debug("websocket closed", "user_id", claims.UserID, "error", err)
			}
			return
		}
	}
}
