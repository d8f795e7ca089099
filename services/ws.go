package services

import (
	"net/http"
	"slices"

	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler authenticates and upgrades player connections.
type WSHandler struct {
	engine   *Engine
	hub      *Hub
	identity IdentityProvider
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

func NewWSHandler(engine *Engine, hub *Hub, identity IdentityProvider, allowedOrigins []string, log *zap.SugaredLogger) *WSHandler {
	return &WSHandler{
		engine:   engine,
		hub:      hub,
		identity: identity,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

func (h *WSHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	id, err := h.identity.Authenticate(c.Request.Context(), token)
	if err != nil {
		h.log.Infof("[WS] rejected connection: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": game.ErrUnauthenticated.Message})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Infof("[WS] upgrade error: %v", err)
		return
	}

	client := newClient(uuid.NewString(), id, conn, h.hub, h.engine, h.log)
	h.hub.register(client)

	go client.writePump()
	go client.readPump()
}
