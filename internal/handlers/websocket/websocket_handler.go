package websocket

import (
	"net/http"

	"resonate-service/internal/middleware"
	"resonate-service/internal/pkg/response"
	ws "resonate-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// HandleConnection upgrades the request and attaches the client to the
// account's notice stream.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, accountID, h.logger)
	client.Start()
}
