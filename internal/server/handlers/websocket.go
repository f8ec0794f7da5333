package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/papertrade/funds/internal/server/websocket"
	"github.com/papertrade/funds/pkg/config"
)

type WebSocketHandler struct {
	wsHub    *websocket.WsHub
	upgrader gws.Upgrader
	logger   zerolog.Logger
}

func NewWebSocketHandler(wsHub *websocket.WsHub, cfg config.WebSocketConfig, logger zerolog.Logger) *WebSocketHandler {
	readBuffer := cfg.ReadBufferSize
	if readBuffer <= 0 {
		readBuffer = 1024
	}
	writeBuffer := cfg.WriteBufferSize
	if writeBuffer <= 0 {
		writeBuffer = 1024
	}

	return &WebSocketHandler{
		wsHub:  wsHub,
		logger: logger,
		upgrader: gws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				// The token query parameter already authenticates the caller.
				return true
			},
		},
	}
}

// HandleConnection upgrades the request and streams the caller's balance
// updates until the client disconnects.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	accountID := c.GetString("account_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to upgrade to WebSocket"})
		return
	}

	client := &websocket.WsClient{
		AccountID: accountID,
		Conn:      conn,
	}
	h.wsHub.Register <- client

	defer func() {
		h.wsHub.Unregister <- client
	}()

	// The stream is push-only; drain client frames until the peer closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
