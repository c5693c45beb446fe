package ws

import (
	"context"
	"net/http"

	"gold_mining/internal/chain"
	"gold_mining/internal/logger"
	"gold_mining/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StatusFunc loads the view sent when a socket first connects.
type StatusFunc func(ctx context.Context, address string) (*service.PlayerView, error)

// HandleWS upgrades /ws?address=<wallet> and streams that player's status.
func HandleWS(hub *Hub, status StatusFunc, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		address := c.Query("address")
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "address required"})
			return
		}
		if err := chain.ValidateAddress(address); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
			return
		}

		var initial []byte
		if status != nil {
			view, err := status(c.Request.Context(), address)
			if err != nil {
				logger.Warn("ws: initial status failed", "address", address, "error", err)
			} else if initial, err = encode(MsgStatus, view); err != nil {
				initial = nil
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(address, conn, hub)
		go client.Run(initial)
	}
}
