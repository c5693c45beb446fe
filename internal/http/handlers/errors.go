package handlers

import (
	"errors"
	"net/http"

	"gold_mining/internal/chain"
	"gold_mining/internal/game"
	"gold_mining/internal/logger"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to status codes. Domain errors carry
// the authoritative values the client needs to resync.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, chain.ErrNoTreasury) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "treasury not configured"})
		return
	}

	ge, ok := game.AsError(err)
	if !ok {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": ge.Message}
	if ge.Reason != "" {
		body["reason"] = ge.Reason
	}

	switch ge.Kind {
	case game.ErrValidation:
		if ge.Balance != nil {
			body["currentGold"] = *ge.Balance
		}
		if ge.Price != nil {
			body["price"] = *ge.Price
		}
		c.JSON(http.StatusBadRequest, body)
	case game.ErrInsufficientFunds:
		if ge.Balance != nil {
			body["currentGold"] = *ge.Balance
		}
		c.JSON(http.StatusBadRequest, body)
	case game.ErrAlreadyOwns:
		c.JSON(http.StatusConflict, body)
	case game.ErrInventoryDesync:
		body["serverInventory"] = ge.Inventory
		c.JSON(http.StatusBadRequest, body)
	case game.ErrUnverifiableSignature:
		c.JSON(http.StatusPaymentRequired, body)
	default:
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
}
