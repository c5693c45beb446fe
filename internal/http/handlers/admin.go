package handlers

import (
	"net/http"

	"gold_mining/internal/logger"

	"github.com/gin-gonic/gin"
)

func (h *Handler) PendingPayouts(c *gin.Context) {
	accounts, err := h.Payout.PendingPayouts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": accounts, "count": len(accounts)})
}

func (h *Handler) Reconcile(c *gin.Context) {
	logger.Info("manual reconciliation", "admin", c.GetString("admin"))
	report, err := h.Payout.ReconcilePending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
