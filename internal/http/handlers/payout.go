package handlers

import (
	"net/http"

	"gold_mining/internal/domain"
	"gold_mining/internal/service"

	"github.com/gin-gonic/gin"
)

type sellRequest struct {
	Address         string           `json:"address"`
	AmountGold      float64          `json:"amountGold"`
	ClientGold      *float64         `json:"clientGold"`
	ClientInventory domain.Inventory `json:"clientInventory"`
}

func (h *Handler) Sell(c *gin.Context) {
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	res, err := h.Payout.Sell(c.Request.Context(), service.SellInput{
		Address:         req.Address,
		AmountGold:      req.AmountGold,
		ClientGold:      req.ClientGold,
		ClientInventory: req.ClientInventory,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"ok":         true,
		"amountGold": res.AmountGold,
		"clamped":    res.Clamped,
		"payoutSol":  res.PayoutSOL,
		"lamports":   res.Lamports,
		"newGold":    res.NewGold,
		"status":     res.Status,
	}
	if res.Signature != "" {
		body["signature"] = res.Signature
	}
	c.JSON(http.StatusOK, body)
}
