package handlers

import (
	"gold_mining/internal/service"
)

type Handler struct {
	Mining *service.MiningService
	Payout *service.PayoutService
}

func NewHandler(mining *service.MiningService, payout *service.PayoutService) *Handler {
	return &Handler{Mining: mining, Payout: payout}
}
