package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Status(c *gin.Context) {
	view, err := h.Mining.Status(c.Request.Context(), c.Query("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) LandStatus(c *gin.Context) {
	st, err := h.Mining.LandStatus(c.Request.Context(), c.Query("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, h.Mining.GameConfig())
}

type buyWithGoldRequest struct {
	Address     string  `json:"address"`
	PickaxeType string  `json:"pickaxeType"`
	GoldCost    float64 `json:"goldCost"`
}

func (h *Handler) BuyWithGold(c *gin.Context) {
	var req buyWithGoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	view, err := h.Mining.BuyWithGold(c.Request.Context(), req.Address, req.PickaxeType, req.GoldCost)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"newGold":    view.Gold,
		"inventory":  view.Inventory,
		"totalRate":  view.TotalRate,
		"checkpoint": view.Checkpoint,
	})
}

type purchaseConfirmRequest struct {
	Address     string `json:"address"`
	PickaxeType string `json:"pickaxeType"`
	Signature   string `json:"signature"`
	Quantity    int64  `json:"quantity"`
}

func (h *Handler) PurchaseConfirm(c *gin.Context) {
	var req purchaseConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	res, err := h.Mining.ConfirmEquipmentPurchase(c.Request.Context(), req.Address, req.PickaxeType, req.Signature, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"inventory":     res.Inventory,
		"totalRate":     res.TotalRate,
		"gold":          res.Gold,
		"checkpoint":    res.Checkpoint,
		"paymentStatus": res.PaymentStatus,
	})
}

type landPurchaseRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

func (h *Handler) ConfirmLandPurchase(c *gin.Context) {
	var req landPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	res, err := h.Mining.ConfirmLandPurchase(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"hasLand":          res.HasLand,
		"inventory":        res.Inventory,
		"landPurchaseDate": res.LandPurchaseDate,
		"gold":             res.Gold,
		"paymentStatus":    res.PaymentStatus,
	})
}

type purchaseTxRequest struct {
	Address     string `json:"address"`
	PickaxeType string `json:"pickaxeType"`
	Quantity    int64  `json:"quantity"`
}

func (h *Handler) PurchaseTx(c *gin.Context) {
	var req purchaseTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	tx, err := h.Mining.BuildEquipmentPurchaseTx(c.Request.Context(), req.Address, req.PickaxeType, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) PurchaseLand(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	tx, err := h.Mining.BuildLandPurchaseTx(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}
