package game

import (
	"fmt"
	"math"
	"time"

	"gold_mining/internal/domain"
)

// SellPolicy holds the cash-out limits.
type SellPolicy struct {
	MinSellGold float64
	// Tolerance is the fraction above the authoritative balance a request
	// may be clamped to.
	Tolerance        float64
	ClientGoldWindow time.Duration
	ClientGoldBuffer float64
}

func DefaultSellPolicy() SellPolicy {
	return SellPolicy{
		MinSellGold:      100,
		Tolerance:        0.01,
		ClientGoldWindow: 2 * time.Hour,
		ClientGoldBuffer: 500,
	}
}

// SellRequest is a cash-out as claimed by the client. ClientGold and
// ClientInventory are optional cross-checks.
type SellRequest struct {
	Amount          float64
	ClientGold      *float64
	ClientInventory domain.Inventory
}

// Verdict is the outcome of a validated sell.
type Verdict struct {
	Requested   float64
	Allowed     float64
	CurrentGold float64
	// Exceeded is set when the request was above the unclamped balance.
	Exceeded bool
	Clamped  bool
	// MaxReachable is only set when a client gold figure was checked.
	MaxReachable float64
}

// ValidateSell runs the cash-out checks in order: minimum amount,
// inventory cross-check, client gold plausibility, then the clamp.
// It does not modify the player.
func ValidateSell(policy SellPolicy, c *Catalog, p *domain.Player, req SellRequest, now int64) (Verdict, error) {
	v := Verdict{Requested: req.Amount}

	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 || req.Amount < policy.MinSellGold {
		return v, Validation(ReasonBelowMinimum, fmt.Sprintf("minimum sell is %g gold", policy.MinSellGold))
	}

	if req.ClientInventory != nil {
		for _, kind := range c.Kinds() {
			if req.ClientInventory.Count(kind) != p.Inventory.Count(kind) {
				return v, InventoryDesync(p.Inventory.Normalize(c.Kinds()))
			}
		}
		// kinds the catalog does not know count as zero on the server
		for kind, n := range req.ClientInventory {
			if n != p.Inventory.Count(kind) {
				return v, InventoryDesync(p.Inventory.Normalize(c.Kinds()))
			}
		}
	}

	gold := CurrentGold(p.Checkpoint, now)
	v.CurrentGold = gold

	if req.ClientGold != nil {
		window := int64(policy.ClientGoldWindow / time.Second)
		v.MaxReachable = MaxReachableGold(p.Checkpoint, now, window)
		if claimed := *req.ClientGold; math.IsNaN(claimed) || claimed > v.MaxReachable+policy.ClientGoldBuffer {
			e := Validation(ReasonGoldClaim, "claimed gold is not reachable")
			e.Balance = &gold
			return v, e
		}
	}

	ceiling := math.Max(0, gold*(1+policy.Tolerance))
	v.Exceeded = req.Amount > gold
	v.Allowed = req.Amount
	if req.Amount > ceiling {
		v.Allowed = ceiling
		v.Clamped = true
	}
	if v.Allowed <= 0 {
		return v, InsufficientFunds(gold)
	}
	return v, nil
}
