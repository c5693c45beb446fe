package game

import (
	"math"

	"gold_mining/internal/domain"
)

// CurrentGold extrapolates the balance at now. Elapsed time is clamped at
// zero so clock skew never runs the balance backwards.
func CurrentGold(cp domain.Checkpoint, now int64) float64 {
	elapsed := now - cp.SnapshotTimestamp
	if elapsed < 0 {
		elapsed = 0
	}
	return cp.SnapshotGold + cp.RatePerMinute/60*float64(elapsed)
}

// MaxReachableGold is the most gold the checkpoint could have produced,
// looking no further than window seconds past the snapshot.
func MaxReachableGold(cp domain.Checkpoint, now, window int64) float64 {
	elapsed := now - cp.SnapshotTimestamp
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > window {
		elapsed = window
	}
	return cp.SnapshotGold + cp.RatePerMinute/60*float64(elapsed)
}

func checkpointTime(cp domain.Checkpoint, now int64) int64 {
	if now < cp.SnapshotTimestamp {
		return cp.SnapshotTimestamp
	}
	return now
}

// NewCheckpoint folds the gold accrued under the old checkpoint into a new
// snapshot whose rate reflects the player's current inventory.
func NewCheckpoint(c *Catalog, p *domain.Player, now int64) (domain.Checkpoint, float64) {
	gold := CurrentGold(p.Checkpoint, now)
	return domain.Checkpoint{
		SnapshotGold:      gold,
		SnapshotTimestamp: checkpointTime(p.Checkpoint, now),
		RatePerMinute:     ComputeRate(c, p.Inventory),
	}, gold
}

// ApplyInventoryChange checkpoints, runs mutate on the inventory, then
// checkpoints again so the new rate only applies from now on. It returns
// the balance seen by both checkpoints.
func ApplyInventoryChange(c *Catalog, p *domain.Player, now int64, mutate func(domain.Inventory)) (before, after float64) {
	p.Checkpoint, before = NewCheckpoint(c, p, now)
	if p.Inventory == nil {
		p.Inventory = domain.Inventory{}
	}
	mutate(p.Inventory)
	p.Checkpoint, after = NewCheckpoint(c, p, now)
	return before, after
}

// Debit removes amount from the balance at now. The rate is unchanged.
func Debit(cp domain.Checkpoint, amount float64, now int64) (domain.Checkpoint, error) {
	gold := CurrentGold(cp, now)
	if math.IsNaN(amount) || amount < 0 {
		return cp, Validation(ReasonBadAmount, "amount must be positive")
	}
	if gold < amount {
		return cp, InsufficientFunds(gold)
	}
	return domain.Checkpoint{
		SnapshotGold:      gold - amount,
		SnapshotTimestamp: checkpointTime(cp, now),
		RatePerMinute:     cp.RatePerMinute,
	}, nil
}

// Credit adds amount to the balance at now. The rate is unchanged.
func Credit(cp domain.Checkpoint, amount float64, now int64) domain.Checkpoint {
	return domain.Checkpoint{
		SnapshotGold:      CurrentGold(cp, now) + amount,
		SnapshotTimestamp: checkpointTime(cp, now),
		RatePerMinute:     cp.RatePerMinute,
	}
}

// ClampQuantity bounds a purchase quantity to [1, 1000].
func ClampQuantity(q int64) int64 {
	if q < 1 {
		return 1
	}
	if q > MaxPurchaseQuantity {
		return MaxPurchaseQuantity
	}
	return q
}

const MaxPurchaseQuantity = 1000
