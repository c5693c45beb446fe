package game

import "gold_mining/internal/domain"

// ComputeRate returns gold per minute for an inventory. Kinds unknown to
// the catalog mine nothing.
func ComputeRate(c *Catalog, inv domain.Inventory) float64 {
	var perSecond float64
	for _, e := range c.items {
		if n := inv.Count(e.Kind); n > 0 {
			perSecond += float64(n) * e.RatePerSecond
		}
	}
	return perSecond * 60
}
