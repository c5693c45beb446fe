package game

import (
	"fmt"
	"os"

	"gold_mining/internal/domain"

	"gopkg.in/yaml.v3"
)

// Equipment describes one purchasable pickaxe tier.
type Equipment struct {
	Kind          domain.EquipmentKind `json:"kind"`
	Name          string               `json:"name"`
	CostSOL       float64              `json:"costSol"`
	RatePerSecond float64              `json:"ratePerSec"`
	GoldCost      float64              `json:"goldCost"`
}

// Catalog is the read-only equipment table. It never changes after
// construction, so it is shared between goroutines without locking.
type Catalog struct {
	items  []Equipment
	byKind map[domain.EquipmentKind]Equipment
}

// DefaultCatalog is the built-in pickaxe table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Equipment{
		{Kind: domain.KindSilver, Name: "Silver Pickaxe", CostSOL: 0.001, RatePerSecond: 1.0 / 60, GoldCost: 100},
		{Kind: domain.KindGold, Name: "Gold Pickaxe", CostSOL: 0.001, RatePerSecond: 10.0 / 60, GoldCost: 1000},
		{Kind: domain.KindDiamond, Name: "Diamond Pickaxe", CostSOL: 0.001, RatePerSecond: 100.0 / 60, GoldCost: 10000},
		{Kind: domain.KindNetherite, Name: "Netherite Pickaxe", CostSOL: 0.001, RatePerSecond: 10000.0 / 60, GoldCost: 1000000},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates items (listed from the lowest tier up) and builds
// a catalog from them.
func NewCatalog(items []Equipment) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	c := &Catalog{
		items:  make([]Equipment, 0, len(items)),
		byKind: make(map[domain.EquipmentKind]Equipment, len(items)),
	}
	for i, it := range items {
		if it.Kind == "" {
			return nil, fmt.Errorf("catalog entry %d has no kind", i)
		}
		if _, dup := c.byKind[it.Kind]; dup {
			return nil, fmt.Errorf("duplicate catalog kind %q", it.Kind)
		}
		if it.RatePerSecond <= 0 || it.CostSOL < 0 || it.GoldCost < 0 {
			return nil, fmt.Errorf("catalog kind %q has invalid rate or cost", it.Kind)
		}
		if i > 0 && it.RatePerSecond <= items[i-1].RatePerSecond {
			return nil, fmt.Errorf("catalog kind %q must mine faster than %q", it.Kind, items[i-1].Kind)
		}
		if it.Name == "" {
			it.Name = string(it.Kind)
		}
		c.items = append(c.items, it)
		c.byKind[it.Kind] = it
	}
	return c, nil
}

type catalogFile struct {
	Pickaxes []struct {
		Kind          string  `yaml:"kind"`
		Name          string  `yaml:"name"`
		CostSOL       float64 `yaml:"cost_sol"`
		RatePerMinute float64 `yaml:"rate_per_minute"`
		GoldCost      float64 `yaml:"gold_cost"`
	} `yaml:"pickaxes"`
}

// LoadCatalog reads a YAML catalog override. Rates are given per minute in
// the file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	items := make([]Equipment, 0, len(f.Pickaxes))
	for _, p := range f.Pickaxes {
		items = append(items, Equipment{
			Kind:          domain.EquipmentKind(p.Kind),
			Name:          p.Name,
			CostSOL:       p.CostSOL,
			RatePerSecond: p.RatePerMinute / 60,
			GoldCost:      p.GoldCost,
		})
	}
	return NewCatalog(items)
}

func (c *Catalog) Lookup(kind domain.EquipmentKind) (Equipment, bool) {
	e, ok := c.byKind[kind]
	return e, ok
}

// Items returns the entries in tier order.
func (c *Catalog) Items() []Equipment {
	return append([]Equipment(nil), c.items...)
}

func (c *Catalog) Kinds() []domain.EquipmentKind {
	kinds := make([]domain.EquipmentKind, len(c.items))
	for i, it := range c.items {
		kinds[i] = it.Kind
	}
	return kinds
}
