package domain

// EquipmentKind identifies a pickaxe tier in the catalog.
type EquipmentKind string

const (
	KindSilver    EquipmentKind = "silver"
	KindGold      EquipmentKind = "gold"
	KindDiamond   EquipmentKind = "diamond"
	KindNetherite EquipmentKind = "netherite"
)

// Inventory maps an equipment kind to the number of units owned.
// Missing kinds count as zero.
type Inventory map[EquipmentKind]int64

func (inv Inventory) Count(kind EquipmentKind) int64 {
	if inv == nil {
		return 0
	}
	return inv[kind]
}

func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// Normalize returns a copy that holds an entry for every kind in kinds.
// Entries for kinds outside the list are kept as is.
func (inv Inventory) Normalize(kinds []EquipmentKind) Inventory {
	out := inv.Clone()
	for _, k := range kinds {
		if _, ok := out[k]; !ok {
			out[k] = 0
		}
	}
	return out
}

// Checkpoint is an immutable snapshot of balance, time and rate. The json
// names match the legacy users.json layout.
type Checkpoint struct {
	SnapshotGold      float64 `json:"last_checkpoint_gold"`
	SnapshotTimestamp int64   `json:"checkpoint_timestamp"`
	RatePerMinute     float64 `json:"total_mining_power"`
}

// PendingPayout is a payout owed to a player that has not been sent yet.
type PendingPayout struct {
	AmountGold float64 `json:"amountGold"`
	PayoutSOL  float64 `json:"payoutSol"`
	Lamports   uint64  `json:"lamports"`
	CreatedAt  int64   `json:"ts"`
	Attempts   int     `json:"attempts,omitempty"`
	LastError  string  `json:"lastError,omitempty"`
}

// Player is the persisted per-wallet game state.
type Player struct {
	Address   string    `json:"address"`
	Inventory Inventory `json:"inventory"`
	Checkpoint
	HasLand          bool            `json:"hasLand"`
	LandPurchaseDate *int64          `json:"landPurchaseDate"`
	LastActivity     int64           `json:"lastActivity"`
	PendingPayouts   []PendingPayout `json:"pendingPayouts,omitempty"`
}

// NewPlayer returns the zero state for an address seen for the first time.
func NewPlayer(address string, now int64) *Player {
	return &Player{
		Address:   address,
		Inventory: Inventory{},
		Checkpoint: Checkpoint{
			SnapshotTimestamp: now,
		},
		LastActivity: now,
	}
}

// Clone returns a deep copy, so a flow can build the next state without
// touching the stored one.
func (p *Player) Clone() *Player {
	out := *p
	out.Inventory = p.Inventory.Clone()
	if p.LandPurchaseDate != nil {
		d := *p.LandPurchaseDate
		out.LandPurchaseDate = &d
	}
	if p.PendingPayouts != nil {
		out.PendingPayouts = append([]PendingPayout(nil), p.PendingPayouts...)
	}
	return &out
}
