package service

import (
	"context"
	"strings"

	"gold_mining/internal/chain"
	"gold_mining/internal/domain"
	"gold_mining/internal/game"
	"gold_mining/internal/lock"
	"gold_mining/internal/repository"

	"github.com/jonboulle/clockwork"
)

// Notifier is told about every committed change to a player.
type Notifier interface {
	Notify(address string, view *PlayerView)
}

// Economy holds the tunable game rules shared by the services.
type Economy struct {
	Catalog          *game.Catalog
	Sell             game.SellPolicy
	GoldPriceSOL     float64
	LandCostSOL      float64
	LandStartingGold float64
	RequireLand      bool
	StrictSignatures bool
	Treasury         string
	ClusterURL       string
}

// Ledger runs read-checkpoint-mutate-write sequences for one player at a
// time. Mining and payout services share one Ledger so their mutations
// serialize against each other.
type Ledger struct {
	store    repository.PlayerStore
	locker   lock.Locker
	clock    clockwork.Clock
	economy  Economy
	audit    *AuditService
	notifier Notifier
}

func NewLedger(store repository.PlayerStore, locker lock.Locker, clock clockwork.Clock, economy Economy, audit *AuditService) *Ledger {
	return &Ledger{
		store:   store,
		locker:  locker,
		clock:   clock,
		economy: economy,
		audit:   audit,
	}
}

// SetNotifier registers the receiver of post-commit updates.
func (l *Ledger) SetNotifier(n Notifier) {
	l.notifier = n
}

func (l *Ledger) Economy() Economy {
	return l.economy
}

func (l *Ledger) now() int64 {
	return l.clock.Now().Unix()
}

func (l *Ledger) lockPlayer(ctx context.Context, address string) (func(), error) {
	unlock, err := l.locker.Lock(ctx, address)
	if err != nil {
		return nil, game.Persistence(err)
	}
	return unlock, nil
}

func (l *Ledger) load(ctx context.Context, address string) (*domain.Player, error) {
	p, err := l.store.GetPlayer(ctx, address)
	if err != nil {
		return nil, game.Persistence(err)
	}
	return p.Clone(), nil
}

func (l *Ledger) commit(ctx context.Context, p *domain.Player) error {
	if err := l.store.PutPlayer(ctx, p.Address, p); err != nil {
		return game.Persistence(err)
	}
	return nil
}

// mutate loads the player under its lock, lets fn change a private copy and
// writes it back in one put. Nothing is written if fn fails.
func (l *Ledger) mutate(ctx context.Context, address string, fn func(p *domain.Player, now int64) error) (*PlayerView, error) {
	unlock, err := l.lockPlayer(ctx, address)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := l.load(ctx, address)
	if err != nil {
		return nil, err
	}
	now := l.now()
	if err := fn(p, now); err != nil {
		return nil, err
	}
	if err := l.commit(ctx, p); err != nil {
		return nil, err
	}

	view := l.view(p, now)
	l.publish(view)
	return view, nil
}

func (l *Ledger) publish(view *PlayerView) {
	if l.notifier != nil {
		l.notifier.Notify(view.Address, view)
	}
}

// PlayerView is the client facing snapshot of a player at one instant.
type PlayerView struct {
	Address          string           `json:"address"`
	Inventory        domain.Inventory `json:"inventory"`
	TotalRate        float64          `json:"totalRate"`
	Gold             float64          `json:"gold"`
	HasLand          bool             `json:"hasLand"`
	LandPurchaseDate *int64           `json:"landPurchaseDate"`
	Checkpoint       CheckpointView   `json:"checkpoint"`
	PendingPayouts   int              `json:"pendingPayouts"`
}

type CheckpointView struct {
	TotalMiningPower    float64 `json:"total_mining_power"`
	CheckpointTimestamp int64   `json:"checkpoint_timestamp"`
	LastCheckpointGold  float64 `json:"last_checkpoint_gold"`
}

func (l *Ledger) view(p *domain.Player, now int64) *PlayerView {
	return &PlayerView{
		Address:          p.Address,
		Inventory:        p.Inventory.Normalize(l.economy.Catalog.Kinds()),
		TotalRate:        game.ComputeRate(l.economy.Catalog, p.Inventory) / 60,
		Gold:             game.CurrentGold(p.Checkpoint, now),
		HasLand:          p.HasLand,
		LandPurchaseDate: p.LandPurchaseDate,
		Checkpoint: CheckpointView{
			TotalMiningPower:    p.RatePerMinute,
			CheckpointTimestamp: p.SnapshotTimestamp,
			LastCheckpointGold:  p.SnapshotGold,
		},
		PendingPayouts: len(p.PendingPayouts),
	}
}

func checkAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return game.Validation(game.ReasonMissingAddress, "address is required")
	}
	if err := chain.ValidateAddress(address); err != nil {
		return game.Validation(game.ReasonBadAddress, "invalid wallet address")
	}
	return nil
}
