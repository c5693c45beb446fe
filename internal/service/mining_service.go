package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gold_mining/internal/chain"
	"gold_mining/internal/domain"
	"gold_mining/internal/game"
	"gold_mining/internal/logger"
)

// MiningService handles status reads and land/equipment purchases
type MiningService struct {
	ledger  *Ledger
	checker chain.StatusChecker
	builder chain.TxBuilder
}

// NewMiningService creates a new mining service. checker and builder may be
// nil when no cluster is reachable; signatures are then unverifiable.
func NewMiningService(ledger *Ledger, checker chain.StatusChecker, builder chain.TxBuilder) *MiningService {
	return &MiningService{ledger: ledger, checker: checker, builder: builder}
}

// PurchaseResult is a committed purchase together with the advisory chain
// status of the payment that funded it.
type PurchaseResult struct {
	PlayerView
	PaymentStatus chain.Status `json:"paymentStatus,omitempty"`
}

type LandStatus struct {
	HasLand          bool   `json:"hasLand"`
	LandPurchaseDate *int64 `json:"landPurchaseDate"`
}

type GameConfig struct {
	Pickaxes     []game.Equipment `json:"pickaxes"`
	GoldPriceSOL float64          `json:"goldPriceSol"`
	MinSellGold  float64          `json:"minSellGold"`
	LandCostSOL  float64          `json:"landCostSol"`
	ClusterURL   string           `json:"clusterUrl"`
	Treasury     string           `json:"treasury"`
}

// PurchaseTx is an unsigned transfer to the treasury
type PurchaseTx struct {
	Transaction string  `json:"transaction"`
	Lamports    uint64  `json:"lamports"`
	CostSOL     float64 `json:"costSol"`
	Treasury    string  `json:"treasury"`
}

// Status returns the player's current state and records the activity.
func (s *MiningService) Status(ctx context.Context, address string) (*PlayerView, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	return s.ledger.mutate(ctx, address, func(p *domain.Player, now int64) error {
		p.LastActivity = now
		return nil
	})
}

func (s *MiningService) LandStatus(ctx context.Context, address string) (*LandStatus, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	p, err := s.ledger.load(ctx, address)
	if err != nil {
		return nil, err
	}
	return &LandStatus{HasLand: p.HasLand, LandPurchaseDate: p.LandPurchaseDate}, nil
}

func (s *MiningService) GameConfig() *GameConfig {
	eco := s.ledger.Economy()
	return &GameConfig{
		Pickaxes:     eco.Catalog.Items(),
		GoldPriceSOL: eco.GoldPriceSOL,
		MinSellGold:  eco.Sell.MinSellGold,
		LandCostSOL:  eco.LandCostSOL,
		ClusterURL:   eco.ClusterURL,
		Treasury:     eco.Treasury,
	}
}

func (s *MiningService) lookup(kind string) (game.Equipment, error) {
	item, ok := s.ledger.Economy().Catalog.Lookup(domain.EquipmentKind(kind))
	if !ok {
		return game.Equipment{}, game.Validation(game.ReasonUnknownKind, fmt.Sprintf("unknown pickaxe type %q", kind))
	}
	return item, nil
}

func (s *MiningService) checkLand(p *domain.Player) error {
	if s.ledger.Economy().RequireLand && !p.HasLand {
		return game.Validation(game.ReasonLandRequired, "land must be purchased first")
	}
	return nil
}

// BuyWithGold spends gold on one pickaxe. cost must equal the catalog
// price; the balance is debited before the rate changes.
func (s *MiningService) BuyWithGold(ctx context.Context, address, kind string, cost float64) (*PlayerView, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	item, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) || cost <= 0 {
		return nil, game.Validation(game.ReasonBadAmount, "goldCost must be positive")
	}
	if item.GoldCost <= 0 || cost != item.GoldCost {
		e := game.Validation(game.ReasonPriceMismatch, "goldCost does not match the current price")
		price := item.GoldCost
		e.Price = &price
		return nil, e
	}

	view, err := s.ledger.mutate(ctx, address, func(p *domain.Player, now int64) error {
		if err := s.checkLand(p); err != nil {
			return err
		}
		debited, err := game.Debit(p.Checkpoint, cost, now)
		if err != nil {
			return err
		}
		p.Checkpoint = debited
		game.ApplyInventoryChange(s.ledger.Economy().Catalog, p, now, func(inv domain.Inventory) {
			inv[item.Kind]++
		})
		p.LastActivity = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	Purchases.WithLabelValues(string(item.Kind), "gold").Inc()
	s.ledger.audit.LogPurchase(ctx, address, domain.AuditActionBuyWithGold, map[string]interface{}{
		"kind":      item.Kind,
		"gold_cost": cost,
		"new_gold":  view.Gold,
	})
	return view, nil
}

// ConfirmEquipmentPurchase credits quantity pickaxes paid for by signature.
func (s *MiningService) ConfirmEquipmentPurchase(ctx context.Context, address, kind, signature string, quantity int64) (*PurchaseResult, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	item, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}
	qty := game.ClampQuantity(quantity)

	status, err := s.verifyPayment(ctx, address, signature)
	if err != nil {
		return nil, err
	}

	view, err := s.ledger.mutate(ctx, address, func(p *domain.Player, now int64) error {
		if err := s.checkLand(p); err != nil {
			return err
		}
		game.ApplyInventoryChange(s.ledger.Economy().Catalog, p, now, func(inv domain.Inventory) {
			inv[item.Kind] += qty
		})
		p.LastActivity = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	Purchases.WithLabelValues(string(item.Kind), "sol").Add(float64(qty))
	s.ledger.audit.LogPurchase(ctx, address, domain.AuditActionEquipmentPurchase, map[string]interface{}{
		"kind":      item.Kind,
		"quantity":  qty,
		"signature": signature,
		"status":    status,
	})
	return &PurchaseResult{PlayerView: *view, PaymentStatus: status}, nil
}

// ConfirmLandPurchase grants land once per player.
func (s *MiningService) ConfirmLandPurchase(ctx context.Context, address, signature string) (*PurchaseResult, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	if err := chain.ValidateSignature(signature); err != nil {
		return nil, game.Validation(game.ReasonBadSignature, "invalid signature format")
	}

	// skip the chain lookup for an obvious repeat; the locked check below
	// is the one that counts
	if p, err := s.ledger.load(ctx, address); err == nil && p.HasLand {
		return nil, game.AlreadyOwns("land already purchased")
	}

	status, err := s.verifyPayment(ctx, address, signature)
	if err != nil {
		return nil, err
	}

	eco := s.ledger.Economy()
	view, err := s.ledger.mutate(ctx, address, func(p *domain.Player, now int64) error {
		if p.HasLand {
			return game.AlreadyOwns("land already purchased")
		}
		date := now
		p.HasLand = true
		p.LandPurchaseDate = &date
		if eco.LandStartingGold > 0 {
			p.Checkpoint = game.Credit(p.Checkpoint, eco.LandStartingGold, now)
		}
		p.LastActivity = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	Purchases.WithLabelValues("land", "sol").Inc()
	s.ledger.audit.LogPurchase(ctx, address, domain.AuditActionLandPurchase, map[string]interface{}{
		"signature": signature,
		"status":    status,
	})
	return &PurchaseResult{PlayerView: *view, PaymentStatus: status}, nil
}

// verifyPayment checks signature format and asks the cluster about it.
// In permissive mode anything short of a failed transaction is accepted,
// downgraded to unverified when the cluster cannot vouch for it.
func (s *MiningService) verifyPayment(ctx context.Context, address, signature string) (chain.Status, error) {
	if err := chain.ValidateSignature(signature); err != nil {
		return "", game.Validation(game.ReasonBadSignature, "invalid signature format")
	}

	var (
		status chain.Status
		err    error
	)
	if s.checker == nil {
		status, err = chain.StatusUnverified, errors.New("no chain client configured")
	} else {
		status, err = s.checker.GetConfirmationStatus(ctx, signature)
	}

	switch {
	case errors.Is(err, chain.ErrTransactionFailed):
		return "", game.Validation(game.ReasonBadSignature, "transaction failed on chain")
	case errors.Is(err, chain.ErrInvalidSignature):
		return "", game.Validation(game.ReasonBadSignature, "invalid signature format")
	}

	if s.ledger.Economy().StrictSignatures {
		if err != nil {
			return "", game.Unverifiable(err)
		}
		if status != chain.StatusConfirmed {
			e := game.Unverifiable(fmt.Errorf("signature status is %s", status))
			e.Reason = game.ReasonNotConfirmed
			return "", e
		}
		return status, nil
	}

	if err != nil || status == chain.StatusUnknown || status == chain.StatusUnverified {
		logger.Warn("accepting unverified payment", "address", address, "signature", signature, "status", status, "error", err)
		details := map[string]interface{}{"signature": signature, "status": status}
		if err != nil {
			details["error"] = err.Error()
		}
		s.ledger.audit.LogPurchase(ctx, address, domain.AuditActionUnverifiedPayment, details)
		return chain.StatusUnverified, nil
	}
	return status, nil
}

// BuildEquipmentPurchaseTx prepares the payment for quantity pickaxes.
func (s *MiningService) BuildEquipmentPurchaseTx(ctx context.Context, address, kind string, quantity int64) (*PurchaseTx, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	item, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}
	return s.buildTx(ctx, address, item.CostSOL*float64(game.ClampQuantity(quantity)))
}

func (s *MiningService) BuildLandPurchaseTx(ctx context.Context, address string) (*PurchaseTx, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	return s.buildTx(ctx, address, s.ledger.Economy().LandCostSOL)
}

func (s *MiningService) buildTx(ctx context.Context, address string, costSOL float64) (*PurchaseTx, error) {
	treasury := s.ledger.Economy().Treasury
	if treasury == "" || s.builder == nil {
		return nil, chain.ErrNoTreasury
	}
	lamports := chain.SOLToLamports(costSOL)
	if lamports == 0 {
		return nil, game.Validation(game.ReasonBadAmount, "price is zero")
	}

	tx, err := s.builder.BuildTransfer(ctx, address, treasury, lamports)
	if err != nil {
		return nil, fmt.Errorf("build purchase transaction: %w", err)
	}
	return &PurchaseTx{Transaction: tx, Lamports: lamports, CostSOL: costSOL, Treasury: treasury}, nil
}
