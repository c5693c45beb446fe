package service

import (
	"context"
	"sync"

	"gold_mining/internal/chain"
	"gold_mining/internal/domain"
	"gold_mining/internal/game"
	"gold_mining/internal/logger"

	"golang.org/x/sync/errgroup"
)

// PayoutService turns gold back into SOL
type PayoutService struct {
	ledger      *Ledger
	dispatcher  chain.Dispatcher
	concurrency int
}

// NewPayoutService creates a payout service. With a nil dispatcher every
// sell is recorded as a pending payout.
func NewPayoutService(ledger *Ledger, dispatcher chain.Dispatcher, concurrency int) *PayoutService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PayoutService{ledger: ledger, dispatcher: dispatcher, concurrency: concurrency}
}

type SellInput struct {
	Address         string
	AmountGold      float64
	ClientGold      *float64
	ClientInventory domain.Inventory
}

type SellResult struct {
	Requested  float64             `json:"requested"`
	AmountGold float64             `json:"amountGold"`
	Clamped    bool                `json:"clamped"`
	PayoutSOL  float64             `json:"payoutSol"`
	Lamports   uint64              `json:"lamports"`
	NewGold    float64             `json:"newGold"`
	Status     domain.PayoutStatus `json:"status"`
	Signature  string              `json:"signature,omitempty"`
}

// Sell validates a cash-out, commits the debit and pays it out. A failed
// dispatch never undoes the debit; the payout is queued instead.
func (s *PayoutService) Sell(ctx context.Context, in SellInput) (*SellResult, error) {
	if err := checkAddress(in.Address); err != nil {
		return nil, err
	}
	eco := s.ledger.Economy()

	unlock, err := s.ledger.lockPlayer(ctx, in.Address)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.ledger.load(ctx, in.Address)
	if err != nil {
		return nil, err
	}

	verdict, err := game.ValidateSell(eco.Sell, eco.Catalog, p, game.SellRequest{
		Amount:          in.AmountGold,
		ClientGold:      in.ClientGold,
		ClientInventory: in.ClientInventory,
	}, s.ledger.now())
	if err != nil {
		s.flagRejected(ctx, in, err)
		return nil, err
	}
	if verdict.Exceeded {
		s.ledger.audit.LogCheat(ctx, in.Address, domain.AuditActionSellExceeded, map[string]interface{}{
			"requested":    verdict.Requested,
			"current_gold": verdict.CurrentGold,
			"allowed":      verdict.Allowed,
		})
	}

	// debit against a fresh reading, not the one validation saw
	now := s.ledger.now()
	debited, err := game.Debit(p.Checkpoint, verdict.Allowed, now)
	if err != nil {
		return nil, err
	}
	p.Checkpoint = debited
	p.LastActivity = now

	payoutSOL := verdict.Allowed * eco.GoldPriceSOL
	res := &SellResult{
		Requested:  verdict.Requested,
		AmountGold: verdict.Allowed,
		Clamped:    verdict.Clamped,
		PayoutSOL:  payoutSOL,
		Lamports:   chain.SOLToLamports(payoutSOL),
		NewGold:    debited.SnapshotGold,
	}
	pending := domain.PendingPayout{
		AmountGold: verdict.Allowed,
		PayoutSOL:  payoutSOL,
		Lamports:   res.Lamports,
		CreatedAt:  now,
	}

	// the owed payout is written in the same commit as the debit, so a
	// later failed write can never lose it
	if res.Lamports > 0 {
		p.PendingPayouts = append(p.PendingPayouts, pending)
	}
	if err := s.ledger.commit(ctx, p); err != nil {
		return nil, err
	}

	switch {
	case res.Lamports == 0:
		res.Status = domain.PayoutStatusImmediate

	case s.dispatcher == nil:
		res.Status = domain.PayoutStatusPending

	default:
		last := len(p.PendingPayouts) - 1
		// the debit is committed; the transfer must not die with the request
		sig, err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), in.Address, res.Lamports)
		if err != nil {
			logger.Warn("payout dispatch failed, queueing", "address", in.Address, "lamports", res.Lamports, "error", game.PayoutDispatch(err))
			p.PendingPayouts[last].Attempts = 1
			p.PendingPayouts[last].LastError = err.Error()
			if err := s.ledger.commit(ctx, p); err != nil {
				// the entry is already stored, only the attempt count is stale
				logger.Warn("failed to record payout attempt", "address", in.Address, "error", err)
			}
			res.Status = domain.PayoutStatusPending
			break
		}

		res.Status = domain.PayoutStatusImmediate
		res.Signature = sig
		p.PendingPayouts = p.PendingPayouts[:last]
		if err := s.ledger.commit(ctx, p); err != nil {
			// SOL already left the treasury; reconcile would send it again
			logger.Error("payout sent but pending entry not cleared", "address", in.Address, "signature", sig, "lamports", res.Lamports, "error", err)
		}
	}

	GoldSold.Add(verdict.Allowed)
	Payouts.WithLabelValues(string(res.Status)).Inc()

	action := domain.AuditActionPayoutSent
	if res.Status == domain.PayoutStatusPending {
		action = domain.AuditActionPayoutPending
	}
	s.ledger.audit.LogPayout(ctx, in.Address, action, verdict.Allowed, payoutSOL, map[string]interface{}{
		"requested": verdict.Requested,
		"clamped":   verdict.Clamped,
		"signature": res.Signature,
	})

	s.ledger.publish(s.ledger.view(p, now))
	return res, nil
}

func (s *PayoutService) flagRejected(ctx context.Context, in SellInput, err error) {
	e, ok := game.AsError(err)
	if !ok {
		return
	}
	switch {
	case e.Kind == game.ErrInventoryDesync:
		s.ledger.audit.LogCheat(ctx, in.Address, domain.AuditActionInventoryDesync, map[string]interface{}{
			"client_inventory": in.ClientInventory,
			"server_inventory": e.Inventory,
		})
	case e.Reason == game.ReasonGoldClaim:
		details := map[string]interface{}{"requested": in.AmountGold}
		if in.ClientGold != nil {
			details["client_gold"] = *in.ClientGold
		}
		if e.Balance != nil {
			details["current_gold"] = *e.Balance
		}
		s.ledger.audit.LogCheat(ctx, in.Address, domain.AuditActionGoldClaim, details)
	}
}

type ReconcileReport struct {
	Players   int `json:"players"`
	Processed int `json:"processed"`
	Paid      int `json:"paid"`
	Failed    int `json:"failed"`
}

// ReconcilePending retries every queued payout. Players are handled
// concurrently, each under its own lock.
func (s *PayoutService) ReconcilePending(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	if s.dispatcher == nil {
		logger.Debug("no payout dispatcher configured, skipping reconciliation")
		return report, nil
	}

	addrs, err := s.ledger.store.ListPendingPayoutAddresses(ctx)
	if err != nil {
		return nil, game.Persistence(err)
	}
	report.Players = len(addrs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, addr := range addrs {
		addr := addr
		g.Go(func() error {
			paid, failed, err := s.reconcilePlayer(gctx, addr)
			mu.Lock()
			report.Processed += paid + failed
			report.Paid += paid
			report.Failed += failed
			mu.Unlock()
			if err != nil {
				logger.Error("reconcile player failed", "address", addr, "error", err)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	if remaining, err := s.ledger.store.ListPendingPayoutAddresses(ctx); err == nil {
		PendingPayoutPlayers.Set(float64(len(remaining)))
	}
	logger.Info("reconciliation finished", "players", report.Players, "paid", report.Paid, "failed", report.Failed)
	return report, nil
}

func (s *PayoutService) reconcilePlayer(ctx context.Context, address string) (paid, failed int, err error) {
	unlock, err := s.ledger.lockPlayer(ctx, address)
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	p, err := s.ledger.load(ctx, address)
	if err != nil {
		return 0, 0, err
	}

	queue := p.PendingPayouts
	for i := 0; i < len(queue); i++ {
		pp := queue[i]
		lamports := pp.Lamports
		if lamports == 0 {
			// written before lamports were stored
			lamports = chain.SOLToLamports(pp.PayoutSOL)
		}

		var sig string
		var dispatchErr error
		if lamports > 0 {
			sig, dispatchErr = s.dispatcher.Dispatch(ctx, address, lamports)
		}
		if dispatchErr != nil {
			failed++
			queue[i].Attempts++
			queue[i].LastError = dispatchErr.Error()
			Payouts.WithLabelValues("retry_failed").Inc()
			continue
		}

		// drop it and commit straight away so a later failure cannot
		// cause the same transfer to be sent twice
		queue = append(queue[:i], queue[i+1:]...)
		i--
		p.PendingPayouts = queue
		if err := s.ledger.commit(ctx, p); err != nil {
			return paid, failed, err
		}
		paid++
		Payouts.WithLabelValues("retried").Inc()
		s.ledger.audit.LogPayout(ctx, address, domain.AuditActionPayoutRetried, pp.AmountGold, pp.PayoutSOL, map[string]interface{}{
			"signature": sig,
			"attempts":  pp.Attempts + 1,
		})
	}

	if failed > 0 {
		p.PendingPayouts = queue
		if err := s.ledger.commit(ctx, p); err != nil {
			return paid, failed, err
		}
	}
	if paid > 0 {
		s.ledger.publish(s.ledger.view(p, s.ledger.now()))
	}
	return paid, failed, nil
}

// PendingAccount lists what is still owed to one player.
type PendingAccount struct {
	Address  string                 `json:"address"`
	Payouts  []domain.PendingPayout `json:"payouts"`
	TotalSOL float64                `json:"totalSol"`
}

func (s *PayoutService) PendingPayouts(ctx context.Context) ([]PendingAccount, error) {
	addrs, err := s.ledger.store.ListPendingPayoutAddresses(ctx)
	if err != nil {
		return nil, game.Persistence(err)
	}

	out := make([]PendingAccount, 0, len(addrs))
	for _, addr := range addrs {
		p, err := s.ledger.load(ctx, addr)
		if err != nil {
			return nil, err
		}
		acc := PendingAccount{Address: addr, Payouts: p.PendingPayouts}
		for _, pp := range p.PendingPayouts {
			acc.TotalSOL += pp.PayoutSOL
		}
		out = append(out, acc)
	}
	return out, nil
}
