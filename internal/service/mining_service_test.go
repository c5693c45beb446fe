package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gold_mining/internal/chain"
	"gold_mining/internal/domain"
	"gold_mining/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiningEndToEnd(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)
	ctx := context.Background()
	addr := newAddress(t)

	view, err := env.mining.Status(ctx, addr)
	require.NoError(t, err)
	require.False(t, view.HasLand)
	require.Zero(t, view.Gold)
	require.Zero(t, view.TotalRate)

	env.buyLand(t, addr)

	res, err := env.mining.ConfirmEquipmentPurchase(ctx, addr, "silver", testSignature(1), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Inventory[domain.KindSilver])
	require.InDelta(t, 1.0/60, res.TotalRate, 1e-12)
	require.Equal(t, 1.0, res.Checkpoint.TotalMiningPower)

	env.clock.Advance(120 * time.Second)

	view, err = env.mining.Status(ctx, addr)
	require.NoError(t, err)
	require.InDelta(t, 2.0, view.Gold, 1e-9)

	_, err = env.payout.Sell(ctx, SellInput{Address: addr, AmountGold: 1})
	requireGameError(t, err, game.ErrValidation, game.ReasonBelowMinimum)

	_, err = env.payout.Sell(ctx, SellInput{Address: addr, AmountGold: 0})
	requireGameError(t, err, game.ErrValidation, game.ReasonBelowMinimum)

	// rejected sells leave the ledger alone
	p := env.stored(t, addr)
	assert.InDelta(t, 2.0, game.CurrentGold(p.Checkpoint, env.clock.Now().Unix()), 1e-9)
	assert.Empty(t, p.PendingPayouts)
}

func TestStatusRejectsBadAddress(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)
	ctx := context.Background()

	_, err := env.mining.Status(ctx, "")
	requireGameError(t, err, game.ErrValidation, game.ReasonMissingAddress)

	_, err = env.mining.Status(ctx, "not-a-wallet")
	requireGameError(t, err, game.ErrValidation, game.ReasonBadAddress)

	_, err = env.mining.LandStatus(ctx, "  ")
	requireGameError(t, err, game.ErrValidation, game.ReasonMissingAddress)
}

func TestStatusTouchesLastActivity(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)
	ctx := context.Background()
	addr := newAddress(t)

	_, err := env.mining.Status(ctx, addr)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.mining.Status(ctx, addr)
	require.NoError(t, err)

	require.Equal(t, testStart.Add(time.Minute).Unix(), env.stored(t, addr).LastActivity)
}

func TestConfirmLandPurchaseIsIdempotent(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)
	ctx := context.Background()
	addr := newAddress(t)

	res, err := env.mining.ConfirmLandPurchase(ctx, addr, testSignature(1))
	require.NoError(t, err)
	require.True(t, res.HasLand)
	require.NotNil(t, res.LandPurchaseDate)
	require.Equal(t, testStart.Unix(), *res.LandPurchaseDate)
	require.Equal(t, chain.StatusConfirmed, res.PaymentStatus)

	env.clock.Advance(time.Hour)
	_, err = env.mining.ConfirmLandPurchase(ctx, addr, testSignature(2))
	requireGameError(t, err, game.ErrAlreadyOwns, "")

	p := env.stored(t, addr)
	require.True(t, p.HasLand)
	require.Equal(t, testStart.Unix(), *p.LandPurchaseDate)
	require.Equal(t, 1, env.checker.callCount())

	status, err := env.mining.LandStatus(ctx, addr)
	require.NoError(t, err)
	require.True(t, status.HasLand)
}

func TestLandStartingGold(t *testing.T) {
	eco := testEconomy()
	eco.LandStartingGold = 250
	env := newTestEnv(t, eco, nil)
	addr := newAddress(t)

	env.buyLand(t, addr)

	p := env.stored(t, addr)
	require.Equal(t, 250.0, p.SnapshotGold)
	require.Equal(t, testStart.Unix(), p.SnapshotTimestamp)
}

func TestEquipmentRequiresLand(t *testing.T) {
	eco := testEconomy()
	eco.LandStartingGold = 1000
	env := newTestEnv(t, eco, nil)
	ctx := context.Background()
	addr := newAddress(t)

	_, err := env.mining.ConfirmEquipmentPurchase(ctx, addr, "silver", testSignature(1), 1)
	requireGameError(t, err, game.ErrValidation, game.ReasonLandRequired)

	_, err = env.mining.BuyWithGold(ctx, addr, "silver", 100)
	requireGameError(t, err, game.ErrValidation, game.ReasonLandRequired)

	require.Zero(t, env.stored(t, addr).Inventory[domain.KindSilver])
}

func TestEquipmentWithoutLandGate(t *testing.T) {
	eco := testEconomy()
	eco.RequireLand = false
	env := newTestEnv(t, eco, nil)
	addr := newAddress(t)

	res, err := env.mining.ConfirmEquipmentPurchase(context.Background(), addr, "gold", testSignature(1), 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Inventory[domain.KindGold])
	require.Equal(t, 20.0, res.Checkpoint.TotalMiningPower)
}

func TestConfirmEquipmentPurchaseValidation(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)
	ctx := context.Background()
	addr := newAddress(t)
	env.buyLand(t, addr)

	_, err := env.mining.ConfirmEquipmentPurchase(ctx, addr, "obsidian", testSignature(1), 1)
	requireGameError(t, err, game.ErrValidation, game.ReasonUnknownKind)

	_, err = env.mining.ConfirmEquipmentPurchase(ctx, addr, "silver", "short", 1)
	requireGameError(t, err, game.ErrValidation, game.ReasonBadSignature)

	res, err := env.mining.ConfirmEquipmentPurchase(ctx, addr, "silver", testSignature(1), 5000)
	require.NoError(t, err)
	require.Equal(t, int64(game.MaxPurchaseQuantity), res.Inventory[domain.KindSilver])

	res, err = env.mining.ConfirmEquipmentPurchase(ctx, addr, "diamond", testSignature(2), 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Inventory[domain.KindDiamond])
}

func TestPurchasePreservesAccruedGold(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)
	ctx := context.Background()
	addr := newAddress(t)
	env.buyLand(t, addr)

	_, err := env.mining.ConfirmEquipmentPurchase(ctx, addr, "gold", testSignature(1), 1)
	require.NoError(t, err)
	env.clock.Advance(10 * time.Minute)

	before, err := env.mining.Status(ctx, addr)
	require.NoError(t, err)
	require.InDelta(t, 100.0, before.Gold, 1e-9)

	after, err := env.mining.ConfirmEquipmentPurchase(ctx, addr, "diamond", testSignature(2), 1)
	require.NoError(t, err)
	require.InDelta(t, before.Gold, after.Gold, 1e-9)
	require.Equal(t, 110.0, after.Checkpoint.TotalMiningPower)

	env.clock.Advance(time.Minute)
	view, err := env.mining.Status(ctx, addr)
	require.NoError(t, err)
	require.InDelta(t, 210.0, view.Gold, 1e-9)
}

func TestBuyWithGold(t *testing.T) {
	eco := testEconomy()
	eco.LandStartingGold = 150
	env := newTestEnv(t, eco, nil)
	ctx := context.Background()
	addr := newAddress(t)
	env.buyLand(t, addr)

	view, err := env.mining.BuyWithGold(ctx, addr, "silver", 100)
	require.NoError(t, err)
	require.InDelta(t, 50.0, view.Gold, 1e-9)
	require.Equal(t, int64(1), view.Inventory[domain.KindSilver])
	require.Equal(t, 1.0, view.Checkpoint.TotalMiningPower)

	_, err = env.mining.BuyWithGold(ctx, addr, "silver", 99)
	ge := requireGameError(t, err, game.ErrValidation, game.ReasonPriceMismatch)
	require.NotNil(t, ge.Price)
	require.Equal(t, 100.0, *ge.Price)

	_, err = env.mining.BuyWithGold(ctx, addr, "silver", 100)
	ge = requireGameError(t, err, game.ErrInsufficientFunds, "")
	require.InDelta(t, 50.0, *ge.Balance, 1e-9)

	_, err = env.mining.BuyWithGold(ctx, addr, "silver", -1)
	requireGameError(t, err, game.ErrValidation, game.ReasonBadAmount)

	_, err = env.mining.BuyWithGold(ctx, addr, "bogus", 100)
	requireGameError(t, err, game.ErrValidation, game.ReasonUnknownKind)

	p := env.stored(t, addr)
	require.Equal(t, int64(1), p.Inventory[domain.KindSilver])
	require.InDelta(t, 50.0, p.SnapshotGold, 1e-9)
}

func TestBuyWithGoldConcurrent(t *testing.T) {
	eco := testEconomy()
	eco.LandStartingGold = 1000
	env := newTestEnv(t, eco, nil)
	ctx := context.Background()
	addr := newAddress(t)
	env.buyLand(t, addr)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		otherErrs []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.mining.BuyWithGold(ctx, addr, "silver", 100)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case !errors.Is(err, game.ErrInsufficientFunds):
				otherErrs = append(otherErrs, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, otherErrs)
	require.Equal(t, 10, succeeded)

	p := env.stored(t, addr)
	require.Equal(t, int64(10), p.Inventory[domain.KindSilver])
	require.InDelta(t, 0.0, p.SnapshotGold, 1e-9)
	require.GreaterOrEqual(t, p.SnapshotGold, 0.0)
}

func TestSignaturePosture(t *testing.T) {
	rpcDown := errors.New("rpc timeout")
	failed := errors.Join(chain.ErrTransactionFailed, errors.New("InstructionError"))

	tests := []struct {
		name       string
		strict     bool
		status     chain.Status
		err        error
		wantKind   error
		wantStatus chain.Status
	}{
		{name: "strict confirmed", strict: true, status: chain.StatusConfirmed, wantStatus: chain.StatusConfirmed},
		{name: "strict rpc error", strict: true, status: chain.StatusUnverified, err: rpcDown, wantKind: game.ErrUnverifiableSignature},
		{name: "strict unknown", strict: true, status: chain.StatusUnknown, wantKind: game.ErrUnverifiableSignature},
		{name: "strict processed", strict: true, status: chain.StatusProcessed, wantKind: game.ErrUnverifiableSignature},
		{name: "strict failed tx", strict: true, status: chain.StatusUnknown, err: failed, wantKind: game.ErrValidation},
		{name: "permissive rpc error", status: chain.StatusUnverified, err: rpcDown, wantStatus: chain.StatusUnverified},
		{name: "permissive unknown", status: chain.StatusUnknown, wantStatus: chain.StatusUnverified},
		{name: "permissive processed", status: chain.StatusProcessed, wantStatus: chain.StatusProcessed},
		{name: "permissive failed tx", status: chain.StatusUnknown, err: failed, wantKind: game.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eco := testEconomy()
			eco.StrictSignatures = tt.strict
			env := newTestEnv(t, eco, nil)
			env.checker.status, env.checker.err = tt.status, tt.err
			addr := newAddress(t)

			res, err := env.mining.ConfirmLandPurchase(context.Background(), addr, testSignature(7))
			if tt.wantKind != nil {
				require.ErrorIs(t, err, tt.wantKind)
				require.False(t, env.stored(t, addr).HasLand)
				return
			}
			require.NoError(t, err)
			require.True(t, res.HasLand)
			require.Equal(t, tt.wantStatus, res.PaymentStatus)
		})
	}
}

func TestNoChainClientIsUnverifiable(t *testing.T) {
	eco := testEconomy()
	eco.StrictSignatures = true
	env := newTestEnv(t, eco, nil)
	mining := NewMiningService(env.ledger, nil, nil)

	_, err := mining.ConfirmLandPurchase(context.Background(), newAddress(t), testSignature(3))
	require.ErrorIs(t, err, game.ErrUnverifiableSignature)
}

func TestBuildPurchaseTransactions(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)
	ctx := context.Background()
	addr := newAddress(t)

	tx, err := env.mining.BuildEquipmentPurchaseTx(ctx, addr, "silver", 3)
	require.NoError(t, err)
	require.Equal(t, uint64(3_000_000), tx.Lamports)
	require.Equal(t, addr, env.builder.from)
	require.Equal(t, testEconomy().Treasury, env.builder.to)
	require.NotEmpty(t, tx.Transaction)

	tx, err = env.mining.BuildLandPurchaseTx(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000_000), tx.Lamports)

	_, err = env.mining.BuildEquipmentPurchaseTx(ctx, addr, "nope", 1)
	requireGameError(t, err, game.ErrValidation, game.ReasonUnknownKind)

	eco := testEconomy()
	eco.Treasury = ""
	noTreasury := newTestEnv(t, eco, nil)
	_, err = noTreasury.mining.BuildLandPurchaseTx(ctx, addr)
	require.ErrorIs(t, err, chain.ErrNoTreasury)
}

func TestGameConfig(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)

	cfg := env.mining.GameConfig()
	require.Len(t, cfg.Pickaxes, 4)
	require.Equal(t, domain.KindSilver, cfg.Pickaxes[0].Kind)
	require.Equal(t, 5.0, cfg.MinSellGold)
	require.Equal(t, 0.01, cfg.LandCostSOL)
	require.Equal(t, testEconomy().Treasury, cfg.Treasury)
}

func TestNotifierSeesCommittedState(t *testing.T) {
	env := newTestEnv(t, testEconomy(), nil)
	addr := newAddress(t)

	env.buyLand(t, addr)

	last := env.notifier.last()
	require.NotNil(t, last)
	require.Equal(t, addr, last.Address)
	require.True(t, last.HasLand)
}
