package service

import (
	"context"
	"errors"
	"testing"

	"gold_mining/internal/domain"
	"gold_mining/internal/game"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func succeedingDispatcher() *fakeDispatcher {
	return &fakeDispatcher{dispatch: func(to string, lamports uint64) (string, error) {
		return "payout-sig", nil
	}}
}

func failingDispatcher(err error) *fakeDispatcher {
	return &fakeDispatcher{dispatch: func(to string, lamports uint64) (string, error) {
		return "", err
	}}
}

// fundedEnv returns an env with one landed player holding gold.
func fundedEnv(t *testing.T, gold float64, dispatcher *fakeDispatcher) (*testEnv, string) {
	t.Helper()
	eco := testEconomy()
	eco.LandStartingGold = gold
	var env *testEnv
	if dispatcher == nil {
		env = newTestEnv(t, eco, nil)
	} else {
		env = newTestEnv(t, eco, dispatcher)
	}
	addr := newAddress(t)
	env.buyLand(t, addr)
	return env, addr
}

func TestSellImmediatePayout(t *testing.T) {
	d := succeedingDispatcher()
	env, addr := fundedEnv(t, 1000, d)

	res, err := env.payout.Sell(context.Background(), SellInput{Address: addr, AmountGold: 500})
	require.NoError(t, err)
	require.Equal(t, domain.PayoutStatusImmediate, res.Status)
	require.Equal(t, "payout-sig", res.Signature)
	require.Equal(t, 500.0, res.AmountGold)
	require.False(t, res.Clamped)
	require.Equal(t, uint64(500_000), res.Lamports)
	require.InDelta(t, 0.0005, res.PayoutSOL, 1e-12)
	require.InDelta(t, 500.0, res.NewGold, 1e-9)
	require.Equal(t, []uint64{500_000}, d.sentLamports())

	p := env.stored(t, addr)
	require.InDelta(t, 500.0, p.SnapshotGold, 1e-9)
	require.Empty(t, p.PendingPayouts)

	last := env.notifier.last()
	require.NotNil(t, last)
	require.InDelta(t, 500.0, last.Gold, 1e-9)
}

func TestSellAboveBalanceIsFlaggedAndRejected(t *testing.T) {
	d := succeedingDispatcher()
	env, addr := fundedEnv(t, 500, d)
	flags := testutil.ToFloat64(CheatFlags.WithLabelValues(domain.AuditActionSellExceeded))

	// clamped to 1% above the balance, then the fresh balance check fails
	_, err := env.payout.Sell(context.Background(), SellInput{Address: addr, AmountGold: 5000})
	ge := requireGameError(t, err, game.ErrInsufficientFunds, "")
	require.InDelta(t, 500.0, *ge.Balance, 1e-9)

	require.Equal(t, flags+1, testutil.ToFloat64(CheatFlags.WithLabelValues(domain.AuditActionSellExceeded)))
	require.InDelta(t, 500.0, env.stored(t, addr).SnapshotGold, 1e-9)
	require.Empty(t, d.sentLamports())
}

func TestSellInventoryMismatch(t *testing.T) {
	env, addr := fundedEnv(t, 1000, succeedingDispatcher())
	ctx := context.Background()

	_, err := env.mining.ConfirmEquipmentPurchase(ctx, addr, "silver", testSignature(9), 3)
	require.NoError(t, err)
	flags := testutil.ToFloat64(CheatFlags.WithLabelValues(domain.AuditActionInventoryDesync))

	_, err = env.payout.Sell(ctx, SellInput{
		Address:         addr,
		AmountGold:      100,
		ClientInventory: domain.Inventory{domain.KindSilver: 5},
	})
	ge := requireGameError(t, err, game.ErrInventoryDesync, "")
	require.Equal(t, int64(3), ge.Inventory[domain.KindSilver])
	require.Equal(t, flags+1, testutil.ToFloat64(CheatFlags.WithLabelValues(domain.AuditActionInventoryDesync)))

	require.InDelta(t, 1000.0, env.stored(t, addr).SnapshotGold, 1e-9)

	res, err := env.payout.Sell(ctx, SellInput{
		Address:         addr,
		AmountGold:      100,
		ClientInventory: domain.Inventory{domain.KindSilver: 3},
	})
	require.NoError(t, err)
	require.InDelta(t, 900.0, res.NewGold, 1e-9)
}

func TestSellClientGoldPlausibility(t *testing.T) {
	env, addr := fundedEnv(t, 1000, succeedingDispatcher())
	ctx := context.Background()

	claimed := 2000.0
	_, err := env.payout.Sell(ctx, SellInput{Address: addr, AmountGold: 100, ClientGold: &claimed})
	ge := requireGameError(t, err, game.ErrValidation, game.ReasonGoldClaim)
	require.InDelta(t, 1000.0, *ge.Balance, 1e-9)

	claimed = 1400
	res, err := env.payout.Sell(ctx, SellInput{Address: addr, AmountGold: 100, ClientGold: &claimed})
	require.NoError(t, err)
	require.Equal(t, domain.PayoutStatusImmediate, res.Status)
}

func TestSellDispatchFailureQueuesPayout(t *testing.T) {
	d := failingDispatcher(errors.New("rpc unavailable"))
	env, addr := fundedEnv(t, 1000, d)
	ctx := context.Background()

	res, err := env.payout.Sell(ctx, SellInput{Address: addr, AmountGold: 300})
	require.NoError(t, err)
	require.Equal(t, domain.PayoutStatusPending, res.Status)
	require.Empty(t, res.Signature)
	require.InDelta(t, 700.0, res.NewGold, 1e-9)

	p := env.stored(t, addr)
	require.InDelta(t, 700.0, p.SnapshotGold, 1e-9)
	require.Len(t, p.PendingPayouts, 1)
	pp := p.PendingPayouts[0]
	assert.Equal(t, 300.0, pp.AmountGold)
	assert.Equal(t, uint64(300_000), pp.Lamports)
	assert.Equal(t, 1, pp.Attempts)
	assert.Equal(t, "rpc unavailable", pp.LastError)
	assert.Equal(t, testStart.Unix(), pp.CreatedAt)

	// still failing: the payout stays queued with another attempt recorded
	report, err := env.payout.ReconcilePending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 0, report.Paid)
	p = env.stored(t, addr)
	require.Len(t, p.PendingPayouts, 1)
	require.Equal(t, 2, p.PendingPayouts[0].Attempts)

	d.setDispatch(func(to string, lamports uint64) (string, error) {
		assert.Equal(t, addr, to)
		return "late-sig", nil
	})
	report, err = env.payout.ReconcilePending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Players)
	require.Equal(t, 1, report.Paid)
	require.Equal(t, 0, report.Failed)
	require.Equal(t, []uint64{300_000}, d.sentLamports())

	p = env.stored(t, addr)
	require.Empty(t, p.PendingPayouts)
	require.InDelta(t, 700.0, p.SnapshotGold, 1e-9)
}

func TestSellWithoutDispatcherRecordsPending(t *testing.T) {
	env, addr := fundedEnv(t, 1000, nil)
	ctx := context.Background()

	res, err := env.payout.Sell(ctx, SellInput{Address: addr, AmountGold: 250})
	require.NoError(t, err)
	require.Equal(t, domain.PayoutStatusPending, res.Status)

	p := env.stored(t, addr)
	require.Len(t, p.PendingPayouts, 1)
	require.Zero(t, p.PendingPayouts[0].Attempts)

	report, err := env.payout.ReconcilePending(ctx)
	require.NoError(t, err)
	require.Zero(t, report.Processed)
	require.Len(t, env.stored(t, addr).PendingPayouts, 1)

	accounts, err := env.payout.PendingPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, addr, accounts[0].Address)
	require.InDelta(t, 0.00025, accounts[0].TotalSOL, 1e-12)
}

func TestReconcileLegacyPayoutWithoutLamports(t *testing.T) {
	d := succeedingDispatcher()
	env := newTestEnv(t, testEconomy(), d)
	ctx := context.Background()
	addr := newAddress(t)

	p := env.stored(t, addr)
	p.PendingPayouts = []domain.PendingPayout{
		{AmountGold: 100, PayoutSOL: 0.0001, CreatedAt: 1},
		{AmountGold: 200, PayoutSOL: 0.0002, Lamports: 200_000, CreatedAt: 2},
	}
	require.NoError(t, env.store.PutPlayer(ctx, addr, p))

	report, err := env.payout.ReconcilePending(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Paid)
	require.Equal(t, []uint64{100_000, 200_000}, d.sentLamports())
	require.Empty(t, env.stored(t, addr).PendingPayouts)
}

func TestReconcilePartialFailure(t *testing.T) {
	calls := 0
	d := &fakeDispatcher{}
	d.dispatch = func(to string, lamports uint64) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("blockhash expired")
		}
		return "ok", nil
	}
	env := newTestEnv(t, testEconomy(), d)
	ctx := context.Background()
	addr := newAddress(t)

	p := env.stored(t, addr)
	p.PendingPayouts = []domain.PendingPayout{
		{AmountGold: 100, PayoutSOL: 0.0001, Lamports: 100_000, CreatedAt: 1},
		{AmountGold: 200, PayoutSOL: 0.0002, Lamports: 200_000, CreatedAt: 2},
	}
	require.NoError(t, env.store.PutPlayer(ctx, addr, p))

	report, err := env.payout.ReconcilePending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Paid)
	require.Equal(t, 1, report.Failed)

	left := env.stored(t, addr).PendingPayouts
	require.Len(t, left, 1)
	require.Equal(t, 100.0, left[0].AmountGold)
	require.Equal(t, 1, left[0].Attempts)
	require.Equal(t, "blockhash expired", left[0].LastError)
}
