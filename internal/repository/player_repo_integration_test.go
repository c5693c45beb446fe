package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"gold_mining/internal/db"
	"gold_mining/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// Integration-style test: runs only if DATABASE_URL env is set.
func TestPlayerRepositoryIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	require.NoError(t, db.MigrateUp(dsn, slog.Default()))

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	repo := NewPlayerRepository(pool, testKinds, clock)
	addr := fmt.Sprintf("it-%d", time.Now().UnixNano())

	p, err := repo.GetPlayer(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000), p.SnapshotTimestamp)
	require.Len(t, p.Inventory, len(testKinds))

	p.Inventory[domain.KindDiamond] = 4
	p.Checkpoint = domain.Checkpoint{SnapshotGold: 77, SnapshotTimestamp: 1_700_000_100, RatePerMinute: 400}
	p.PendingPayouts = []domain.PendingPayout{
		{AmountGold: 10, PayoutSOL: 0.00001, Lamports: 10000, CreatedAt: 1},
		{AmountGold: 20, PayoutSOL: 0.00002, Lamports: 20000, CreatedAt: 2, Attempts: 1, LastError: "rpc down"},
	}
	require.NoError(t, repo.PutPlayer(ctx, addr, p))

	got, err := repo.GetPlayer(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, int64(4), got.Inventory[domain.KindDiamond])
	require.Equal(t, p.Checkpoint, got.Checkpoint)
	require.Equal(t, p.PendingPayouts, got.PendingPayouts)

	addrs, err := repo.ListPendingPayoutAddresses(ctx)
	require.NoError(t, err)
	require.Contains(t, addrs, addr)

	got.PendingPayouts = got.PendingPayouts[1:]
	require.NoError(t, repo.PutPlayer(ctx, addr, got))
	again, err := repo.GetPlayer(ctx, addr)
	require.NoError(t, err)
	require.Len(t, again.PendingPayouts, 1)
	require.Equal(t, 20.0, again.PendingPayouts[0].AmountGold)

	imported, err := repo.Import(ctx, domain.NewPlayer(addr, 0))
	require.NoError(t, err)
	require.False(t, imported)
}
