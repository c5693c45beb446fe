package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gold_mining/internal/domain"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testKinds = []domain.EquipmentKind{domain.KindSilver, domain.KindGold, domain.KindDiamond, domain.KindNetherite}

func openTestStore(t *testing.T, path string, clock clockwork.Clock) *FileStore {
	t.Helper()
	s, err := OpenFileStore(path, testKinds, clock)
	require.NoError(t, err)
	return s
}

func TestFileStoreLazyCreate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	path := filepath.Join(t.TempDir(), "data", "users.json")
	s := openTestStore(t, path, clock)
	ctx := context.Background()

	p, err := s.GetPlayer(ctx, "wallet1")
	require.NoError(t, err)
	require.Equal(t, "wallet1", p.Address)
	require.False(t, p.HasLand)
	require.Equal(t, int64(1_700_000_000), p.SnapshotTimestamp)
	require.Zero(t, p.SnapshotGold)
	require.Zero(t, p.RatePerMinute)
	require.Len(t, p.Inventory, len(testKinds))

	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = s.GetPlayer(ctx, "  ")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestFileStorePutAndReload(t *testing.T) {
	clock := clockwork.NewFakeClock()
	path := filepath.Join(t.TempDir(), "users.json")
	s := openTestStore(t, path, clock)
	ctx := context.Background()

	p, err := s.GetPlayer(ctx, "wallet1")
	require.NoError(t, err)

	date := int64(123)
	p.HasLand = true
	p.LandPurchaseDate = &date
	p.Inventory[domain.KindGold] = 2
	p.Checkpoint = domain.Checkpoint{SnapshotGold: 12.5, SnapshotTimestamp: 200, RatePerMinute: 20}
	p.PendingPayouts = []domain.PendingPayout{{AmountGold: 100, PayoutSOL: 0.0001, Lamports: 100000, CreatedAt: 200}}
	require.NoError(t, s.PutPlayer(ctx, "wallet1", p))

	// the caller's copy is not aliased by the store
	p.Inventory[domain.KindGold] = 99

	reopened := openTestStore(t, path, clock)
	got, err := reopened.GetPlayer(ctx, "wallet1")
	require.NoError(t, err)
	require.True(t, got.HasLand)
	require.Equal(t, int64(123), *got.LandPurchaseDate)
	require.Equal(t, int64(2), got.Inventory[domain.KindGold])
	require.Equal(t, domain.Checkpoint{SnapshotGold: 12.5, SnapshotTimestamp: 200, RatePerMinute: 20}, got.Checkpoint)
	require.Len(t, got.PendingPayouts, 1)

	addrs, err := reopened.ListPendingPayoutAddresses(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"wallet1"}, addrs)
}

func TestFileStoreReadsLegacyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	legacy := `{
  "walletA": {
    "inventory": {"silver": 3},
    "total_mining_power": 3,
    "checkpoint_timestamp": 1000,
    "last_checkpoint_gold": 40.5,
    "lastActivity": 1000,
    "hasLand": true,
    "landPurchaseDate": 900
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s := openTestStore(t, path, clockwork.NewFakeClock())
	p, err := s.GetPlayer(context.Background(), "walletA")
	require.NoError(t, err)
	require.Equal(t, "walletA", p.Address)
	require.Equal(t, int64(3), p.Inventory[domain.KindSilver])
	require.Equal(t, int64(0), p.Inventory[domain.KindNetherite])
	require.Equal(t, 40.5, p.SnapshotGold)
	require.Equal(t, 3.0, p.RatePerMinute)
	require.True(t, p.HasLand)

	players, err := s.Players(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 1)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := OpenFileStore(path, testKinds, clockwork.NewFakeClock())
	require.Error(t, err)
}
