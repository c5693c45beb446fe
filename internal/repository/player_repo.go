package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gold_mining/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

// PlayerRepository stores players in PostgreSQL. Pending payouts live in
// their own table and are rewritten together with the player row.
type PlayerRepository struct {
	db    *pgxpool.Pool
	kinds []domain.EquipmentKind
	clock clockwork.Clock
}

func NewPlayerRepository(db *pgxpool.Pool, kinds []domain.EquipmentKind, clock clockwork.Clock) *PlayerRepository {
	return &PlayerRepository{db: db, kinds: kinds, clock: clock}
}

const playerColumns = `address, inventory, snapshot_gold, snapshot_ts, rate_per_minute, has_land, land_purchase_date, last_activity`

func (r *PlayerRepository) GetPlayer(ctx context.Context, address string) (*domain.Player, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}

	now := r.clock.Now().Unix()
	_, err := r.db.Exec(ctx, `
		INSERT INTO players (address, inventory, snapshot_ts, last_activity)
		VALUES ($1, '{}', $2, $2)
		ON CONFLICT (address) DO NOTHING
	`, address, now)
	if err != nil {
		return nil, fmt.Errorf("ensure player: %w", err)
	}

	return r.get(ctx, r.db, address)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PlayerRepository) get(ctx context.Context, q querier, address string) (*domain.Player, error) {
	row := q.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE address = $1`, address)
	p, err := r.scanPlayer(row)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT amount_gold, payout_sol, lamports, created_at, attempts, last_error
		FROM pending_payouts
		WHERE address = $1
		ORDER BY id
	`, address)
	if err != nil {
		return nil, fmt.Errorf("query pending payouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pp domain.PendingPayout
		var lamports int64
		if err := rows.Scan(&pp.AmountGold, &pp.PayoutSOL, &lamports, &pp.CreatedAt, &pp.Attempts, &pp.LastError); err != nil {
			return nil, err
		}
		pp.Lamports = uint64(lamports)
		p.PendingPayouts = append(p.PendingPayouts, pp)
	}
	return p, rows.Err()
}

func (r *PlayerRepository) scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	var inv []byte
	if err := row.Scan(
		&p.Address,
		&inv,
		&p.SnapshotGold,
		&p.SnapshotTimestamp,
		&p.RatePerMinute,
		&p.HasLand,
		&p.LandPurchaseDate,
		&p.LastActivity,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(inv, &p.Inventory); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}
	p.Inventory = p.Inventory.Normalize(r.kinds)
	return &p, nil
}

func (r *PlayerRepository) PutPlayer(ctx context.Context, address string, p *domain.Player) error {
	if err := checkAddress(address); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.write(ctx, tx, address, p, true); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Import inserts p unless the address already exists. It reports whether
// the player was written.
func (r *PlayerRepository) Import(ctx context.Context, p *domain.Player) (bool, error) {
	if err := checkAddress(p.Address); err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE address = $1)`, p.Address).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := r.write(ctx, tx, p.Address, p, false); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *PlayerRepository) write(ctx context.Context, tx pgx.Tx, address string, p *domain.Player, replacePayouts bool) error {
	inv, err := json.Marshal(p.Inventory.Normalize(r.kinds))
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO players (`+playerColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (address) DO UPDATE SET
			inventory = EXCLUDED.inventory,
			snapshot_gold = EXCLUDED.snapshot_gold,
			snapshot_ts = EXCLUDED.snapshot_ts,
			rate_per_minute = EXCLUDED.rate_per_minute,
			has_land = EXCLUDED.has_land,
			land_purchase_date = EXCLUDED.land_purchase_date,
			last_activity = EXCLUDED.last_activity,
			updated_at = now()
	`, address, inv, p.SnapshotGold, p.SnapshotTimestamp, p.RatePerMinute, p.HasLand, p.LandPurchaseDate, p.LastActivity)
	if err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}

	if replacePayouts {
		if _, err := tx.Exec(ctx, `DELETE FROM pending_payouts WHERE address = $1`, address); err != nil {
			return fmt.Errorf("clear pending payouts: %w", err)
		}
	}
	for _, pp := range p.PendingPayouts {
		_, err := tx.Exec(ctx, `
			INSERT INTO pending_payouts (address, amount_gold, payout_sol, lamports, created_at, attempts, last_error)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, address, pp.AmountGold, pp.PayoutSOL, int64(pp.Lamports), pp.CreatedAt, pp.Attempts, pp.LastError)
		if err != nil {
			return fmt.Errorf("insert pending payout: %w", err)
		}
	}
	return nil
}

func (r *PlayerRepository) ListPendingPayoutAddresses(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT address FROM pending_payouts ORDER BY address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

func (r *PlayerRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
