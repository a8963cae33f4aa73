package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PayoutRepo struct {
	pool *pgxpool.Pool
}

func NewPayoutRepo(pool *pgxpool.Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

const payoutColumns = `
	creator_id, cycle_id, base_pay::text, bonus_pay::text, total_amount::text,
	eligible_views, snapshot_ig_rate::text, snapshot_tt_rate::text,
	snapshot_default_rate::text, inputs_digest, computed_at`

// scanPayout reads one row selected with payoutColumns.
func scanPayout(row pgx.Row) (*model.Payout, error) {
	var p model.Payout
	var base, bonus, total, igRate, ttRate, defRate string
	if err := row.Scan(
		&p.CreatorID, &p.CycleID, &base, &bonus, &total,
		&p.EligibleViews, &igRate, &ttRate,
		&defRate, &p.InputsDigest, &p.ComputedAt,
	); err != nil {
		return nil, err
	}

	for _, f := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{base, &p.BasePay},
		{bonus, &p.BonusPay},
		{total, &p.TotalAmount},
		{igRate, &p.SnapshotIgRate},
		{ttRate, &p.SnapshotTtRate},
		{defRate, &p.SnapshotDefaultRate},
	} {
		d, err := parseDecimal(f.src)
		if err != nil {
			return nil, fmt.Errorf("payout %s/%s: %w", p.CreatorID, p.CycleID, err)
		}
		*f.dst = d
	}
	return &p, nil
}

// GetPayout returns the stored payout, or nil if the creator has none for
// the cycle.
func (r *PayoutRepo) GetPayout(ctx context.Context, creatorID, cycleID string) (*model.Payout, error) {
	p, err := scanPayout(r.pool.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE creator_id = $1 AND cycle_id = $2`,
		creatorID, cycleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListByCycle returns every stored payout for the cycle ordered by creator.
func (r *PayoutRepo) ListByCycle(ctx context.Context, cycleID string) ([]model.Payout, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE cycle_id = $1 ORDER BY creator_id`,
		cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []model.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *p)
	}
	return payouts, rows.Err()
}

// Upsert writes the payout, replacing any previous row for the same creator
// and cycle. Pass a pgx.Tx to write inside WithLock.
func (r *PayoutRepo) Upsert(ctx context.Context, db Execer, p model.Payout) error {
	if db == nil {
		db = r.pool
	}
	_, err := db.Exec(ctx, `
		INSERT INTO payouts (
			creator_id, cycle_id, base_pay, bonus_pay, total_amount, eligible_views,
			snapshot_ig_rate, snapshot_tt_rate, snapshot_default_rate, inputs_digest, computed_at
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7::numeric, $8::numeric, $9::numeric, $10, $11)
		ON CONFLICT (creator_id, cycle_id) DO UPDATE SET
			base_pay = EXCLUDED.base_pay,
			bonus_pay = EXCLUDED.bonus_pay,
			total_amount = EXCLUDED.total_amount,
			eligible_views = EXCLUDED.eligible_views,
			snapshot_ig_rate = EXCLUDED.snapshot_ig_rate,
			snapshot_tt_rate = EXCLUDED.snapshot_tt_rate,
			snapshot_default_rate = EXCLUDED.snapshot_default_rate,
			inputs_digest = EXCLUDED.inputs_digest,
			computed_at = EXCLUDED.computed_at`,
		p.CreatorID, p.CycleID, p.BasePay.String(), p.BonusPay.String(), p.TotalAmount.String(),
		p.EligibleViews, p.SnapshotIgRate.String(), p.SnapshotTtRate.String(),
		p.SnapshotDefaultRate.String(), p.InputsDigest, p.ComputedAt)
	return err
}

// WithLock runs fn in a transaction holding an advisory lock for the creator
// and cycle, so concurrent recomputations of the same key run one at a time.
// The transaction commits only if fn succeeds.
func (r *PayoutRepo) WithLock(ctx context.Context, creatorID, cycleID string, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		creatorID+"/"+cycleID); err != nil {
		return fmt.Errorf("acquire payout lock: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
