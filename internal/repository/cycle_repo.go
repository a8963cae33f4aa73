package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

type CycleRepo struct {
	pool *pgxpool.Pool
}

func NewCycleRepo(pool *pgxpool.Pool) *CycleRepo {
	return &CycleRepo{pool: pool}
}

// ListCycles returns every payout cycle ordered by start date. A cycle whose
// tier snapshot cannot be decoded fails the whole listing.
func (r *CycleRepo) ListCycles(ctx context.Context) ([]model.PayoutCycle, error) {
	query := `
		SELECT cycle_id, start_date, end_date,
		       base_pay_per_video_snapshot::text, bonus_tiers_snapshot::text
		FROM payout_cycles
		ORDER BY start_date ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []model.PayoutCycle
	for rows.Next() {
		var c model.PayoutCycle
		var basePay, tiers *string
		if err := rows.Scan(&c.ID, &c.StartDate, &c.EndDate, &basePay, &tiers); err != nil {
			return nil, err
		}
		if c.BasePayPerVideoSnapshot, err = parseNullDecimal(basePay); err != nil {
			return nil, fmt.Errorf("cycle %s: %w", c.ID, err)
		}
		if tiers != nil {
			if c.BonusTiersSnapshot, err = model.ParseTierSnapshot([]byte(*tiers)); err != nil {
				return nil, fmt.Errorf("cycle %s: %w", c.ID, err)
			}
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// SaveSnapshot freezes the default rate and tier table onto a cycle. A cycle
// that already carries a snapshot is left untouched; the return value
// reports whether a row was written.
func (r *CycleRepo) SaveSnapshot(ctx context.Context, cycleID string, basePay decimal.Decimal, tiers *model.TierSnapshot) (bool, error) {
	doc, err := json.Marshal(tiers)
	if err != nil {
		return false, fmt.Errorf("encode tier snapshot: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE payout_cycles
		SET base_pay_per_video_snapshot = $2::numeric,
		    bonus_tiers_snapshot = $3::jsonb
		WHERE cycle_id = $1
		  AND base_pay_per_video_snapshot IS NULL
		  AND bonus_tiers_snapshot IS NULL`,
		cycleID, basePay.String(), string(doc))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
