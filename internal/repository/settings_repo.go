package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

// SettingsRepo reads the live payout settings and per-creator rate overrides.
// Missing rows mean "not configured" and resolve to zero rates and no tiers.
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

// GetRateConfig returns the creator's overrides together with the default
// base pay in a single round trip.
func (r *SettingsRepo) GetRateConfig(ctx context.Context, creatorID string) (model.RateConfig, error) {
	query := `
		SELECT
			(SELECT default_base_pay::text FROM payout_settings WHERE id = 1),
			(SELECT custom_instagram_rate::text FROM creators WHERE creator_id = $1),
			(SELECT custom_tiktok_rate::text FROM creators WHERE creator_id = $1)`

	var def, igRate, ttRate *string
	if err := r.pool.QueryRow(ctx, query, creatorID).Scan(&def, &igRate, &ttRate); err != nil {
		return model.RateConfig{}, err
	}

	cfg := model.RateConfig{CreatorID: creatorID, DefaultBasePay: decimal.Zero}
	var err error
	if def != nil {
		if cfg.DefaultBasePay, err = parseDecimal(*def); err != nil {
			return model.RateConfig{}, fmt.Errorf("default base pay: %w", err)
		}
	}
	if cfg.CustomInstagramRate, err = parseNullDecimal(igRate); err != nil {
		return model.RateConfig{}, fmt.Errorf("instagram rate: %w", err)
	}
	if cfg.CustomTiktokRate, err = parseNullDecimal(ttRate); err != nil {
		return model.RateConfig{}, fmt.Errorf("tiktok rate: %w", err)
	}
	return cfg, nil
}

// GetDefaultBasePay returns the process-wide default, or zero if unset.
func (r *SettingsRepo) GetDefaultBasePay(ctx context.Context) (decimal.Decimal, error) {
	var def *string
	err := r.pool.QueryRow(ctx, `
		SELECT (SELECT default_base_pay::text FROM payout_settings WHERE id = 1)`).Scan(&def)
	if err != nil {
		return decimal.Zero, err
	}
	if def == nil {
		return decimal.Zero, nil
	}
	return parseDecimal(*def)
}

// GetLiveBonusTiers returns the live tier table ordered by descending
// threshold.
func (r *SettingsRepo) GetLiveBonusTiers(ctx context.Context) ([]model.BonusTier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT view_threshold, bonus_amount::text
		FROM bonus_tiers
		ORDER BY view_threshold DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []model.BonusTier
	for rows.Next() {
		var t model.BonusTier
		var amount string
		if err := rows.Scan(&t.ViewThreshold, &amount); err != nil {
			return nil, err
		}
		if t.BonusAmount, err = parseDecimal(amount); err != nil {
			return nil, fmt.Errorf("tier %d: %w", t.ViewThreshold, err)
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}
