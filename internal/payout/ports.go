package payout

import (
	"context"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

// VideoSource lists a creator's payable videos posted inside a date range.
type VideoSource interface {
	ListEligibleVideos(ctx context.Context, creatorID string, r model.DateRange) ([]model.Video, error)
}

// CycleSource lists every payout cycle ordered by start date.
type CycleSource interface {
	ListCycles(ctx context.Context) ([]model.PayoutCycle, error)
}

// RateSource returns the creator's rate overrides and the default base pay.
type RateSource interface {
	GetRateConfig(ctx context.Context, creatorID string) (model.RateConfig, error)
}

// TierSource returns the live bonus tier table.
type TierSource interface {
	GetLiveBonusTiers(ctx context.Context) ([]model.BonusTier, error)
}

// PayoutReader returns the previously stored payout for a creator and cycle,
// or nil when none has been written yet.
type PayoutReader interface {
	GetPayout(ctx context.Context, creatorID, cycleID string) (*model.Payout, error)
}
