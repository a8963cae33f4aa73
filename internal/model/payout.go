package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateConfig is the rate input for one creator: optional per-platform
// overrides plus the process-wide default base pay.
type RateConfig struct {
	CreatorID           string
	CustomInstagramRate decimal.NullDecimal
	CustomTiktokRate    decimal.NullDecimal
	DefaultBasePay      decimal.Decimal
}

// Payout is the stored result for one creator and one cycle. A recompute
// overwrites the previous row for the same key.
type Payout struct {
	CreatorID           string          `json:"creatorId"`
	CycleID             string          `json:"cycleId"`
	BasePay             decimal.Decimal `json:"basePay"`
	BonusPay            decimal.Decimal `json:"bonusPay"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	EligibleViews       int64           `json:"eligibleViews"`
	SnapshotIgRate      decimal.Decimal `json:"snapshotIgRate"`
	SnapshotTtRate      decimal.Decimal `json:"snapshotTtRate"`
	SnapshotDefaultRate decimal.Decimal `json:"snapshotDefaultRate"`
	InputsDigest        string          `json:"inputsDigest"`
	ComputedAt          time.Time       `json:"computedAt"`
}

// CreatorFailure records one creator that could not be recomputed during a
// bulk run.
type CreatorFailure struct {
	CreatorID string `json:"creatorId"`
	Error     string `json:"error"`
}

// BulkReport summarises a bulk recompute of one cycle.
type BulkReport struct {
	CycleID   string           `json:"cycleId"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failures  []CreatorFailure `json:"failures"`
	Duration  time.Duration    `json:"-"`
}
