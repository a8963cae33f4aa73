package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// PayoutCycle is a non-overlapping period over which payouts are computed.
// Once EndDate has passed the snapshot fields become authoritative.
type PayoutCycle struct {
	ID                      string              `json:"id"`
	StartDate               time.Time           `json:"startDate"`
	EndDate                 time.Time           `json:"endDate"`
	BasePayPerVideoSnapshot decimal.NullDecimal `json:"basePayPerVideoSnapshot"`
	BonusTiersSnapshot      *TierSnapshot       `json:"bonusTiersSnapshot,omitempty"`
}

// Range returns the cycle as a half-open date range.
func (c PayoutCycle) Range() DateRange {
	return DateRange{Start: c.StartDate, End: c.EndDate}
}

// IsFrozen reports whether the cycle has ended as of now.
func (c PayoutCycle) IsFrozen(now time.Time) bool {
	return c.EndDate.Before(now)
}

// IsActive reports whether now falls inside the cycle.
func (c PayoutCycle) IsActive(now time.Time) bool {
	return c.Range().Contains(now)
}

// HasSnapshot reports whether rates and tiers have been frozen onto the cycle.
func (c PayoutCycle) HasSnapshot() bool {
	return c.BasePayPerVideoSnapshot.Valid || c.BonusTiersSnapshot != nil
}

// CycleListResponse is the API response for the cycle listing.
type CycleListResponse struct {
	Cycles []CycleEntry `json:"cycles"`
}

// CycleEntry is a single cycle in a listing.
type CycleEntry struct {
	ID        string `json:"id"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Frozen    bool   `json:"frozen"`
	Active    bool   `json:"active"`
	Snapshot  bool   `json:"snapshot"`
}
