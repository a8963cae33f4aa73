package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// TierSnapshotVersion is the version written by NewTierSnapshot. Version 0 is
// the legacy bare-array form.
const TierSnapshotVersion = 1

// BonusTier unlocks BonusAmount once a video reaches ViewThreshold views.
type BonusTier struct {
	ViewThreshold int64           `json:"viewThreshold"`
	BonusAmount   decimal.Decimal `json:"bonusAmount"`
}

// TierSnapshot is the bonus tier table frozen onto a cycle. Tiers are kept
// sorted descending by threshold.
type TierSnapshot struct {
	Version int         `json:"version"`
	Tiers   []BonusTier `json:"tiers"`
}

// NewTierSnapshot freezes a copy of tiers at the current version.
func NewTierSnapshot(tiers []BonusTier) *TierSnapshot {
	return &TierSnapshot{Version: TierSnapshotVersion, Tiers: SortTiersDesc(tiers)}
}

// HasPositiveAmount reports whether at least one tier pays something.
func (s *TierSnapshot) HasPositiveAmount() bool {
	if s == nil {
		return false
	}
	for _, t := range s.Tiers {
		if t.BonusAmount.IsPositive() {
			return true
		}
	}
	return false
}

// SortTiersDesc returns a copy of tiers ordered by descending threshold.
// Equal thresholds keep their input order.
func SortTiersDesc(tiers []BonusTier) []BonusTier {
	out := make([]BonusTier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ViewThreshold > out[j].ViewThreshold
	})
	return out
}

// rawTier accepts both the current field names and the legacy
// threshold/amount names.
type rawTier struct {
	ViewThreshold *int64              `json:"viewThreshold"`
	Threshold     *int64              `json:"threshold"`
	BonusAmount   decimal.NullDecimal `json:"bonusAmount"`
	Amount        decimal.NullDecimal `json:"amount"`
}

func (r rawTier) tier() (BonusTier, error) {
	var t BonusTier
	switch {
	case r.ViewThreshold != nil:
		t.ViewThreshold = *r.ViewThreshold
	case r.Threshold != nil:
		t.ViewThreshold = *r.Threshold
	default:
		return t, fmt.Errorf("tier is missing a view threshold")
	}
	switch {
	case r.BonusAmount.Valid:
		t.BonusAmount = r.BonusAmount.Decimal
	case r.Amount.Valid:
		t.BonusAmount = r.Amount.Decimal
	}
	return t, nil
}

// ParseTierSnapshot decodes a stored snapshot. Empty input and JSON null
// yield a nil snapshot. A bare JSON array is read as a version 0 snapshot.
func ParseTierSnapshot(raw []byte) (*TierSnapshot, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var (
		version int
		items   []rawTier
	)
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode legacy tier snapshot: %w", err)
		}
	} else {
		var doc struct {
			Version int       `json:"version"`
			Tiers   []rawTier `json:"tiers"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode tier snapshot: %w", err)
		}
		version, items = doc.Version, doc.Tiers
	}

	tiers := make([]BonusTier, 0, len(items))
	for i, item := range items {
		t, err := item.tier()
		if err != nil {
			return nil, fmt.Errorf("tier snapshot entry %d: %w", i, err)
		}
		tiers = append(tiers, t)
	}
	return &TierSnapshot{Version: version, Tiers: SortTiersDesc(tiers)}, nil
}
