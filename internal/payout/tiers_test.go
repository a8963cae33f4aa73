package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

func testTiers() []model.BonusTier {
	return model.SortTiersDesc([]model.BonusTier{
		{ViewThreshold: 1000, BonusAmount: dec("5")},
		{ViewThreshold: 100000, BonusAmount: dec("50")},
		{ViewThreshold: 10000, BonusAmount: dec("15")},
	})
}

func TestSelectTier(t *testing.T) {
	tests := []struct {
		name      string
		views     int64
		wantOK    bool
		threshold int64
	}{
		{"below every tier", 999, false, 0},
		{"exactly lowest", 1000, true, 1000},
		{"between tiers", 9999, true, 1000},
		{"exactly middle", 10000, true, 10000},
		{"above top", 2_000_000, true, 100000},
		{"zero views", 0, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tier, ok := SelectTier(tc.views, testTiers())
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.threshold, tier.ViewThreshold)
			}
		})
	}
}

func TestSelectTier_EmptyTable(t *testing.T) {
	_, ok := SelectTier(1_000_000, nil)
	assert.False(t, ok)
	assert.True(t, BonusFor(1_000_000, nil).IsZero())
}

func TestBonusFor_Monotonic(t *testing.T) {
	tiers := testTiers()
	prev := BonusFor(0, tiers)
	for views := int64(0); views <= 200000; views += 250 {
		got := BonusFor(views, tiers)
		if got.LessThan(prev) {
			t.Fatalf("BonusFor(%d) = %s, below BonusFor at fewer views (%s)", views, got, prev)
		}
		prev = got
	}
}
