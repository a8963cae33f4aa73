package payout

import (
	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

// SelectTier returns the first tier whose threshold is at most views. Tiers
// must be ordered descending by threshold, so the first hit is the highest
// threshold the count satisfies.
func SelectTier(views int64, tiers []model.BonusTier) (model.BonusTier, bool) {
	for _, t := range tiers {
		if t.ViewThreshold <= views {
			return t, true
		}
	}
	return model.BonusTier{}, false
}

// BonusFor returns the bonus earned by a single tier lookup on views.
func BonusFor(views int64, tiers []model.BonusTier) decimal.Decimal {
	if t, ok := SelectTier(views, tiers); ok {
		return t.BonusAmount
	}
	return decimal.Zero
}
