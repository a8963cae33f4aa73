package payout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

// RateMode selects between live settings and a cycle's frozen snapshot.
type RateMode int

const (
	// RateModeLive uses current settings. Used for the in-progress cycle or
	// when a caller forces current rates.
	RateModeLive RateMode = iota
	// RateModeFrozen uses the snapshot stored on the cycle and on the
	// previously written payout.
	RateModeFrozen
)

func (m RateMode) String() string {
	switch m {
	case RateModeLive:
		return "live"
	case RateModeFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("RateMode(%d)", int(m))
	}
}

// TierOrigin records where the bonus tier table came from.
type TierOrigin string

const (
	TierOriginLive     TierOrigin = "live"
	TierOriginSnapshot TierOrigin = "snapshot"
	// TierOriginLegacyFallback marks a frozen cycle whose snapshot had no
	// paying tier. Such cycles were snapshotted before any tiers existed and
	// are billed with the live table instead.
	TierOriginLegacyFallback TierOrigin = "legacy_fallback"
)

// minStoredRate is the smallest stored per-platform rate that is trusted on
// recompute of a frozen cycle.
var minStoredRate = decimal.NewFromInt(1)

// Rates is the resolved pricing for one creator in one cycle.
type Rates struct {
	Instagram  decimal.Decimal
	TikTok     decimal.Decimal
	Default    decimal.Decimal
	Tiers      []model.BonusTier
	TierOrigin TierOrigin
}

// ForPlatform returns the base rate for a single video on p.
func (r Rates) ForPlatform(p model.Platform) decimal.Decimal {
	switch p {
	case model.PlatformInstagram:
		return r.Instagram
	case model.PlatformTikTok:
		return r.TikTok
	default:
		return r.Default
	}
}

// RateResolver determines the rates and tiers that apply to a cycle.
type RateResolver interface {
	Resolve(ctx context.Context, creatorID string, cycle model.PayoutCycle, mode RateMode) (Rates, error)
}

// SettingsRateResolver resolves rates from the settings store, the live tier
// table and, for frozen cycles, the previously stored payout.
type SettingsRateResolver struct {
	rates   RateSource
	tiers   TierSource
	payouts PayoutReader
}

func NewRateResolver(rates RateSource, tiers TierSource, payouts PayoutReader) *SettingsRateResolver {
	return &SettingsRateResolver{rates: rates, tiers: tiers, payouts: payouts}
}

// Resolve implements RateResolver. It reads but never writes.
func (r *SettingsRateResolver) Resolve(ctx context.Context, creatorID string, cycle model.PayoutCycle, mode RateMode) (Rates, error) {
	cfg, err := r.rates.GetRateConfig(ctx, creatorID)
	if err != nil {
		return Rates{}, fmt.Errorf("load rate config: %w", err)
	}

	if mode == RateModeLive {
		live, err := r.tiers.GetLiveBonusTiers(ctx)
		if err != nil {
			return Rates{}, fmt.Errorf("load live bonus tiers: %w", err)
		}
		return LiveRates(cfg, live), nil
	}

	var stored *model.Payout
	if r.payouts != nil {
		stored, err = r.payouts.GetPayout(ctx, creatorID, cycle.ID)
		if err != nil {
			return Rates{}, fmt.Errorf("load stored payout: %w", err)
		}
	}

	// The live table is only read when the snapshot cannot be used.
	var live []model.BonusTier
	if !cycle.BonusTiersSnapshot.HasPositiveAmount() {
		live, err = r.tiers.GetLiveBonusTiers(ctx)
		if err != nil {
			return Rates{}, fmt.Errorf("load live bonus tiers: %w", err)
		}
	}
	return FrozenRates(cfg, cycle, stored, live), nil
}

// LiveRates prices a cycle from current settings: a custom platform rate
// wins whenever it is set, otherwise the default applies.
func LiveRates(cfg model.RateConfig, live []model.BonusTier) Rates {
	def := cfg.DefaultBasePay
	return Rates{
		Instagram:  liveRate(cfg.CustomInstagramRate, def),
		TikTok:     liveRate(cfg.CustomTiktokRate, def),
		Default:    def,
		Tiers:      model.SortTiersDesc(live),
		TierOrigin: TierOriginLive,
	}
}

func liveRate(custom decimal.NullDecimal, def decimal.Decimal) decimal.Decimal {
	if custom.Valid {
		return custom.Decimal
	}
	return def
}

// FrozenRates prices an ended cycle. stored may be nil.
//
// Default rate: cycle snapshot if positive, else the stored payout's default
// if positive, else the live default. Platform rate: stored payout's rate if
// at least 1, else a non-zero custom rate, else the resolved default. Tiers:
// the cycle snapshot if any tier pays, else the live table.
func FrozenRates(cfg model.RateConfig, cycle model.PayoutCycle, stored *model.Payout, live []model.BonusTier) Rates {
	def := cfg.DefaultBasePay
	switch {
	case cycle.BasePayPerVideoSnapshot.Valid && cycle.BasePayPerVideoSnapshot.Decimal.IsPositive():
		def = cycle.BasePayPerVideoSnapshot.Decimal
	case stored != nil && stored.SnapshotDefaultRate.IsPositive():
		def = stored.SnapshotDefaultRate
	}

	var storedIG, storedTT decimal.Decimal
	if stored != nil {
		storedIG, storedTT = stored.SnapshotIgRate, stored.SnapshotTtRate
	}

	out := Rates{
		Instagram: frozenRate(storedIG, cfg.CustomInstagramRate, def),
		TikTok:    frozenRate(storedTT, cfg.CustomTiktokRate, def),
		Default:   def,
	}

	switch {
	case cycle.BonusTiersSnapshot.HasPositiveAmount():
		out.Tiers = model.SortTiersDesc(cycle.BonusTiersSnapshot.Tiers)
		out.TierOrigin = TierOriginSnapshot
	case cycle.BonusTiersSnapshot != nil:
		out.Tiers = model.SortTiersDesc(live)
		out.TierOrigin = TierOriginLegacyFallback
	default:
		out.Tiers = model.SortTiersDesc(live)
		out.TierOrigin = TierOriginLive
	}
	return out
}

func frozenRate(stored decimal.Decimal, custom decimal.NullDecimal, def decimal.Decimal) decimal.Decimal {
	if stored.GreaterThanOrEqual(minStoredRate) {
		return stored
	}
	if custom.Valid && !custom.Decimal.IsZero() {
		return custom.Decimal
	}
	return def
}
