package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/metrics"
	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
	"github.com/AscendAI/creator-catalyst-sub000/internal/payout"
)

// CycleStore reads cycles and writes their rate snapshots.
type CycleStore interface {
	ListCycles(ctx context.Context) ([]model.PayoutCycle, error)
	SaveSnapshot(ctx context.Context, cycleID string, basePay decimal.Decimal, tiers *model.TierSnapshot) (bool, error)
}

// LiveSettings returns the current global rate settings.
type LiveSettings interface {
	GetDefaultBasePay(ctx context.Context) (decimal.Decimal, error)
	GetLiveBonusTiers(ctx context.Context) ([]model.BonusTier, error)
}

// CycleService manages cycle state: listing and freezing ended cycles.
type CycleService struct {
	store    CycleStore
	settings LiveSettings
	log      zerolog.Logger
}

func NewCycleService(store CycleStore, settings LiveSettings, log zerolog.Logger) *CycleService {
	return &CycleService{
		store:    store,
		settings: settings,
		log:      log.With().Str("component", "cycle-service").Logger(),
	}
}

// FreezeEnded copies the live default base pay and tier table onto every
// ended cycle that has no snapshot yet, and returns the ids it froze. Later
// settings changes then leave those cycles untouched.
func (s *CycleService) FreezeEnded(ctx context.Context, now time.Time) ([]string, error) {
	cycles, err := s.store.ListCycles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}

	var (
		basePay decimal.Decimal
		tiers   *model.TierSnapshot
		frozen  []string
	)
	for _, c := range cycles {
		if !c.IsFrozen(now) || c.HasSnapshot() {
			continue
		}
		if tiers == nil {
			if basePay, err = s.settings.GetDefaultBasePay(ctx); err != nil {
				return frozen, fmt.Errorf("get default base pay: %w", err)
			}
			live, err := s.settings.GetLiveBonusTiers(ctx)
			if err != nil {
				return frozen, fmt.Errorf("get live bonus tiers: %w", err)
			}
			tiers = model.NewTierSnapshot(live)
		}

		saved, err := s.store.SaveSnapshot(ctx, c.ID, basePay, tiers)
		if err != nil {
			return frozen, fmt.Errorf("snapshot cycle %s: %w", c.ID, err)
		}
		if !saved {
			continue
		}
		metrics.CyclesFrozen.Inc()
		frozen = append(frozen, c.ID)
		s.log.Info().
			Str("cycle_id", c.ID).
			Str("base_pay", basePay.String()).
			Int("tiers", len(tiers.Tiers)).
			Msg("cycle frozen")
	}
	return frozen, nil
}

// Current returns the cycle containing now and the cycle before it. Either
// may be nil.
func (s *CycleService) Current(ctx context.Context, now time.Time) (cur, prev *model.PayoutCycle, err error) {
	cycles, err := s.store.ListCycles(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list cycles: %w", err)
	}
	for _, c := range cycles {
		if !c.IsActive(now) {
			continue
		}
		p, cur, _, _ := payout.Neighbors(cycles, c.ID)
		return &cur, p, nil
	}
	return nil, nil, nil
}

// Cycles returns every cycle.
func (s *CycleService) Cycles(ctx context.Context) ([]model.PayoutCycle, error) {
	cycles, err := s.store.ListCycles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return cycles, nil
}

// List returns every cycle with its state as of now.
func (s *CycleService) List(ctx context.Context, now time.Time) (*model.CycleListResponse, error) {
	cycles, err := s.store.ListCycles(ctx)
	if err != nil {
		return nil, err
	}

	resp := &model.CycleListResponse{Cycles: make([]model.CycleEntry, 0, len(cycles))}
	for _, c := range cycles {
		resp.Cycles = append(resp.Cycles, model.CycleEntry{
			ID:        c.ID,
			StartDate: c.StartDate.UTC().Format(time.RFC3339),
			EndDate:   c.EndDate.UTC().Format(time.RFC3339),
			Frozen:    c.IsFrozen(now),
			Active:    c.IsActive(now),
			Snapshot:  c.HasSnapshot(),
		})
	}
	return resp, nil
}
