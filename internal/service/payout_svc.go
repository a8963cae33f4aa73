package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/AscendAI/creator-catalyst-sub000/internal/metrics"
	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
	"github.com/AscendAI/creator-catalyst-sub000/internal/payout"
	"github.com/AscendAI/creator-catalyst-sub000/internal/repository"
)

// Engine computes one creator's payout for one cycle.
type Engine interface {
	Compute(ctx context.Context, creatorID, cycleID string, mode payout.RateMode) (*payout.Result, error)
}

// PayoutStore persists payouts. WithLock serialises writers of the same key.
type PayoutStore interface {
	GetPayout(ctx context.Context, creatorID, cycleID string) (*model.Payout, error)
	ListByCycle(ctx context.Context, cycleID string) ([]model.Payout, error)
	Upsert(ctx context.Context, db repository.Execer, p model.Payout) error
	WithLock(ctx context.Context, creatorID, cycleID string, fn func(tx pgx.Tx) error) error
}

// CreatorLister lists the creators that have to be recomputed for a cycle.
type CreatorLister interface {
	ListCreatorIDs(ctx context.Context, rng model.DateRange, cycleID string) ([]string, error)
}

// PayoutCache is the cache-aside layer in front of PayoutStore.
type PayoutCache interface {
	GetPayout(ctx context.Context, creatorID, cycleID string) (*model.Payout, error)
	SetPayout(ctx context.Context, p *model.Payout) error
	InvalidatePayout(ctx context.Context, creatorID, cycleID string) error
}

// RecomputeError reports a creator and cycle whose payout could not be
// recomputed. Nothing was written for that key.
type RecomputeError struct {
	CreatorID string
	CycleID   string
	Err       error
}

func (e *RecomputeError) Error() string {
	return fmt.Sprintf("could not recompute cycle %s for creator %s: %v", e.CycleID, e.CreatorID, e.Err)
}

func (e *RecomputeError) Unwrap() error { return e.Err }

// PayoutService runs the payout engine for the HTTP layer and the workers.
type PayoutService struct {
	engine      Engine
	cycles      payout.CycleSource
	store       PayoutStore
	creators    CreatorLister
	cache       PayoutCache
	concurrency int
	log         zerolog.Logger
	now         func() time.Time
}

// PayoutServiceConfig wires a PayoutService.
type PayoutServiceConfig struct {
	Engine      Engine
	Cycles      payout.CycleSource
	Store       PayoutStore
	Creators    CreatorLister
	Cache       PayoutCache
	Concurrency int
	Logger      zerolog.Logger
	Now         func() time.Time
}

func NewPayoutService(cfg PayoutServiceConfig) *PayoutService {
	s := &PayoutService{
		engine:      cfg.Engine,
		cycles:      cfg.Cycles,
		store:       cfg.Store,
		creators:    cfg.Creators,
		cache:       cfg.Cache,
		concurrency: cfg.Concurrency,
		log:         cfg.Logger.With().Str("component", "payout-service").Logger(),
		now:         cfg.Now,
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cache == nil {
		s.cache = &CacheService{}
	}
	return s
}

// ResolveMode picks the rate mode for a cycle. Ended cycles use their frozen
// rates unless the caller forces current rates.
func ResolveMode(c model.PayoutCycle, forceLive bool, now time.Time) payout.RateMode {
	if c.IsFrozen(now) && !forceLive {
		return payout.RateModeFrozen
	}
	return payout.RateModeLive
}

func (s *PayoutService) findCycle(ctx context.Context, cycleID string) (model.PayoutCycle, error) {
	cycles, err := s.cycles.ListCycles(ctx)
	if err != nil {
		return model.PayoutCycle{}, fmt.Errorf("list cycles: %w", err)
	}
	for _, c := range cycles {
		if c.ID == cycleID {
			return c, nil
		}
	}
	return model.PayoutCycle{}, payout.ErrCycleNotFound
}

// Recompute computes and stores the payout for one creator and cycle. The
// computation and the upsert run under the per-key lock, so a concurrent
// recompute of the same key waits and then overwrites with fresher inputs.
func (s *PayoutService) Recompute(ctx context.Context, creatorID, cycleID string, forceLive bool) (*payout.Result, error) {
	start := s.now()

	cycle, err := s.findCycle(ctx, cycleID)
	if err != nil {
		return nil, &RecomputeError{CreatorID: creatorID, CycleID: cycleID, Err: err}
	}
	mode := ResolveMode(cycle, forceLive, start)

	var res *payout.Result
	err = s.store.WithLock(ctx, creatorID, cycleID, func(tx pgx.Tx) error {
		r, err := s.engine.Compute(ctx, creatorID, cycleID, mode)
		if err != nil {
			return err
		}
		if err := s.store.Upsert(ctx, tx, r.Payout(s.now().UTC())); err != nil {
			return fmt.Errorf("store payout: %w", err)
		}
		res = r
		return nil
	})

	elapsed := s.now().Sub(start)
	metrics.RecomputeDuration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())

	if err != nil {
		metrics.RecomputeTotal.WithLabelValues(mode.String(), metrics.OutcomeFailure).Inc()
		return nil, &RecomputeError{CreatorID: creatorID, CycleID: cycleID, Err: err}
	}
	metrics.RecomputeTotal.WithLabelValues(mode.String(), metrics.OutcomeSuccess).Inc()

	if err := s.cache.InvalidatePayout(ctx, creatorID, cycleID); err != nil {
		s.log.Warn().Err(err).Str("cycle_id", cycleID).Msg("cache invalidate failed")
	}

	s.log.Debug().
		Str("creator_id", creatorID).
		Str("cycle_id", cycleID).
		Str("mode", mode.String()).
		Str("total", res.TotalAmount.StringFixed(2)).
		Dur("duration_ms", elapsed).
		Msg("payout recomputed")

	return res, nil
}

// Preview computes the payout without storing it.
func (s *PayoutService) Preview(ctx context.Context, creatorID, cycleID string, forceLive bool) (*payout.Result, error) {
	cycle, err := s.findCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	return s.engine.Compute(ctx, creatorID, cycleID, ResolveMode(cycle, forceLive, s.now()))
}

// Get returns the stored payout, or nil when none has been computed yet.
func (s *PayoutService) Get(ctx context.Context, creatorID, cycleID string) (*model.Payout, error) {
	cached, err := s.cache.GetPayout(ctx, creatorID, cycleID)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache get failed")
	}
	if cached != nil {
		return cached, nil
	}

	p, err := s.store.GetPayout(ctx, creatorID, cycleID)
	if err != nil || p == nil {
		return nil, err
	}

	if err := s.cache.SetPayout(ctx, p); err != nil {
		s.log.Warn().Err(err).Msg("cache set failed")
	}
	return p, nil
}

// ListCycle returns every stored payout for an existing cycle.
func (s *PayoutService) ListCycle(ctx context.Context, cycleID string) ([]model.Payout, error) {
	if _, err := s.findCycle(ctx, cycleID); err != nil {
		return nil, err
	}
	return s.store.ListByCycle(ctx, cycleID)
}

// RecomputeCycle recomputes every creator with activity in the cycle. Each
// creator runs as its own task on a bounded pool; a failing creator is
// recorded in the report and never stops the others.
func (s *PayoutService) RecomputeCycle(ctx context.Context, cycleID string) (*model.BulkReport, error) {
	start := time.Now()

	cycle, err := s.findCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	creatorIDs, err := s.creators.ListCreatorIDs(ctx, cycle.Range(), cycleID)
	if err != nil {
		return nil, fmt.Errorf("list creators for cycle %s: %w", cycleID, err)
	}

	report := &model.BulkReport{
		CycleID:  cycleID,
		Total:    len(creatorIDs),
		Failures: []model.CreatorFailure{},
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for _, creatorID := range creatorIDs {
		creatorID := creatorID
		p.Go(func() {
			err := ctx.Err()
			if err == nil {
				_, err = s.Recompute(ctx, creatorID, cycleID, false)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, model.CreatorFailure{CreatorID: creatorID, Error: err.Error()})
				return
			}
			report.Succeeded++
		})
	}
	p.Wait()

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].CreatorID < report.Failures[j].CreatorID
	})
	report.Duration = time.Since(start)

	metrics.BulkDuration.Observe(report.Duration.Seconds())
	metrics.BulkFailures.Add(float64(len(report.Failures)))

	evt := s.log.Info()
	if len(report.Failures) > 0 {
		evt = s.log.Warn()
	}
	evt.
		Str("cycle_id", cycleID).
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", len(report.Failures)).
		Dur("duration_ms", report.Duration).
		Msg("cycle recompute complete")

	return report, nil
}
