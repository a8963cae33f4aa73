package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

type cycleSweeper interface {
	FreezeEnded(ctx context.Context, now time.Time) ([]string, error)
	Current(ctx context.Context, now time.Time) (cur, prev *model.PayoutCycle, err error)
}

type cycleRecomputer interface {
	RecomputeCycle(ctx context.Context, cycleID string) (*model.BulkReport, error)
}

// CycleWorker is a periodic background job. Each tick freezes cycles that
// have ended, settles them once with their frozen rates, then recomputes
// every creator in the active cycle.
type CycleWorker struct {
	cycles   cycleSweeper
	payouts  cycleRecomputer
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
	stopCh   chan struct{}
}

// NewCycleWorker creates a worker that ticks every interval.
func NewCycleWorker(cycles cycleSweeper, payouts cycleRecomputer, interval time.Duration, log zerolog.Logger) *CycleWorker {
	return &CycleWorker{
		cycles:   cycles,
		payouts:  payouts,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "cycle-worker").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep loop.
// It runs one tick immediately, then every interval.
func (w *CycleWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			w.log.Info().Msg("stopping (context cancelled)")
			return
		case <-w.stopCh:
			w.log.Info().Msg("stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *CycleWorker) Stop() {
	close(w.stopCh)
}

// tick runs one sweep. Errors are logged; the next tick retries.
func (w *CycleWorker) tick(ctx context.Context) {
	start := w.now()

	frozen, err := w.cycles.FreezeEnded(ctx, start)
	if err != nil {
		w.log.Error().Err(err).Msg("freeze ended cycles")
	}

	recomputed := 0
	for _, id := range frozen {
		if w.recompute(ctx, id) {
			recomputed++
		}
	}

	cur, _, err := w.cycles.Current(ctx, start)
	switch {
	case err != nil:
		w.log.Error().Err(err).Msg("find active cycle")
	case cur == nil:
		w.log.Debug().Msg("no active cycle")
	default:
		if w.recompute(ctx, cur.ID) {
			recomputed++
		}
	}

	w.log.Info().
		Int("frozen", len(frozen)).
		Int("cycles_recomputed", recomputed).
		Dur("duration_ms", time.Since(start)).
		Msg("tick complete")
}

func (w *CycleWorker) recompute(ctx context.Context, cycleID string) bool {
	report, err := w.payouts.RecomputeCycle(ctx, cycleID)
	if err != nil {
		w.log.Error().Err(err).Str("cycle_id", cycleID).Msg("recompute cycle")
		return false
	}
	for _, f := range report.Failures {
		w.log.Warn().Str("cycle_id", cycleID).Str("creator_id", f.CreatorID).Str("error", f.Error).Msg("creator recompute failed")
	}
	return true
}
