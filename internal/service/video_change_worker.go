package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/AscendAI/creator-catalyst-sub000/internal/metrics"
	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
	"github.com/AscendAI/creator-catalyst-sub000/internal/payout"
)

// VideoChangeChannel is the NOTIFY channel written by the videos trigger.
// The payload is "creator_id|posted_at" with posted_at in unix milliseconds,
// or empty when the video has no posting time.
const VideoChangeChannel = "video_changes"

type creatorRecomputer interface {
	Recompute(ctx context.Context, creatorID, cycleID string, forceLive bool) (*payout.Result, error)
}

type cycleLister interface {
	Cycles(ctx context.Context) ([]model.PayoutCycle, error)
}

// videoChange is one decoded notification. postedAt is zero when unknown.
type videoChange struct {
	creatorID string
	postedAt  time.Time
}

// parseVideoChange decodes a notification payload. A bare creator id or an
// unreadable timestamp yields an undated change.
func parseVideoChange(payload string) (videoChange, bool) {
	creatorID, ms, _ := strings.Cut(payload, "|")
	if creatorID == "" {
		return videoChange{}, false
	}
	ch := videoChange{creatorID: creatorID}
	if n, err := strconv.ParseInt(ms, 10, 64); err == nil {
		ch.postedAt = time.UnixMilli(n).UTC()
	}
	return ch, true
}

// VideoChangeWorker listens for PostgreSQL NOTIFY on video_changes and
// batches payout recomputations. Each change is routed to the cycle holding
// the video plus any neighbour whose boundary pairs it can alter. If
// ingestion touches 50 videos of one creator inside the window, each
// affected payout is recomputed once.
type VideoChangeWorker struct {
	pool    *pgxpool.Pool
	payouts creatorRecomputer
	cycles  cycleLister
	window  time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[videoChange]struct{}
}

// NewVideoChangeWorker creates a video change worker with the given batch window.
func NewVideoChangeWorker(pool *pgxpool.Pool, payouts creatorRecomputer, cycles cycleLister, window time.Duration, log zerolog.Logger) *VideoChangeWorker {
	return &VideoChangeWorker{
		pool:    pool,
		payouts: payouts,
		cycles:  cycles,
		window:  window,
		now:     time.Now,
		log:     log.With().Str("component", "video-change-worker").Logger(),
		pending: make(map[videoChange]struct{}),
	}
}

// Start begins listening for notifications and processing batches.
func (w *VideoChangeWorker) Start(ctx context.Context) {
	w.log.Info().Dur("batch_window", w.window).Msg("starting")

	for {
		if err := w.listenLoop(ctx); err != nil {
			if ctx.Err() != nil {
				w.log.Info().Msg("stopping (context cancelled)")
				return
			}
			w.log.Warn().Err(err).Msg("listen error, reconnecting in 5s")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				w.log.Info().Msg("stopping (context cancelled)")
				return
			}
		}
	}
}

// listenLoop acquires a dedicated connection, LISTENs on video_changes,
// and collects changes until the connection fails.
func (w *VideoChangeWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+VideoChangeChannel); err != nil {
		return err
	}
	w.log.Info().Str("channel", VideoChangeChannel).Msg("listening")

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	go w.flushLoop(flushCtx)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		w.enqueue(notification.Payload)
	}
}

func (w *VideoChangeWorker) enqueue(payload string) {
	ch, ok := parseVideoChange(payload)
	if !ok {
		return
	}
	w.mu.Lock()
	w.pending[ch] = struct{}{}
	w.mu.Unlock()
}

// flushLoop periodically drains the pending set.
func (w *VideoChangeWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			// Final flush before exit
			w.flush(context.WithoutCancel(ctx))
			return
		}
	}
}

// flush drains the pending set and recomputes every affected payout.
// Undated changes are routed as if posted now.
func (w *VideoChangeWorker) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	// Swap out the pending map
	batch := w.pending
	w.pending = make(map[videoChange]struct{})
	w.mu.Unlock()

	cycles, err := w.cycles.Cycles(ctx)
	if err != nil {
		w.log.Error().Err(err).Int("changes", len(batch)).Msg("list cycles, batch dropped")
		return
	}

	now := w.now()
	creators := make(map[string]struct{}, len(batch))
	targets := make(map[string]map[string]struct{})
	for ch := range batch {
		creators[ch.creatorID] = struct{}{}
		at := ch.postedAt
		if at.IsZero() {
			at = now
		}
		for _, cycleID := range payout.AffectedCycles(cycles, at, now) {
			if targets[ch.creatorID] == nil {
				targets[ch.creatorID] = make(map[string]struct{})
			}
			targets[ch.creatorID][cycleID] = struct{}{}
		}
	}
	metrics.VideoChangeBatches.Observe(float64(len(creators)))

	if len(targets) == 0 {
		w.log.Debug().Int("changes", len(batch)).Msg("no cycle covers the changed videos, batch skipped")
		return
	}

	recomputed := 0
	for creatorID, cycleIDs := range targets {
		for cycleID := range cycleIDs {
			if _, err := w.payouts.Recompute(ctx, creatorID, cycleID, false); err != nil {
				w.log.Error().Err(err).Msg("recompute after video change")
				continue
			}
			recomputed++
		}
	}

	if recomputed > 0 {
		w.log.Info().
			Int("creators", len(creators)).
			Int("payouts_recomputed", recomputed).
			Msg("batch complete")
	}
}
