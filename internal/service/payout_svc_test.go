package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AscendAI/creator-catalyst-sub000/internal/metrics"
	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
	"github.com/AscendAI/creator-catalyst-sub000/internal/payout"
)

func TestResolveMode(t *testing.T) {
	cycles := testCycles()
	tests := []struct {
		name  string
		cycle model.PayoutCycle
		force bool
		want  payout.RateMode
	}{
		{"active cycle", cycles[1], false, payout.RateModeLive},
		{"ended cycle", cycles[0], false, payout.RateModeFrozen},
		{"ended cycle forced", cycles[0], true, payout.RateModeLive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveMode(tt.cycle, tt.force, testNow); got != tt.want {
				t.Errorf("ResolveMode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecompute_StoresAndInvalidates(t *testing.T) {
	svc, d := newTestPayoutService()
	ctx := context.Background()

	res, err := svc.Recompute(ctx, "cr-1", "c-old", false)
	if err != nil {
		t.Fatalf("Recompute error: %v", err)
	}
	if res.Mode != payout.RateModeFrozen.String() {
		t.Errorf("mode = %s, want frozen", res.Mode)
	}

	stored, _ := d.store.GetPayout(ctx, "cr-1", "c-old")
	if stored == nil {
		t.Fatal("payout was not stored")
	}
	if !stored.ComputedAt.Equal(testNow) {
		t.Errorf("ComputedAt = %v, want %v", stored.ComputedAt, testNow)
	}
	if len(d.cache.invalidated) != 1 {
		t.Errorf("invalidations = %d, want 1", len(d.cache.invalidated))
	}
}

func TestRecompute_ForceCurrentRates(t *testing.T) {
	svc, _ := newTestPayoutService()

	res, err := svc.Recompute(context.Background(), "cr-1", "c-old", true)
	if err != nil {
		t.Fatalf("Recompute error: %v", err)
	}
	if res.Mode != payout.RateModeLive.String() {
		t.Errorf("mode = %s, want live", res.Mode)
	}
}

func TestRecompute_EngineFailureWritesNothing(t *testing.T) {
	svc, d := newTestPayoutService()
	d.engine.fail["cr-1"] = errBoom

	_, err := svc.Recompute(context.Background(), "cr-1", "c-now", false)
	if err == nil {
		t.Fatal("Recompute should fail")
	}

	var rerr *RecomputeError
	if !errors.As(err, &rerr) {
		t.Fatalf("error type = %T, want *RecomputeError", err)
	}
	if !errors.Is(err, errBoom) {
		t.Error("RecomputeError should unwrap to the engine error")
	}
	if !strings.Contains(err.Error(), "could not recompute cycle c-now for creator cr-1") {
		t.Errorf("message = %q", err.Error())
	}
	if d.store.count() != 0 {
		t.Error("nothing should be stored on failure")
	}
	if len(d.cache.invalidated) != 0 {
		t.Error("cache should not be touched on failure")
	}
}

func TestRecompute_CountsOutcomes(t *testing.T) {
	svc, d := newTestPayoutService()
	success := metrics.RecomputeTotal.WithLabelValues("live", metrics.OutcomeSuccess)
	failure := metrics.RecomputeTotal.WithLabelValues("live", metrics.OutcomeFailure)
	okBefore, failBefore := testutil.ToFloat64(success), testutil.ToFloat64(failure)

	if _, err := svc.Recompute(context.Background(), "cr-1", "c-now", false); err != nil {
		t.Fatalf("Recompute error: %v", err)
	}
	d.engine.fail["cr-2"] = errBoom
	_, _ = svc.Recompute(context.Background(), "cr-2", "c-now", false)

	if got := testutil.ToFloat64(success) - okBefore; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failure) - failBefore; got != 1 {
		t.Errorf("failure delta = %v, want 1", got)
	}
}

func TestRecompute_UpsertFailure(t *testing.T) {
	svc, d := newTestPayoutService()
	d.store.upsertErr = errBoom

	if _, err := svc.Recompute(context.Background(), "cr-1", "c-now", false); !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestRecompute_UnknownCycle(t *testing.T) {
	svc, d := newTestPayoutService()

	_, err := svc.Recompute(context.Background(), "cr-1", "nope", false)
	if !errors.Is(err, payout.ErrCycleNotFound) {
		t.Errorf("err = %v, want ErrCycleNotFound", err)
	}
	if d.engine.calls() != 0 {
		t.Error("engine should not run for an unknown cycle")
	}
}

func TestPreview_DoesNotStore(t *testing.T) {
	svc, d := newTestPayoutService()

	res, err := svc.Preview(context.Background(), "cr-1", "c-now", false)
	if err != nil {
		t.Fatalf("Preview error: %v", err)
	}
	if res.CreatorID != "cr-1" {
		t.Errorf("CreatorID = %s, want cr-1", res.CreatorID)
	}
	if d.store.count() != 0 {
		t.Error("Preview must not store")
	}
}

func TestGet_CacheAside(t *testing.T) {
	svc, d := newTestPayoutService()
	ctx := context.Background()

	p, err := svc.Get(ctx, "cr-1", "c-now")
	if err != nil || p != nil {
		t.Fatalf("Get before compute = %v, %v; want nil, nil", p, err)
	}

	if _, err := svc.Recompute(ctx, "cr-1", "c-now", false); err != nil {
		t.Fatalf("Recompute error: %v", err)
	}

	if p, _ = svc.Get(ctx, "cr-1", "c-now"); p == nil {
		t.Fatal("Get after compute should find the payout")
	}
	readsAfterMiss := d.store.reads

	if p, _ = svc.Get(ctx, "cr-1", "c-now"); p == nil {
		t.Fatal("second Get should hit the cache")
	}
	if d.store.reads != readsAfterMiss {
		t.Errorf("store reads = %d, want %d (cache hit)", d.store.reads, readsAfterMiss)
	}
}

func TestRecomputeCycle_CollectsFailures(t *testing.T) {
	svc, d := newTestPayoutService("cr-3", "cr-1", "cr-2")
	d.engine.fail["cr-2"] = errBoom

	report, err := svc.RecomputeCycle(context.Background(), "c-now")
	if err != nil {
		t.Fatalf("RecomputeCycle error: %v", err)
	}
	if report.Total != 3 || report.Succeeded != 2 {
		t.Errorf("total/succeeded = %d/%d, want 3/2", report.Total, report.Succeeded)
	}
	if len(report.Failures) != 1 || report.Failures[0].CreatorID != "cr-2" {
		t.Fatalf("failures = %+v, want cr-2 only", report.Failures)
	}
	if !strings.Contains(report.Failures[0].Error, "could not recompute cycle c-now for creator cr-2") {
		t.Errorf("failure message = %q", report.Failures[0].Error)
	}
	if d.store.count() != 2 {
		t.Errorf("stored = %d, want 2", d.store.count())
	}
}

func TestRecomputeCycle_CancelledContext(t *testing.T) {
	svc, d := newTestPayoutService("cr-1", "cr-2")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.RecomputeCycle(ctx, "c-now")
	if err != nil {
		t.Fatalf("RecomputeCycle error: %v", err)
	}
	if report.Succeeded != 0 || len(report.Failures) != 2 {
		t.Errorf("succeeded/failed = %d/%d, want 0/2", report.Succeeded, len(report.Failures))
	}
	if d.engine.calls() != 0 {
		t.Error("engine should not run after cancellation")
	}
}

func TestRecomputeCycle_Errors(t *testing.T) {
	svc, _ := newTestPayoutService()
	if _, err := svc.RecomputeCycle(context.Background(), "nope"); !errors.Is(err, payout.ErrCycleNotFound) {
		t.Errorf("err = %v, want ErrCycleNotFound", err)
	}

	svc.creators = fakeCreators{err: errBoom}
	if _, err := svc.RecomputeCycle(context.Background(), "c-now"); !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestListCycle(t *testing.T) {
	svc, _ := newTestPayoutService("cr-2", "cr-1")
	ctx := context.Background()

	if _, err := svc.RecomputeCycle(ctx, "c-now"); err != nil {
		t.Fatalf("RecomputeCycle error: %v", err)
	}

	payouts, err := svc.ListCycle(ctx, "c-now")
	if err != nil {
		t.Fatalf("ListCycle error: %v", err)
	}
	if len(payouts) != 2 || payouts[0].CreatorID != "cr-1" {
		t.Errorf("payouts = %+v, want cr-1 then cr-2", payouts)
	}

	if _, err := svc.ListCycle(ctx, "nope"); !errors.Is(err, payout.ErrCycleNotFound) {
		t.Errorf("err = %v, want ErrCycleNotFound", err)
	}
}

func TestCacheService_DisabledIsNoop(t *testing.T) {
	c := NewCacheService("", nopLog)
	ctx := context.Background()

	if c.Client() != nil {
		t.Error("disabled cache should have no client")
	}
	if p, err := c.GetPayout(ctx, "cr-1", "c-now"); p != nil || err != nil {
		t.Errorf("GetPayout = %v, %v; want nil, nil", p, err)
	}
	if err := c.SetPayout(ctx, &model.Payout{CreatorID: "cr-1"}); err != nil {
		t.Errorf("SetPayout error: %v", err)
	}
	if err := c.InvalidatePayout(ctx, "cr-1", "c-now"); err != nil {
		t.Errorf("InvalidatePayout error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
}

func TestPayoutKey(t *testing.T) {
	if got := payoutKey("cr-1", "c-now"); got != "payout:cr-1:c-now" {
		t.Errorf("payoutKey = %q", got)
	}
}
