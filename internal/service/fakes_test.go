package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
	"github.com/AscendAI/creator-catalyst-sub000/internal/payout"
	"github.com/AscendAI/creator-catalyst-sub000/internal/repository"
)

var (
	testNow  = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	errBoom  = errors.New("boom")
	nopLog   = zerolog.Nop()
	twoWeeks = 14 * 24 * time.Hour
)

// testCycles returns an ended cycle followed by the cycle active at testNow.
func testCycles() []model.PayoutCycle {
	activeStart := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	return []model.PayoutCycle{
		{ID: "c-old", StartDate: activeStart.Add(-twoWeeks), EndDate: activeStart},
		{ID: "c-now", StartDate: activeStart, EndDate: activeStart.Add(twoWeeks)},
	}
}

type modeKey struct {
	creatorID, cycleID string
}

type fakeEngine struct {
	mu    sync.Mutex
	modes map[modeKey]payout.RateMode
	fail  map[string]error // by creator id
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{modes: map[modeKey]payout.RateMode{}, fail: map[string]error{}}
}

func (e *fakeEngine) Compute(_ context.Context, creatorID, cycleID string, mode payout.RateMode) (*payout.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fail[creatorID]; err != nil {
		return nil, err
	}
	e.modes[modeKey{creatorID, cycleID}] = mode
	return &payout.Result{
		CreatorID:   creatorID,
		CycleID:     cycleID,
		Mode:        mode.String(),
		TotalAmount: decimal.NewFromInt(10),
	}, nil
}

func (e *fakeEngine) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.modes)
}

type fakeCycleStore struct {
	mu        sync.Mutex
	cycles    []model.PayoutCycle
	listErr   error
	snapshots map[string]decimal.Decimal
}

func (s *fakeCycleStore) ListCycles(context.Context) ([]model.PayoutCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]model.PayoutCycle, len(s.cycles))
	copy(out, s.cycles)
	return out, nil
}

func (s *fakeCycleStore) SaveSnapshot(_ context.Context, cycleID string, basePay decimal.Decimal, tiers *model.TierSnapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cycles {
		if s.cycles[i].ID != cycleID || s.cycles[i].HasSnapshot() {
			continue
		}
		s.cycles[i].BasePayPerVideoSnapshot = decimal.NewNullDecimal(basePay)
		s.cycles[i].BonusTiersSnapshot = tiers
		if s.snapshots == nil {
			s.snapshots = map[string]decimal.Decimal{}
		}
		s.snapshots[cycleID] = basePay
		return true, nil
	}
	return false, nil
}

type fakePayoutStore struct {
	mu        sync.Mutex
	rows      map[modeKey]model.Payout
	upsertErr error
	reads     int
}

func newFakePayoutStore() *fakePayoutStore {
	return &fakePayoutStore{rows: map[modeKey]model.Payout{}}
}

func (s *fakePayoutStore) GetPayout(_ context.Context, creatorID, cycleID string) (*model.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	p, ok := s.rows[modeKey{creatorID, cycleID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *fakePayoutStore) ListByCycle(_ context.Context, cycleID string) ([]model.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payout
	for k, p := range s.rows {
		if k.cycleID == cycleID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatorID < out[j].CreatorID })
	return out, nil
}

func (s *fakePayoutStore) Upsert(_ context.Context, _ repository.Execer, p model.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.rows[modeKey{p.CreatorID, p.CycleID}] = p
	return nil
}

func (s *fakePayoutStore) WithLock(_ context.Context, _, _ string, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (s *fakePayoutStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeCreators struct {
	ids []string
	err error
}

func (f fakeCreators) ListCreatorIDs(context.Context, model.DateRange, string) ([]string, error) {
	return f.ids, f.err
}

type fakeCache struct {
	mu          sync.Mutex
	rows        map[modeKey]model.Payout
	invalidated []modeKey
}

func newFakeCache() *fakeCache {
	return &fakeCache{rows: map[modeKey]model.Payout{}}
}

func (c *fakeCache) GetPayout(_ context.Context, creatorID, cycleID string) (*model.Payout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.rows[modeKey{creatorID, cycleID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *fakeCache) SetPayout(_ context.Context, p *model.Payout) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[modeKey{p.CreatorID, p.CycleID}] = *p
	return nil
}

func (c *fakeCache) InvalidatePayout(_ context.Context, creatorID, cycleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := modeKey{creatorID, cycleID}
	delete(c.rows, k)
	c.invalidated = append(c.invalidated, k)
	return nil
}

type testDeps struct {
	engine *fakeEngine
	cycles *fakeCycleStore
	store  *fakePayoutStore
	cache  *fakeCache
}

func newTestPayoutService(creators ...string) (*PayoutService, testDeps) {
	d := testDeps{
		engine: newFakeEngine(),
		cycles: &fakeCycleStore{cycles: testCycles()},
		store:  newFakePayoutStore(),
		cache:  newFakeCache(),
	}
	svc := NewPayoutService(PayoutServiceConfig{
		Engine:      d.engine,
		Cycles:      d.cycles,
		Store:       d.store,
		Creators:    fakeCreators{ids: creators},
		Cache:       d.cache,
		Concurrency: 2,
		Logger:      nopLog,
		Now:         func() time.Time { return testNow },
	})
	return svc, d
}
