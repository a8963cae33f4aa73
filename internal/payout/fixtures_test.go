package payout

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

var (
	// cycle boundaries used across tests: three consecutive two-week cycles
	day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day1 = day0.AddDate(0, 0, 14)
	day2 = day1.AddDate(0, 0, 14)
	day3 = day2.AddDate(0, 0, 14)

	cycleA = model.PayoutCycle{ID: "cycle-a", StartDate: day0, EndDate: day1}
	cycleB = model.PayoutCycle{ID: "cycle-b", StartDate: day1, EndDate: day2}
	cycleC = model.PayoutCycle{ID: "cycle-c", StartDate: day2, EndDate: day3}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func igVideo(id string, posted time.Time, duration int, views int64) model.Video {
	return model.Video{
		ID:              id,
		CreatorID:       "creator-1",
		Platform:        model.PlatformInstagram,
		PostedAt:        timePtr(posted),
		DurationSeconds: intPtr(duration),
		Views:           views,
	}
}

func ttVideo(id string, posted time.Time, duration int, views int64) model.Video {
	v := igVideo(id, posted, duration, views)
	v.Platform = model.PlatformTikTok
	return v
}

func ids(videos []model.Video) []string {
	out := make([]string, 0, len(videos))
	for _, v := range videos {
		out = append(out, v.ID)
	}
	return out
}

func pairIDs(pairs []Pair) [][2]string {
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]string{p.Instagram.ID, p.TikTok.ID})
	}
	return out
}

// memStore is an in-memory implementation of every collaborator port.
type memStore struct {
	videos  []model.Video
	cycles  []model.PayoutCycle
	config  model.RateConfig
	tiers   []model.BonusTier
	payouts map[string]*model.Payout

	videoErr error
	cycleErr error
	rateErr  error
	tierErr  error

	videoCalls int
	tierCalls  int
}

func (m *memStore) ListEligibleVideos(_ context.Context, creatorID string, r model.DateRange) ([]model.Video, error) {
	m.videoCalls++
	if m.videoErr != nil {
		return nil, m.videoErr
	}
	var out []model.Video
	for _, v := range m.videos {
		if v.CreatorID != creatorID || !v.EligibleForPay() || !r.Contains(*v.PostedAt) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *memStore) ListCycles(context.Context) ([]model.PayoutCycle, error) {
	if m.cycleErr != nil {
		return nil, m.cycleErr
	}
	return m.cycles, nil
}

func (m *memStore) GetRateConfig(_ context.Context, creatorID string) (model.RateConfig, error) {
	if m.rateErr != nil {
		return model.RateConfig{}, m.rateErr
	}
	cfg := m.config
	cfg.CreatorID = creatorID
	return cfg, nil
}

func (m *memStore) GetLiveBonusTiers(context.Context) ([]model.BonusTier, error) {
	m.tierCalls++
	if m.tierErr != nil {
		return nil, m.tierErr
	}
	return m.tiers, nil
}

func (m *memStore) GetPayout(_ context.Context, creatorID, cycleID string) (*model.Payout, error) {
	if m.payouts == nil {
		return nil, nil
	}
	return m.payouts[creatorID+"/"+cycleID], nil
}

var errStoreDown = errors.New("store down")

func newStore(videos ...model.Video) *memStore {
	return &memStore{
		videos: videos,
		cycles: []model.PayoutCycle{cycleA, cycleB, cycleC},
		config: model.RateConfig{DefaultBasePay: dec("10")},
		tiers:  []model.BonusTier{{ViewThreshold: 1000, BonusAmount: dec("5")}},
	}
}

func newTestAggregator(s *memStore) *Aggregator {
	return NewAggregator(s, s, NewRateResolver(s, s, s))
}
