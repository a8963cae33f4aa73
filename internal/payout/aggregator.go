package payout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
	"github.com/AscendAI/creator-catalyst-sub000/pkg/hash"
)

// ErrCycleNotFound is returned when the requested cycle is not listed by the
// cycle source.
var ErrCycleNotFound = errors.New("payout cycle not found")

// LineKind classifies a billed line in a Result.
type LineKind string

const (
	LinePair      LineKind = "pair"
	LineCarriedIn LineKind = "carried_in"
	LineUnpaired  LineKind = "unpaired"
)

// Line is one billed unit: a pair or a single unpaired video.
type Line struct {
	Kind     LineKind        `json:"kind"`
	VideoIDs []string        `json:"videoIds"`
	Views    int64           `json:"views"`
	BasePay  decimal.Decimal `json:"basePay"`
	BonusPay decimal.Decimal `json:"bonusPay"`
}

// Result is the payout for one creator in one cycle. It is a pure function
// of the inputs read; persisting it is the caller's job.
type Result struct {
	CreatorID     string          `json:"creatorId"`
	CycleID       string          `json:"cycleId"`
	Mode          string          `json:"rateMode"`
	BasePay       decimal.Decimal `json:"basePay"`
	BonusPay      decimal.Decimal `json:"bonusPay"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	EligibleViews int64           `json:"eligibleViews"`
	IgRate        decimal.Decimal `json:"igRate"`
	TtRate        decimal.Decimal `json:"ttRate"`
	DefaultRate   decimal.Decimal `json:"defaultRate"`
	TierOrigin    TierOrigin      `json:"tierOrigin"`
	Lines         []Line          `json:"lines"`
	PulledForward []string        `json:"pulledForward"`
	InputsDigest  string          `json:"inputsDigest"`
}

// Payout converts the result into the row stored for the creator and cycle.
func (r *Result) Payout(computedAt time.Time) model.Payout {
	return model.Payout{
		CreatorID:           r.CreatorID,
		CycleID:             r.CycleID,
		BasePay:             r.BasePay,
		BonusPay:            r.BonusPay,
		TotalAmount:         r.TotalAmount,
		EligibleViews:       r.EligibleViews,
		SnapshotIgRate:      r.IgRate,
		SnapshotTtRate:      r.TtRate,
		SnapshotDefaultRate: r.DefaultRate,
		InputsDigest:        r.InputsDigest,
		ComputedAt:          computedAt,
	}
}

// Aggregator computes a creator's payout for a cycle.
type Aggregator struct {
	videos   VideoSource
	cycles   CycleSource
	rates    RateResolver
	matcher  VideoPairMatcher
	boundary BoundaryResolver
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithMatcher replaces the pair matcher. The boundary resolver keeps using
// the matcher it was built with unless WithBoundaryResolver is also given.
func WithMatcher(m VideoPairMatcher) Option {
	return func(a *Aggregator) { a.matcher = m }
}

// WithBoundaryResolver replaces the boundary resolver.
func WithBoundaryResolver(b BoundaryResolver) Option {
	return func(a *Aggregator) { a.boundary = b }
}

func NewAggregator(videos VideoSource, cycles CycleSource, rates RateResolver, opts ...Option) *Aggregator {
	matcher := GreedyPairMatcher{}
	a := &Aggregator{
		videos:   videos,
		cycles:   cycles,
		rates:    rates,
		matcher:  matcher,
		boundary: NewBoundaryResolver(matcher),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute runs the full pipeline: resolve rates, load the cycle and its
// neighbours, reclassify boundary videos, pair, and total. Read errors are
// returned unchanged in meaning; no partial result is produced.
func (a *Aggregator) Compute(ctx context.Context, creatorID, cycleID string, mode RateMode) (*Result, error) {
	cycles, err := a.cycles.ListCycles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	prev, cur, next, ok := Neighbors(cycles, cycleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCycleNotFound, cycleID)
	}

	rates, err := a.rates.Resolve(ctx, creatorID, cur, mode)
	if err != nil {
		return nil, fmt.Errorf("resolve rates: %w", err)
	}

	home, err := a.load(ctx, creatorID, cur)
	if err != nil {
		return nil, err
	}
	var prevVideos, nextVideos *CycleVideos
	if prev != nil {
		if prevVideos, err = a.loadPtr(ctx, creatorID, *prev); err != nil {
			return nil, err
		}
	}
	if next != nil {
		if nextVideos, err = a.loadPtr(ctx, creatorID, *next); err != nil {
			return nil, err
		}
	}

	adj := a.boundary.Resolve(home, prevVideos, nextVideos)
	ig, tt := SplitByPlatform(adj.Eligible)
	matched := a.matcher.Match(ig, tt)

	return Tally(creatorID, cur.ID, mode, rates, matched, adj), nil
}

func (a *Aggregator) load(ctx context.Context, creatorID string, c model.PayoutCycle) (CycleVideos, error) {
	videos, err := a.videos.ListEligibleVideos(ctx, creatorID, c.Range())
	if err != nil {
		return CycleVideos{}, fmt.Errorf("list videos for cycle %s: %w", c.ID, err)
	}
	return CycleVideos{Cycle: c, Videos: videos}, nil
}

func (a *Aggregator) loadPtr(ctx context.Context, creatorID string, c model.PayoutCycle) (*CycleVideos, error) {
	cv, err := a.load(ctx, creatorID, c)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// Tally totals a matched cycle. Pairs (home and carried in) earn both
// platform rates and one bonus on the winner's views; unpaired videos earn
// their platform rate and a bonus on their own views.
func Tally(creatorID, cycleID string, mode RateMode, rates Rates, matched MatchResult, adj Adjustment) *Result {
	res := &Result{
		CreatorID:     creatorID,
		CycleID:       cycleID,
		Mode:          mode.String(),
		BasePay:       decimal.Zero,
		BonusPay:      decimal.Zero,
		IgRate:        rates.Instagram,
		TtRate:        rates.TikTok,
		DefaultRate:   rates.Default,
		TierOrigin:    rates.TierOrigin,
		Lines:         []Line{},
		PulledForward: []string{},
	}

	addPair := func(kind LineKind, p Pair) {
		line := Line{
			Kind:     kind,
			VideoIDs: []string{p.Instagram.ID, p.TikTok.ID},
			Views:    p.Instagram.Views + p.TikTok.Views,
			BasePay:  rates.Instagram.Add(rates.TikTok),
			BonusPay: BonusFor(p.WinnerViews(), rates.Tiers),
		}
		res.add(line)
	}

	for _, p := range matched.Pairs {
		addPair(LinePair, p)
	}
	for _, p := range adj.CarriedIn {
		addPair(LineCarriedIn, p)
	}
	for _, v := range matched.Unpaired {
		res.add(Line{
			Kind:     LineUnpaired,
			VideoIDs: []string{v.ID},
			Views:    v.Views,
			BasePay:  rates.ForPlatform(v.Platform),
			BonusPay: BonusFor(v.Views, rates.Tiers),
		})
	}
	for _, v := range adj.PulledForward {
		res.PulledForward = append(res.PulledForward, v.ID)
	}

	res.TotalAmount = res.BasePay.Add(res.BonusPay)
	res.InputsDigest = digest(res, rates)
	return res
}

func (r *Result) add(line Line) {
	r.Lines = append(r.Lines, line)
	r.BasePay = r.BasePay.Add(line.BasePay)
	r.BonusPay = r.BonusPay.Add(line.BonusPay)
	r.EligibleViews += line.Views
}

// digest fingerprints everything that determined the result, in a stable
// order, so two computations can be compared for audit.
func digest(res *Result, rates Rates) string {
	parts := []string{
		res.CreatorID,
		res.CycleID,
		res.Mode,
		rates.Instagram.String(),
		rates.TikTok.String(),
		rates.Default.String(),
		string(rates.TierOrigin),
	}
	for _, t := range rates.Tiers {
		parts = append(parts, "tier:"+strconv.FormatInt(t.ViewThreshold, 10)+":"+t.BonusAmount.String())
	}

	lines := make([]string, 0, len(res.Lines))
	for _, l := range res.Lines {
		s := string(l.Kind) + ":" + strconv.FormatInt(l.Views, 10)
		for _, id := range l.VideoIDs {
			s += ":" + id
		}
		lines = append(lines, s)
	}
	sort.Strings(lines)
	parts = append(parts, lines...)

	pulled := append([]string(nil), res.PulledForward...)
	sort.Strings(pulled)
	for _, id := range pulled {
		parts = append(parts, "pulled:"+id)
	}
	return hash.Fingerprint(parts...)
}

// Neighbors finds cycleID in cycles and returns it with the cycles directly
// before and after it by start date.
func Neighbors(cycles []model.PayoutCycle, cycleID string) (prev *model.PayoutCycle, cur model.PayoutCycle, next *model.PayoutCycle, ok bool) {
	ordered := make([]model.PayoutCycle, len(cycles))
	copy(ordered, cycles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartDate.Before(ordered[j].StartDate)
	})

	for i := range ordered {
		if ordered[i].ID != cycleID {
			continue
		}
		if i > 0 {
			prev = &ordered[i-1]
		}
		if i+1 < len(ordered) {
			next = &ordered[i+1]
		}
		return prev, ordered[i], next, true
	}
	return nil, model.PayoutCycle{}, nil, false
}
