package payout

import (
	"time"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

// BoundaryWindow is how close to a cycle edge a video must be posted to be
// considered for a cross-cycle pair.
const BoundaryWindow = 24 * time.Hour

// CycleVideos is a cycle together with one creator's videos in it.
type CycleVideos struct {
	Cycle  model.PayoutCycle
	Videos []model.Video
}

// Adjustment is the home cycle's video set after boundary reclassification.
type Adjustment struct {
	// Eligible are the home videos still to be paired and billed here.
	Eligible []model.Video
	// CarriedIn pairs a previous-cycle upload with its first-day counterpart
	// in the home cycle. Each is billed here as a single pair.
	CarriedIn []Pair
	// PulledForward are home videos whose counterpart was posted on the
	// first day of the next cycle. They are billed there, not here.
	PulledForward []model.Video
}

// BoundaryResolver reassigns videos near a cycle edge to the cycle where
// their cross-platform counterpart lives. prev and next may be nil.
type BoundaryResolver interface {
	Resolve(home CycleVideos, prev, next *CycleVideos) Adjustment
}

// WindowBoundaryResolver cross-matches unpaired videos within Window of a
// cycle edge against unpaired videos within Window of the adjacent edge,
// using the same pairing rule as the home cycle.
type WindowBoundaryResolver struct {
	matcher VideoPairMatcher
	window  time.Duration
}

func NewBoundaryResolver(matcher VideoPairMatcher) *WindowBoundaryResolver {
	return &WindowBoundaryResolver{matcher: matcher, window: BoundaryWindow}
}

// Resolve implements BoundaryResolver. Nothing is persisted; the result is
// recomputed from the current video sets on every call.
func (r *WindowBoundaryResolver) Resolve(home CycleVideos, prev, next *CycleVideos) Adjustment {
	homeVideos := payableIn(home.Cycle, home.Videos)
	homeUnpaired := r.unpaired(homeVideos)

	var adj Adjustment
	consumed := make(map[string]bool)

	if prev != nil {
		tail := r.nearEnd(prev.Cycle, r.unpaired(payableIn(prev.Cycle, prev.Videos)))
		head := r.nearStart(home.Cycle, homeUnpaired)
		adj.CarriedIn = r.crossMatch(tail, head)
		for _, p := range adj.CarriedIn {
			consumed[homeSide(p, head).ID] = true
		}
	}

	pulled := make(map[string]bool)
	if next != nil {
		tail := r.nearEnd(home.Cycle, without(homeUnpaired, consumed))
		head := r.nearStart(next.Cycle, r.unpaired(payableIn(next.Cycle, next.Videos)))
		for _, p := range r.crossMatch(tail, head) {
			v := homeSide(p, tail)
			pulled[v.ID] = true
			adj.PulledForward = append(adj.PulledForward, v)
		}
	}

	for _, v := range homeVideos {
		if consumed[v.ID] || pulled[v.ID] {
			continue
		}
		adj.Eligible = append(adj.Eligible, v)
	}
	return adj
}

func (r *WindowBoundaryResolver) unpaired(videos []model.Video) []model.Video {
	ig, tt := SplitByPlatform(videos)
	return r.matcher.Match(ig, tt).Unpaired
}

// crossMatch pairs older Instagram with newer TikTok uploads and newer
// Instagram with older TikTok uploads. Same-side pairs are never formed.
func (r *WindowBoundaryResolver) crossMatch(older, newer []model.Video) []Pair {
	if len(older) == 0 || len(newer) == 0 {
		return nil
	}
	olderIG, olderTT := SplitByPlatform(older)
	newerIG, newerTT := SplitByPlatform(newer)

	var pairs []Pair
	pairs = append(pairs, r.matcher.Match(olderIG, newerTT).Pairs...)
	pairs = append(pairs, r.matcher.Match(newerIG, olderTT).Pairs...)
	return pairs
}

func (r *WindowBoundaryResolver) nearEnd(c model.PayoutCycle, videos []model.Video) []model.Video {
	var out []model.Video
	for _, v := range videos {
		if v.PostedAt != nil && c.EndDate.Sub(*v.PostedAt) <= r.window {
			out = append(out, v)
		}
	}
	return out
}

func (r *WindowBoundaryResolver) nearStart(c model.PayoutCycle, videos []model.Video) []model.Video {
	var out []model.Video
	for _, v := range videos {
		if v.PostedAt != nil && v.PostedAt.Sub(c.StartDate) <= r.window {
			out = append(out, v)
		}
	}
	return out
}

// payableIn keeps videos that can earn base pay, sit on a known platform and
// were posted inside the cycle.
func payableIn(c model.PayoutCycle, videos []model.Video) []model.Video {
	rng := c.Range()
	out := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		if !v.EligibleForPay() || !v.Platform.Valid() || !rng.Contains(*v.PostedAt) {
			continue
		}
		out = append(out, v)
	}
	return sortedByPosted(out)
}

// homeSide returns whichever member of p appears in side.
func homeSide(p Pair, side []model.Video) model.Video {
	for _, v := range side {
		if v.ID == p.Instagram.ID {
			return p.Instagram
		}
	}
	return p.TikTok
}

func without(videos []model.Video, drop map[string]bool) []model.Video {
	if len(drop) == 0 {
		return videos
	}
	out := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		if !drop[v.ID] {
			out = append(out, v)
		}
	}
	return out
}

// AffectedCycles returns the ids of the cycles whose payouts can change when a
// video posted at postedAt changes: the cycle containing it, the previous
// cycle when it sits in the first BoundaryWindow, and the next cycle when it
// sits in the last BoundaryWindow and that cycle has already started by now.
func AffectedCycles(cycles []model.PayoutCycle, postedAt, now time.Time) []string {
	for _, c := range cycles {
		if !c.Range().Contains(postedAt) {
			continue
		}
		prev, home, next, _ := Neighbors(cycles, c.ID)
		ids := []string{home.ID}
		if prev != nil && postedAt.Sub(home.StartDate) <= BoundaryWindow {
			ids = append(ids, prev.ID)
		}
		if next != nil && home.EndDate.Sub(postedAt) <= BoundaryWindow && !next.StartDate.After(now) {
			ids = append(ids, next.ID)
		}
		return ids
	}
	return nil
}
