package payout

import (
	"sort"
	"time"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

const (
	// DurationToleranceSeconds is the largest duration difference, inclusive,
	// between two uploads of the same content.
	DurationToleranceSeconds = 1
	// PostingWindow is the largest gap, inclusive, between the posted times of
	// two uploads of the same content.
	PostingWindow = 24 * time.Hour
)

// Pair is one piece of content cross-posted to both platforms.
type Pair struct {
	Instagram model.Video `json:"instagram"`
	TikTok    model.Video `json:"tiktok"`
}

// WinnerViews returns the larger view count of the two uploads. A pair's
// bonus is looked up once, on this value.
func (p Pair) WinnerViews() int64 {
	return max(p.Instagram.Views, p.TikTok.Views)
}

// MatchResult holds the pairs found and every video left without a partner.
type MatchResult struct {
	Pairs    []Pair
	Unpaired []model.Video
}

// VideoPairMatcher pairs Instagram uploads with TikTok uploads of the same
// content.
type VideoPairMatcher interface {
	Match(instagram, tiktok []model.Video) MatchResult
}

// GreedyPairMatcher walks Instagram videos in posted order and gives each one
// the best still-unused TikTok candidate. It is not a globally optimal
// assignment; the scan order and tie-break are part of the payout contract.
type GreedyPairMatcher struct{}

// Match implements VideoPairMatcher. Videos lacking a duration or posted time
// are returned unpaired.
func (GreedyPairMatcher) Match(instagram, tiktok []model.Video) MatchResult {
	igs := sortedByPosted(instagram)
	tts := sortedByPosted(tiktok)
	used := make([]bool, len(tts))

	var res MatchResult
	for _, ig := range igs {
		if !ig.Pairable() {
			res.Unpaired = append(res.Unpaired, ig)
			continue
		}

		best := -1
		var bestDur int
		var bestGap time.Duration
		for j, tt := range tts {
			if used[j] {
				continue
			}
			dur, gap, ok := Compatible(ig, tt)
			if !ok {
				continue
			}
			// Duration closeness wins over posting closeness. Strict
			// comparison keeps the earliest candidate on a full tie.
			if best < 0 || dur < bestDur || (dur == bestDur && gap < bestGap) {
				best, bestDur, bestGap = j, dur, gap
			}
		}

		if best < 0 {
			res.Unpaired = append(res.Unpaired, ig)
			continue
		}
		used[best] = true
		res.Pairs = append(res.Pairs, Pair{Instagram: ig, TikTok: tts[best]})
	}

	for j, tt := range tts {
		if !used[j] {
			res.Unpaired = append(res.Unpaired, tt)
		}
	}
	return res
}

// Compatible reports the duration difference and posting gap between a and b,
// and whether both are within tolerance.
func Compatible(a, b model.Video) (durationDiff int, gap time.Duration, ok bool) {
	if !a.Pairable() || !b.Pairable() {
		return 0, 0, false
	}
	durationDiff = absInt(*a.DurationSeconds - *b.DurationSeconds)
	gap = a.PostedAt.Sub(*b.PostedAt)
	if gap < 0 {
		gap = -gap
	}
	ok = durationDiff <= DurationToleranceSeconds && gap <= PostingWindow
	return durationDiff, gap, ok
}

// SplitByPlatform separates videos into Instagram and TikTok lists. Videos on
// any other platform are dropped.
func SplitByPlatform(videos []model.Video) (instagram, tiktok []model.Video) {
	for _, v := range videos {
		switch v.Platform {
		case model.PlatformInstagram:
			instagram = append(instagram, v)
		case model.PlatformTikTok:
			tiktok = append(tiktok, v)
		}
	}
	return instagram, tiktok
}

func sortedByPosted(videos []model.Video) []model.Video {
	out := make([]model.Video, len(videos))
	copy(out, videos)
	sort.SliceStable(out, func(i, j int) bool {
		return model.PostedBefore(out[i], out[j])
	})
	return out
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
