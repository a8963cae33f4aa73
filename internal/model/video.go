package model

import "time"

// Platform identifies where a video was posted.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	return p == PlatformInstagram || p == PlatformTikTok
}

// Video is a creator upload as normalized by ingestion. The payout engine
// reads and classifies videos but never mutates them.
type Video struct {
	ID              string     `json:"id"`
	CreatorID       string     `json:"creatorId"`
	Platform        Platform   `json:"platform"`
	PostedAt        *time.Time `json:"postedAt,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	Views           int64      `json:"views"`
	Likes           int64      `json:"likes"`
	Comments        int64      `json:"comments"`
	IsIrrelevant    bool       `json:"isIrrelevant"`
}

// EligibleForPay reports whether the video can earn base pay at all: it must
// have a posted timestamp and must not have been marked irrelevant.
func (v Video) EligibleForPay() bool {
	return v.PostedAt != nil && !v.IsIrrelevant
}

// Pairable reports whether the video can take part in cross-platform
// pairing. Duration is only required here, not for base pay.
func (v Video) Pairable() bool {
	return v.EligibleForPay() && v.DurationSeconds != nil
}

// PostedBefore orders videos by posted time, then by ID. Videos without a
// posted time sort last.
func PostedBefore(a, b Video) bool {
	switch {
	case a.PostedAt == nil && b.PostedAt == nil:
		return a.ID < b.ID
	case a.PostedAt == nil:
		return false
	case b.PostedAt == nil:
		return true
	}
	if !a.PostedAt.Equal(*b.PostedAt) {
		return a.PostedAt.Before(*b.PostedAt)
	}
	return a.ID < b.ID
}
