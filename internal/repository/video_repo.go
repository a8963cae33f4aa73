package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

// ListEligibleVideos returns the creator's videos posted inside the range
// that have a posted time and are not marked irrelevant.
func (r *VideoRepo) ListEligibleVideos(ctx context.Context, creatorID string, rng model.DateRange) ([]model.Video, error) {
	query := `
		SELECT video_id, creator_id, platform, posted_at, duration_seconds,
		       views, likes, comments, is_irrelevant
		FROM videos
		WHERE creator_id = $1
		  AND is_irrelevant = false
		  AND posted_at IS NOT NULL
		  AND posted_at >= $2 AND posted_at < $3
		ORDER BY posted_at ASC, video_id ASC`

	rows, err := r.pool.Query(ctx, query, creatorID, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []model.Video
	for rows.Next() {
		var v model.Video
		var platform string
		err := rows.Scan(
			&v.ID, &v.CreatorID, &platform, &v.PostedAt, &v.DurationSeconds,
			&v.Views, &v.Likes, &v.Comments, &v.IsIrrelevant,
		)
		if err != nil {
			return nil, err
		}
		v.Platform = model.Platform(platform)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// ListCreatorIDs returns every creator with a video posted inside the range,
// plus every creator that already has a payout row for cycleID so that a
// creator whose videos were all removed is recomputed to zero.
func (r *VideoRepo) ListCreatorIDs(ctx context.Context, rng model.DateRange, cycleID string) ([]string, error) {
	query := `
		SELECT creator_id FROM videos
		WHERE posted_at >= $1 AND posted_at < $2
		UNION
		SELECT creator_id FROM payouts
		WHERE cycle_id = $3
		ORDER BY creator_id`

	rows, err := r.pool.Query(ctx, query, rng.Start, rng.End, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
