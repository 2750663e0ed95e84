package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"careerclips-backend/internal/models"
)

// UserSignalRepo stores the per-user inputs to recommendation: profile,
// feedback flags and watch history.
type UserSignalRepo struct {
	pool *pgxpool.Pool
}

func NewUserSignalRepo(pool *pgxpool.Pool) *UserSignalRepo {
	return &UserSignalRepo{pool: pool}
}

func (r *UserSignalRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, interests, skills, career_goals, learning_paths, updated_at
		FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Interests, &p.Skills, &p.CareerGoals, &p.LearningPaths, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *UserSignalRepo) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	query := `INSERT INTO user_profiles (user_id, interests, skills, career_goals, learning_paths, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			interests = EXCLUDED.interests,
			skills = EXCLUDED.skills,
			career_goals = EXCLUDED.career_goals,
			learning_paths = EXCLUDED.learning_paths,
			updated_at = NOW()
		RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		p.UserID, nonNil(p.Interests), nonNil(p.Skills), nonNil(p.CareerGoals), nonNil(p.LearningPaths),
	).Scan(&p.UpdatedAt)
}

func (r *UserSignalRepo) ListFeedback(ctx context.Context, userID uuid.UUID) (map[string]models.Feedback, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT video_id, liked, disliked, saved FROM video_feedback WHERE user_id = $1", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]models.Feedback{}
	for rows.Next() {
		f := models.Feedback{UserID: userID}
		if err := rows.Scan(&f.VideoID, &f.Liked, &f.Disliked, &f.Saved); err != nil {
			return nil, err
		}
		out[f.VideoID] = f
	}
	return out, rows.Err()
}

// SetFeedback overwrites all three flags for a (user, video) pair.
func (r *UserSignalRepo) SetFeedback(ctx context.Context, f *models.Feedback) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO video_feedback (user_id, video_id, liked, disliked, saved, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, video_id) DO UPDATE SET
			liked = EXCLUDED.liked,
			disliked = EXCLUDED.disliked,
			saved = EXCLUDED.saved,
			updated_at = NOW()`,
		f.UserID, f.VideoID, f.Liked, f.Disliked, f.Saved)
	return err
}

func (r *UserSignalRepo) RecordWatch(ctx context.Context, userID uuid.UUID, videoID string) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO watch_history (user_id, video_id) VALUES ($1, $2)", userID, videoID)
	return err
}

// RecentWatches returns the video ids of the latest limit watch entries,
// most recent first. A video watched twice appears twice.
func (r *UserSignalRepo) RecentWatches(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT video_id FROM watch_history
		WHERE user_id = $1
		ORDER BY watched_at DESC, id DESC
		LIMIT $2`, userID, limit)
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

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
