package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"careerclips-backend/internal/models"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

const videoColumns = `id, source_url, source_id, source_type, title, description, thumbnail_url, creator,
	duration_seconds, category, view_count, analysis_status, ai_analysis, transcript, analysis_error,
	last_analyzed, skills_highlighted, career_pathways, key_themes, hashtags, education_required,
	work_environments, career_stage, created_at, updated_at`

func scanVideo(row pgx.Row) (*models.Video, error) {
	v := &models.Video{}
	var analysisJSON, transcriptJSON []byte

	err := row.Scan(
		&v.ID, &v.SourceURL, &v.SourceID, &v.SourceType, &v.Title, &v.Description, &v.ThumbnailURL,
		&v.Creator, &v.Duration, &v.Category, &v.ViewCount, &v.AnalysisStatus, &analysisJSON,
		&transcriptJSON, &v.AnalysisError, &v.LastAnalyzed, &v.SkillsHighlighted, &v.CareerPathways,
		&v.KeyThemes, &v.Hashtags, &v.EducationRequired, &v.WorkEnvironments, &v.CareerStage,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(analysisJSON) > 0 {
		v.AIAnalysis = &models.StructuredAnalysis{}
		if err := json.Unmarshal(analysisJSON, v.AIAnalysis); err != nil {
			return nil, fmt.Errorf("failed to decode ai_analysis for %s: %w", v.ID, err)
		}
	}
	if len(transcriptJSON) > 0 {
		v.Transcript = &models.Transcript{}
		if err := json.Unmarshal(transcriptJSON, v.Transcript); err != nil {
			return nil, fmt.Errorf("failed to decode transcript for %s: %w", v.ID, err)
		}
	}

	return v, nil
}

func (r *VideoRepo) queryVideos(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

// Create inserts a pending video. created is false when the id already exists.
func (r *VideoRepo) Create(ctx context.Context, v *models.Video) (bool, error) {
	if v.AnalysisStatus == "" {
		v.AnalysisStatus = models.StatusPending
	}

	query := `INSERT INTO videos (id, source_url, source_id, source_type, title, description, thumbnail_url,
			creator, duration_seconds, category, view_count, analysis_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		v.ID, v.SourceURL, v.SourceID, v.SourceType, v.Title, v.Description, v.ThumbnailURL,
		v.Creator, v.Duration, v.Category, v.ViewCount, v.AnalysisStatus,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *VideoRepo) GetByID(ctx context.Context, id string) (*models.Video, error) {
	v, err := scanVideo(r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// MarkProcessing moves a pending video to processing. It reports false when
// another writer already moved it on.
func (r *VideoRepo) MarkProcessing(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE videos SET analysis_status = 'processing', updated_at = NOW()
		WHERE id = $1 AND analysis_status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ResetToPending re-arms a video for enrichment. A video that is currently
// processing is left alone.
func (r *VideoRepo) ResetToPending(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE videos SET analysis_status = 'pending', updated_at = NOW()
		WHERE id = $1 AND analysis_status <> 'processing'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM videos WHERE id = $1)", id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// MergeUpdate writes only the fields set in u, in a single statement.
func (r *VideoRepo) MergeUpdate(ctx context.Context, id string, u *models.VideoUpdate) error {
	var sets []string
	var args []any

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Category != nil {
		set("category", *u.Category)
	}
	if u.AnalysisStatus != nil {
		set("analysis_status", *u.AnalysisStatus)
	}
	if u.AIAnalysis != nil {
		b, err := json.Marshal(u.AIAnalysis)
		if err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
		set("ai_analysis", b)
	}
	if u.Transcript != nil {
		b, err := json.Marshal(u.Transcript)
		if err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
		set("transcript", b)
	}
	if u.ClearError {
		sets = append(sets, "analysis_error = NULL")
	} else if u.AnalysisError != nil {
		set("analysis_error", *u.AnalysisError)
	}
	if u.LastAnalyzed != nil {
		set("last_analyzed", *u.LastAnalyzed)
	}
	if u.SkillsHighlighted != nil {
		set("skills_highlighted", u.SkillsHighlighted)
	}
	if u.CareerPathways != nil {
		set("career_pathways", u.CareerPathways)
	}
	if u.KeyThemes != nil {
		set("key_themes", u.KeyThemes)
	}
	if u.Hashtags != nil {
		set("hashtags", u.Hashtags)
	}
	if u.EducationRequired != nil {
		set("education_required", u.EducationRequired)
	}
	if u.WorkEnvironments != nil {
		set("work_environments", u.WorkEnvironments)
	}
	if u.CareerStage != nil {
		set("career_stage", *u.CareerStage)
	}

	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE videos SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VideoRepo) ListCompleted(ctx context.Context) ([]models.Video, error) {
	return r.queryVideos(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE analysis_status = 'completed' ORDER BY created_at ASC")
}

func (r *VideoRepo) ListByCategories(ctx context.Context, categories []string, limit int) ([]models.Video, error) {
	return r.queryVideos(ctx,
		"SELECT "+videoColumns+` FROM videos
		WHERE analysis_status = 'completed' AND lower(category) = ANY($1)
		ORDER BY view_count DESC, created_at ASC LIMIT $2`,
		categories, limit)
}

func (r *VideoRepo) ListMostViewed(ctx context.Context, limit int) ([]models.Video, error) {
	return r.queryVideos(ctx,
		"SELECT "+videoColumns+` FROM videos
		WHERE analysis_status = 'completed'
		ORDER BY view_count DESC, created_at ASC LIMIT $1`,
		limit)
}

// FailStaleProcessing marks videos that have sat in processing since before
// cutoff as failed and returns their ids.
func (r *VideoRepo) FailStaleProcessing(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE videos SET analysis_status = 'failed', analysis_error = $2, updated_at = NOW()
		WHERE analysis_status = 'processing' AND updated_at < $1
		RETURNING id`, cutoff, reason)
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
