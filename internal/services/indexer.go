package services

import (
	"context"
	"fmt"
	"strings"

	"careerclips-backend/internal/models"
)

type VideoReader interface {
	GetByID(ctx context.Context, id string) (*models.Video, error)
}

type VideoEmbeddingWriter interface {
	SaveVideoEmbedding(ctx context.Context, videoID, model string, vec []float32) error
}

// VideoIndexer stores the embedding used by embedding-similarity recommendations.
type VideoIndexer struct {
	videos   VideoReader
	embedder Embedder
	vectors  VideoEmbeddingWriter
	model    string
}

func NewVideoIndexer(videos VideoReader, embedder Embedder, vectors VideoEmbeddingWriter, model string) *VideoIndexer {
	return &VideoIndexer{videos: videos, embedder: embedder, vectors: vectors, model: model}
}

// Index embeds a completed video. Videos without an analysis are rejected.
func (ix *VideoIndexer) Index(ctx context.Context, videoID string) error {
	v, err := ix.videos.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to load video %s: %w", videoID, err)
	}
	if v.AnalysisStatus != models.StatusCompleted || v.AIAnalysis == nil {
		return fmt.Errorf("video %s is not enriched", videoID)
	}

	vec, err := ix.embedder.Embed(ctx, VideoEmbeddingText(v))
	if err != nil {
		return fmt.Errorf("failed to embed video %s: %w", videoID, err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding for video %s", videoID)
	}

	if err := ix.vectors.SaveVideoEmbedding(ctx, videoID, ix.model, vec); err != nil {
		return fmt.Errorf("failed to save embedding for video %s: %w", videoID, err)
	}
	return nil
}

// VideoEmbeddingText is the text embedded for a video: editorial fields plus
// the career-relevant parts of its analysis.
func VideoEmbeddingText(v *models.Video) string {
	var b strings.Builder
	b.WriteString(v.Title)
	if v.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", v.Category)
	}
	if v.AIAnalysis != nil && v.AIAnalysis.Summary != "" {
		fmt.Fprintf(&b, "\n%s", v.AIAnalysis.Summary)
	}
	for _, field := range []struct {
		label string
		items []string
	}{
		{"Career pathways", v.CareerPathways},
		{"Skills", v.SkillsHighlighted},
		{"Themes", v.KeyThemes},
		{"Work environments", v.WorkEnvironments},
	} {
		if len(field.items) > 0 {
			fmt.Fprintf(&b, "\n%s: %s", field.label, strings.Join(field.items, ", "))
		}
	}
	return b.String()
}
