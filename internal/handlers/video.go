package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"careerclips-backend/internal/middleware"
	"careerclips-backend/internal/models"
	"careerclips-backend/internal/repository"
	"careerclips-backend/internal/services"
)

type videoStore interface {
	Create(ctx context.Context, v *models.Video) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Video, error)
}

type jobCreator interface {
	Create(ctx context.Context, j *models.Job) error
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

type metadataFetcher interface {
	GetVideoMetadata(ctx context.Context, videoID string) (*models.YouTubeMetadata, error)
}

type VideoHandler struct {
	videos     videoStore
	jobs       jobCreator
	queue      jobEnqueuer
	metadata   metadataFetcher
	categories map[string]bool
}

func NewVideoHandler(videos videoStore, jobs jobCreator, queue jobEnqueuer, metadata metadataFetcher, taxonomy services.Taxonomy) *VideoHandler {
	categories := make(map[string]bool, len(taxonomy))
	for _, c := range taxonomy {
		categories[c.Name] = true
	}
	return &VideoHandler{
		videos:     videos,
		jobs:       jobs,
		queue:      queue,
		metadata:   metadata,
		categories: categories,
	}
}

type ingestResponse struct {
	Video *models.Video `json:"video"`
	JobID string        `json:"job_id,omitempty"`
}

// Ingest registers a YouTube video and queues its enrichment. Submitting a
// video that already exists returns the stored record without a new job.
func (h *VideoHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.IngestVideoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	req.URL = strings.TrimSpace(req.URL)
	sourceID := services.ExtractVideoID(req.URL)
	if sourceID == "" {
		fields["url"] = "A valid YouTube video URL is required"
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category != "" && !h.categories[category] {
		fields["category"] = "Unknown category"
	}
	if len(fields) > 0 {
		handleServiceError(w, r, &services.ValidationError{Fields: fields})
		return
	}

	video := &models.Video{
		ID:         services.VideoRecordID(req.URL),
		SourceURL:  "https://www.youtube.com/watch?v=" + sourceID,
		SourceID:   sourceID,
		SourceType: "youtube",
		Category:   category,
	}

	if meta, err := h.metadata.GetVideoMetadata(r.Context(), sourceID); err != nil {
		log.Printf("Metadata lookup failed for %s, ingesting without it: %v", sourceID, err)
	} else {
		video.Title = meta.Title
		video.Description = meta.Description
		video.Creator = meta.ChannelName
		video.ThumbnailURL = meta.ThumbnailURL
		video.Duration = meta.Duration
		video.ViewCount = meta.ViewCount
	}

	created, err := h.videos.Create(r.Context(), video)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !created {
		existing, err := h.videos.GetByID(r.Context(), video.ID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ingestResponse{Video: existing})
		return
	}

	job, err := h.startEnrichment(r.Context(), userID, video.ID, category, false)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ingestResponse{Video: video, JobID: job.ID.String()})
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, err := h.videos.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// Reprocess queues a fresh enrichment run, optionally with a manual category.
func (h *VideoHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	videoID := chi.URLParam(r, "id")

	var req models.ReprocessRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category != "" && !h.categories[category] {
		handleServiceError(w, r, &services.ValidationError{Fields: map[string]string{"category": "Unknown category"}})
		return
	}

	video, err := h.videos.GetByID(r.Context(), videoID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if video.AnalysisStatus == models.StatusProcessing {
		handleServiceError(w, r, &services.ConflictError{Message: "Video is already being enriched"})
		return
	}

	job, err := h.startEnrichment(r.Context(), userID, video.ID, category, true)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID.String(), "video_id": video.ID})
}

func (h *VideoHandler) startEnrichment(ctx context.Context, userID uuid.UUID, videoID, category string, reprocess bool) (*models.Job, error) {
	job := &models.Job{
		UserID:    userID,
		Type:      models.JobTypeEnrichment,
		VideoID:   videoID,
		Category:  category,
		Reprocess: reprocess,
	}
	if err := h.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job for %s: %w", videoID, err)
	}
	if err := h.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	log.Printf("Queued enrichment job %s for video %s (reprocess: %t)", job.ID, videoID, reprocess)
	return job, nil
}
