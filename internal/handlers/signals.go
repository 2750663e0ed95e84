package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"careerclips-backend/internal/middleware"
	"careerclips-backend/internal/models"
	"careerclips-backend/internal/repository"
)

const (
	maxProfileItems   = 25
	maxProfileItemLen = 100
)

type signalStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, p *models.UserProfile) error
	SetFeedback(ctx context.Context, f *models.Feedback) error
	RecordWatch(ctx context.Context, userID uuid.UUID, videoID string) error
}

type videoGetter interface {
	GetByID(ctx context.Context, id string) (*models.Video, error)
}

// SignalHandler serves the per-user inputs to recommendation.
type SignalHandler struct {
	signals signalStore
	videos  videoGetter
}

func NewSignalHandler(signals signalStore, videos videoGetter) *SignalHandler {
	return &SignalHandler{signals: signals, videos: videos}
}

func (h *SignalHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profile, err := h.signals.GetProfile(r.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		profile = &models.UserProfile{
			UserID:        userID,
			Interests:     []string{},
			Skills:        []string{},
			CareerGoals:   []string{},
			LearningPaths: []string{},
		}
	} else if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *SignalHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	profile := &models.UserProfile{
		UserID:        middleware.GetUserID(r.Context()),
		Interests:     cleanList(req.Interests, "interests", fields),
		Skills:        cleanList(req.Skills, "skills", fields),
		CareerGoals:   cleanList(req.CareerGoals, "careerGoals", fields),
		LearningPaths: cleanList(req.LearningPaths, "learningPaths", fields),
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if err := h.signals.UpsertProfile(r.Context(), profile); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// SetFeedback replaces the caller's flags for a video. Flags are independent.
func (h *SignalHandler) SetFeedback(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	var req models.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.videoExists(w, r, videoID) {
		return
	}

	fb := &models.Feedback{
		UserID:   middleware.GetUserID(r.Context()),
		VideoID:  videoID,
		Liked:    req.Liked,
		Disliked: req.Disliked,
		Saved:    req.Saved,
	}
	if err := h.signals.SetFeedback(r.Context(), fb); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

func (h *SignalHandler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")
	if !h.videoExists(w, r, videoID) {
		return
	}

	if err := h.signals.RecordWatch(r.Context(), middleware.GetUserID(r.Context()), videoID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SignalHandler) videoExists(w http.ResponseWriter, r *http.Request, videoID string) bool {
	_, err := h.videos.GetByID(r.Context(), videoID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return false
	}
	if err != nil {
		handleServiceError(w, r, err)
		return false
	}
	return true
}

// cleanList trims entries, drops blanks and duplicates, and records a field
// error when the list is too long.
func cleanList(items []string, field string, fields map[string]string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(item) > maxProfileItemLen {
			fields[field] = "Entries must be at most 100 characters"
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	if len(out) > maxProfileItems {
		fields[field] = "At most 25 entries are allowed"
	}
	return out
}
