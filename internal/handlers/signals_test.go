package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"careerclips-backend/internal/models"
	"careerclips-backend/internal/repository"
)

type stubSignalStore struct {
	profile  *models.UserProfile
	saved    *models.UserProfile
	feedback *models.Feedback
	watched  []string
}

func (s *stubSignalStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	if s.profile == nil {
		return nil, repository.ErrNotFound
	}
	return s.profile, nil
}

func (s *stubSignalStore) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	s.saved = p
	return nil
}

func (s *stubSignalStore) SetFeedback(ctx context.Context, f *models.Feedback) error {
	s.feedback = f
	return nil
}

func (s *stubSignalStore) RecordWatch(ctx context.Context, userID uuid.UUID, videoID string) error {
	s.watched = append(s.watched, videoID)
	return nil
}

func TestSignalHandler_GetProfile_Missing(t *testing.T) {
	h := NewSignalHandler(&stubSignalStore{}, newStubVideoStore())
	userID := uuid.New()

	rr := httptest.NewRecorder()
	h.GetProfile(rr, authedRequest(http.MethodGet, "/api/v1/profile", nil, userID, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var p models.UserProfile
	json.NewDecoder(rr.Body).Decode(&p)
	if p.UserID != userID || p.Interests == nil || len(p.Interests) != 0 {
		t.Errorf("expected an empty profile for the caller, got %+v", p)
	}
}

func TestSignalHandler_UpdateProfile_CleansLists(t *testing.T) {
	store := &stubSignalStore{}
	h := NewSignalHandler(store, newStubVideoStore())
	userID := uuid.New()

	body := models.UpdateProfileRequest{
		Interests:   []string{"  Software ", "", "software", "Nursing"},
		CareerGoals: []string{"become a data engineer"},
	}
	rr := httptest.NewRecorder()
	h.UpdateProfile(rr, authedRequest(http.MethodPut, "/api/v1/profile", body, userID, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if store.saved == nil || store.saved.UserID != userID {
		t.Fatalf("expected profile to be saved for caller")
	}
	if got := strings.Join(store.saved.Interests, "|"); got != "Software|Nursing" {
		t.Errorf("expected trimmed, de-duplicated interests, got %q", got)
	}
	if store.saved.Skills == nil {
		t.Errorf("expected empty lists rather than nil")
	}
}

func TestSignalHandler_UpdateProfile_TooManyEntries(t *testing.T) {
	store := &stubSignalStore{}
	h := NewSignalHandler(store, newStubVideoStore())

	skills := make([]string, 0, maxProfileItems+1)
	for i := 0; i <= maxProfileItems; i++ {
		skills = append(skills, uuid.NewString())
	}
	rr := httptest.NewRecorder()
	h.UpdateProfile(rr, authedRequest(http.MethodPut, "/api/v1/profile", models.UpdateProfileRequest{Skills: skills}, uuid.New(), nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if store.saved != nil {
		t.Errorf("profile must not be saved on validation failure")
	}
}

func TestSignalHandler_SetFeedback(t *testing.T) {
	video := &models.Video{ID: "yt_a", AnalysisStatus: models.StatusCompleted}
	store := &stubSignalStore{}
	h := NewSignalHandler(store, newStubVideoStore(video))
	userID := uuid.New()

	body := models.FeedbackRequest{Liked: true, Saved: true}
	rr := httptest.NewRecorder()
	h.SetFeedback(rr, authedRequest(http.MethodPut, "/api/v1/videos/yt_a/feedback", body, userID, map[string]string{"id": "yt_a"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	fb := store.feedback
	if fb == nil || fb.UserID != userID || fb.VideoID != "yt_a" || !fb.Liked || fb.Disliked || !fb.Saved {
		t.Errorf("unexpected feedback stored: %+v", fb)
	}
}

func TestSignalHandler_UnknownVideo(t *testing.T) {
	store := &stubSignalStore{}
	h := NewSignalHandler(store, newStubVideoStore())
	params := map[string]string{"id": "yt_missing"}

	rr := httptest.NewRecorder()
	h.SetFeedback(rr, authedRequest(http.MethodPut, "/api/v1/videos/yt_missing/feedback", models.FeedbackRequest{Liked: true}, uuid.New(), params))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("feedback: expected status %d, got %d", http.StatusNotFound, rr.Code)
	}

	rr = httptest.NewRecorder()
	h.RecordWatch(rr, authedRequest(http.MethodPost, "/api/v1/videos/yt_missing/watch", nil, uuid.New(), params))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("watch: expected status %d, got %d", http.StatusNotFound, rr.Code)
	}

	if store.feedback != nil || len(store.watched) != 0 {
		t.Errorf("nothing should be recorded for an unknown video")
	}
}

func TestSignalHandler_RecordWatch(t *testing.T) {
	store := &stubSignalStore{}
	h := NewSignalHandler(store, newStubVideoStore(&models.Video{ID: "yt_a"}))

	rr := httptest.NewRecorder()
	h.RecordWatch(rr, authedRequest(http.MethodPost, "/api/v1/videos/yt_a/watch", nil, uuid.New(), map[string]string{"id": "yt_a"}))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if len(store.watched) != 1 || store.watched[0] != "yt_a" {
		t.Errorf("expected watch to be recorded, got %v", store.watched)
	}
}
