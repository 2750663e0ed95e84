package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"careerclips-backend/internal/middleware"
	"careerclips-backend/internal/models"
	"careerclips-backend/internal/repository"
	"careerclips-backend/internal/services"
)

type stubVideoStore struct {
	videos map[string]*models.Video
}

func newStubVideoStore(videos ...*models.Video) *stubVideoStore {
	s := &stubVideoStore{videos: map[string]*models.Video{}}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *stubVideoStore) Create(ctx context.Context, v *models.Video) (bool, error) {
	if _, ok := s.videos[v.ID]; ok {
		return false, nil
	}
	v.AnalysisStatus = models.StatusPending
	s.videos[v.ID] = v
	return true, nil
}

func (s *stubVideoStore) GetByID(ctx context.Context, id string) (*models.Video, error) {
	v, ok := s.videos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

type stubJobCreator struct {
	created []*models.Job
}

func (s *stubJobCreator) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = "pending"
	s.created = append(s.created, j)
	return nil
}

type stubEnqueuer struct {
	enqueued []*models.Job
	err      error
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, job *models.Job) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, job)
	return nil
}

type stubMetadata struct {
	meta *models.YouTubeMetadata
	err  error
}

func (s *stubMetadata) GetVideoMetadata(ctx context.Context, videoID string) (*models.YouTubeMetadata, error) {
	return s.meta, s.err
}

func newTestVideoHandler(store *stubVideoStore, jobs *stubJobCreator, queue *stubEnqueuer, meta *stubMetadata) *VideoHandler {
	return NewVideoHandler(store, jobs, queue, meta, services.DefaultTaxonomy())
}

func authedRequest(method, target string, body interface{}, userID uuid.UUID, params map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

func TestVideoHandler_Ingest_QueuesEnrichment(t *testing.T) {
	store := newStubVideoStore()
	jobs := &stubJobCreator{}
	queue := &stubEnqueuer{}
	meta := &stubMetadata{meta: &models.YouTubeMetadata{Title: "Day in the life of a nurse", ViewCount: 4200}}
	h := newTestVideoHandler(store, jobs, queue, meta)
	userID := uuid.New()

	body := models.IngestVideoRequest{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Category: "Healthcare"}
	rr := httptest.NewRecorder()
	h.Ingest(rr, authedRequest(http.MethodPost, "/api/v1/videos", body, userID, nil))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d: %s", http.StatusAccepted, rr.Code, rr.Body.String())
	}

	v, ok := store.videos["yt_dQw4w9WgXcQ"]
	if !ok {
		t.Fatalf("expected video to be stored under its record id")
	}
	if v.Title != "Day in the life of a nurse" || v.ViewCount != 4200 {
		t.Errorf("expected metadata to be copied, got %+v", v)
	}
	if v.Category != "healthcare" {
		t.Errorf("expected normalized category 'healthcare', got %q", v.Category)
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("expected one enqueued job, got %d", len(queue.enqueued))
	}
	job := queue.enqueued[0]
	if job.UserID != userID || job.VideoID != v.ID || job.Category != "healthcare" || job.Reprocess {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestVideoHandler_Ingest_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  models.IngestVideoRequest
		field string
	}{
		{"not a youtube url", models.IngestVideoRequest{URL: "https://example.com/video"}, "url"},
		{"empty url", models.IngestVideoRequest{}, "url"},
		{"unknown category", models.IngestVideoRequest{URL: "https://youtu.be/dQw4w9WgXcQ", Category: "astrology"}, "category"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			queue := &stubEnqueuer{}
			h := newTestVideoHandler(newStubVideoStore(), &stubJobCreator{}, queue, &stubMetadata{})

			rr := httptest.NewRecorder()
			h.Ingest(rr, authedRequest(http.MethodPost, "/api/v1/videos", tc.body, uuid.New(), nil))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
			}
			apiErr := decodeError(t, rr)
			if _, ok := apiErr.Fields[tc.field]; !ok {
				t.Errorf("expected field error for %q, got %v", tc.field, apiErr.Fields)
			}
			if len(queue.enqueued) != 0 {
				t.Errorf("no job should be queued on validation failure")
			}
		})
	}
}

func TestVideoHandler_Ingest_InvalidBody(t *testing.T) {
	h := newTestVideoHandler(newStubVideoStore(), &stubJobCreator{}, &stubEnqueuer{}, &stubMetadata{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	h.Ingest(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if code := decodeError(t, rr).Code; code != "INVALID_BODY" {
		t.Errorf("expected INVALID_BODY, got %q", code)
	}
}

func TestVideoHandler_Ingest_ExistingVideo(t *testing.T) {
	existing := &models.Video{ID: "yt_dQw4w9WgXcQ", AnalysisStatus: models.StatusCompleted, Title: "Stored"}
	queue := &stubEnqueuer{}
	h := newTestVideoHandler(newStubVideoStore(existing), &stubJobCreator{}, queue, &stubMetadata{err: errors.New("quota")})

	body := models.IngestVideoRequest{URL: "https://youtu.be/dQw4w9WgXcQ"}
	rr := httptest.NewRecorder()
	h.Ingest(rr, authedRequest(http.MethodPost, "/api/v1/videos", body, uuid.New(), nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp ingestResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Video == nil || resp.Video.Title != "Stored" || resp.JobID != "" {
		t.Errorf("expected the stored video without a job, got %+v", resp)
	}
	if len(queue.enqueued) != 0 {
		t.Errorf("duplicate ingest must not queue a job")
	}
}

func TestVideoHandler_Ingest_MetadataFailureStillIngests(t *testing.T) {
	store := newStubVideoStore()
	queue := &stubEnqueuer{}
	h := newTestVideoHandler(store, &stubJobCreator{}, queue, &stubMetadata{err: errors.New("unavailable")})

	body := models.IngestVideoRequest{URL: "https://www.youtube.com/shorts/dQw4w9WgXcQ"}
	rr := httptest.NewRecorder()
	h.Ingest(rr, authedRequest(http.MethodPost, "/api/v1/videos", body, uuid.New(), nil))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rr.Code)
	}
	if len(queue.enqueued) != 1 {
		t.Errorf("expected job to be queued")
	}
}

func TestVideoHandler_Get_NotFound(t *testing.T) {
	h := newTestVideoHandler(newStubVideoStore(), &stubJobCreator{}, &stubEnqueuer{}, &stubMetadata{})

	rr := httptest.NewRecorder()
	h.Get(rr, authedRequest(http.MethodGet, "/api/v1/videos/yt_missing", nil, uuid.New(), map[string]string{"id": "yt_missing"}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestVideoHandler_Reprocess(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		body       interface{}
		wantStatus int
		wantQueued bool
	}{
		{"completed video is requeued", models.StatusCompleted, nil, http.StatusAccepted, true},
		{"failed video with manual category", models.StatusFailed, models.ReprocessRequest{Category: "trades"}, http.StatusAccepted, true},
		{"processing video conflicts", models.StatusProcessing, nil, http.StatusConflict, false},
		{"bad category", models.StatusCompleted, models.ReprocessRequest{Category: "nope"}, http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			video := &models.Video{ID: "yt_dQw4w9WgXcQ", AnalysisStatus: tc.status}
			queue := &stubEnqueuer{}
			h := newTestVideoHandler(newStubVideoStore(video), &stubJobCreator{}, queue, &stubMetadata{})

			req := authedRequest(http.MethodPost, "/api/v1/videos/"+video.ID+"/reprocess", tc.body, uuid.New(), map[string]string{"id": video.ID})
			if tc.body == nil {
				req.ContentLength = 0
			}
			rr := httptest.NewRecorder()
			h.Reprocess(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
			if got := len(queue.enqueued) == 1; got != tc.wantQueued {
				t.Fatalf("expected queued=%t, got %d jobs", tc.wantQueued, len(queue.enqueued))
			}
			if tc.wantQueued && !queue.enqueued[0].Reprocess {
				t.Errorf("reprocess job must carry the reprocess flag")
			}
		})
	}
}

func TestVideoHandler_Ingest_EnqueueFailure(t *testing.T) {
	h := newTestVideoHandler(newStubVideoStore(), &stubJobCreator{}, &stubEnqueuer{err: errors.New("redis down")}, &stubMetadata{})

	body := models.IngestVideoRequest{URL: "https://youtu.be/dQw4w9WgXcQ"}
	rr := httptest.NewRecorder()
	h.Ingest(rr, authedRequest(http.MethodPost, "/api/v1/videos", body, uuid.New(), nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
}
