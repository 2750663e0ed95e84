package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"careerclips-backend/internal/models"
	"careerclips-backend/internal/repository"
)

type stubJobReader struct {
	jobs map[uuid.UUID]*models.Job
	err  error
}

func (s *stubJobReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	j, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return j, nil
}

func TestJobHandler_Get(t *testing.T) {
	owner := uuid.New()
	jobID := uuid.New()
	reader := &stubJobReader{jobs: map[uuid.UUID]*models.Job{
		jobID: {ID: jobID, UserID: owner, VideoID: "yt_abc123def45", Status: models.StatusProcessing},
	}}

	tests := []struct {
		name     string
		id       string
		userID   uuid.UUID
		err      error
		wantCode int
		wantErr  string
	}{
		{"owner sees job", jobID.String(), owner, nil, http.StatusOK, ""},
		{"other user", jobID.String(), uuid.New(), nil, http.StatusForbidden, "FORBIDDEN"},
		{"unknown job", uuid.New().String(), owner, nil, http.StatusNotFound, "NOT_FOUND"},
		{"malformed id", "not-a-uuid", owner, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"store failure", jobID.String(), owner, errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reader.err = tc.err
			h := NewJobHandler(reader)
			rr := httptest.NewRecorder()
			h.Get(rr, authedRequest(http.MethodGet, "/api/v1/jobs/"+tc.id, nil, tc.userID, map[string]string{"id": tc.id}))

			if rr.Code != tc.wantCode {
				t.Fatalf("Expected %d, got %d", tc.wantCode, rr.Code)
			}
			if tc.wantErr != "" {
				if got := decodeError(t, rr); got.Code != tc.wantErr {
					t.Errorf("Expected error code %s, got %s", tc.wantErr, got.Code)
				}
				return
			}

			var job models.Job
			if err := json.NewDecoder(rr.Body).Decode(&job); err != nil {
				t.Fatalf("failed to decode job: %v", err)
			}
			if job.ID != jobID || job.Status != models.StatusProcessing {
				t.Errorf("Expected processing job %s, got %+v", jobID, job)
			}
		})
	}
}
