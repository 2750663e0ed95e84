package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"careerclips-backend/internal/models"
	"careerclips-backend/internal/services"
)

type stubRecommender struct {
	last  services.RecommendRequest
	calls int
	resp  *models.RecommendationResponse
	err   error
}

func (s *stubRecommender) Recommend(ctx context.Context, req services.RecommendRequest) (*models.RecommendationResponse, error) {
	s.calls++
	s.last = req
	return s.resp, s.err
}

func TestRecommendationHandler_List_ParsesQuery(t *testing.T) {
	engine := &stubRecommender{resp: &models.RecommendationResponse{
		VideoIDs: []string{"yt_a"},
		Items:    []models.RecommendedVideo{{VideoID: "yt_a", Score: 80}},
		Method:   services.MethodHeuristic,
	}}
	h := NewRecommendationHandler(engine)
	userID := uuid.New()

	rr := httptest.NewRecorder()
	h.List(rr, authedRequest(http.MethodGet, "/api/v1/recommendations?limit=5&include_watched=true&feedback_type=saved", nil, userID, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if engine.last.UserID != userID || engine.last.Limit != 5 || !engine.last.IncludeWatched || engine.last.FeedbackType != "saved" {
		t.Errorf("unexpected request passed to engine: %+v", engine.last)
	}
	if engine.last.Enhanced {
		t.Errorf("default listing must not use the enhanced path")
	}

	var resp models.RecommendationResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Method != services.MethodHeuristic || len(resp.VideoIDs) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestRecommendationHandler_ListEnhanced(t *testing.T) {
	engine := &stubRecommender{resp: &models.RecommendationResponse{Method: services.MethodSemantic}}
	h := NewRecommendationHandler(engine)

	rr := httptest.NewRecorder()
	h.ListEnhanced(rr, authedRequest(http.MethodGet, "/api/v1/recommendations/enhanced", nil, uuid.New(), nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !engine.last.Enhanced {
		t.Errorf("expected enhanced flag to be set")
	}
	if engine.last.Limit != 0 {
		t.Errorf("expected engine default limit to apply, got %d", engine.last.Limit)
	}
}

func TestRecommendationHandler_BadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"non-numeric limit", "?limit=ten", "limit"},
		{"zero limit", "?limit=0", "limit"},
		{"bad include_watched", "?include_watched=maybe", "include_watched"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := &stubRecommender{}
			h := NewRecommendationHandler(engine)

			rr := httptest.NewRecorder()
			h.List(rr, authedRequest(http.MethodGet, "/api/v1/recommendations"+tc.query, nil, uuid.New(), nil))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
			}
			if _, ok := decodeError(t, rr).Fields[tc.field]; !ok {
				t.Errorf("expected field error for %q", tc.field)
			}
			if engine.calls != 0 {
				t.Errorf("engine should not be called on bad input")
			}
		})
	}
}

func TestRecommendationHandler_EngineValidationError(t *testing.T) {
	engine := &stubRecommender{err: &services.ValidationError{Fields: map[string]string{"feedback_type": "Unknown feedback type"}}}
	h := NewRecommendationHandler(engine)

	rr := httptest.NewRecorder()
	h.List(rr, authedRequest(http.MethodGet, "/api/v1/recommendations?feedback_type=loved", nil, uuid.New(), nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}
