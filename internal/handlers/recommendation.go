package handlers

import (
	"context"
	"net/http"
	"strconv"

	"careerclips-backend/internal/middleware"
	"careerclips-backend/internal/models"
	"careerclips-backend/internal/services"
)

type recommender interface {
	Recommend(ctx context.Context, req services.RecommendRequest) (*models.RecommendationResponse, error)
}

type RecommendationHandler struct {
	engine recommender
}

func NewRecommendationHandler(engine recommender) *RecommendationHandler {
	return &RecommendationHandler{engine: engine}
}

// List serves the default heuristic-first path.
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, false)
}

// ListEnhanced lets the semantic tier rank candidates first.
func (h *RecommendationHandler) ListEnhanced(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, true)
}

func (h *RecommendationHandler) recommend(w http.ResponseWriter, r *http.Request, enhanced bool) {
	q := r.URL.Query()
	fields := map[string]string{}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["limit"] = "Must be a positive integer"
		}
		limit = n
	}

	includeWatched := false
	if raw := q.Get("include_watched"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fields["include_watched"] = "Must be true or false"
		}
		includeWatched = b
	}

	if len(fields) > 0 {
		handleServiceError(w, r, &services.ValidationError{Fields: fields})
		return
	}

	resp, err := h.engine.Recommend(r.Context(), services.RecommendRequest{
		UserID:         middleware.GetUserID(r.Context()),
		Limit:          limit,
		IncludeWatched: includeWatched,
		FeedbackType:   q.Get("feedback_type"),
		Enhanced:       enhanced,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
