package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"careerclips-backend/internal/metrics"
	"careerclips-backend/internal/models"
	"careerclips-backend/internal/repository"
)

const (
	defaultRecommendationLimit = 10
	maxRecommendationLimit     = 50
	recentWatchWindow          = 20
)

// VideoCatalog is the read side of the video store used for recommendations.
type VideoCatalog interface {
	ListCompleted(ctx context.Context) ([]models.Video, error)
	ListByCategories(ctx context.Context, categories []string, limit int) ([]models.Video, error)
	ListMostViewed(ctx context.Context, limit int) ([]models.Video, error)
}

// UserSignalStore holds per-user profile, feedback and watch history.
type UserSignalStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	ListFeedback(ctx context.Context, userID uuid.UUID) (map[string]models.Feedback, error)
	RecentWatches(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
}

// EmbeddingStore returns stored video vectors keyed by video id. Videos
// without a vector are absent from the map.
type EmbeddingStore interface {
	GetVideoEmbeddings(ctx context.Context, videoIDs []string) (map[string][]float32, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ProfileEmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

type RecommendRequest struct {
	UserID         uuid.UUID
	Limit          int
	IncludeWatched bool
	FeedbackType   string
	// Profile overrides the stored profile when set.
	Profile  *models.UserProfile
	Enhanced bool
}

type RecommendationDeps struct {
	Catalog    VideoCatalog
	Signals    UserSignalStore
	Embeddings EmbeddingStore
	Embedder   Embedder
	Completer  Completer
	Cache      ProfileEmbeddingCache
}

type RecommendationConfig struct {
	Taxonomy               Taxonomy
	SemanticCandidateLimit int
	SemanticConcurrency    int
	MinProfileTextLength   int
}

type RecommendationEngine struct {
	catalog VideoCatalog
	signals UserSignalStore
	tiers   []Tier
}

func NewRecommendationEngine(deps RecommendationDeps, cfg RecommendationConfig) *RecommendationEngine {
	if cfg.SemanticConcurrency <= 0 {
		cfg.SemanticConcurrency = 1
	}
	if cfg.SemanticCandidateLimit <= 0 {
		cfg.SemanticCandidateLimit = 30
	}

	scorer := newHeuristicScorer(cfg.Taxonomy)

	// The semantic tier only engages on the enhanced path, where it takes
	// precedence over the heuristic ranking.
	tiers := []Tier{
		&semanticTier{
			completer:     deps.Completer,
			scorer:        scorer,
			maxCandidates: cfg.SemanticCandidateLimit,
			concurrency:   cfg.SemanticConcurrency,
		},
		&heuristicTier{scorer: scorer},
		&embeddingTier{
			embedder:     deps.Embedder,
			vectors:      deps.Embeddings,
			cache:        deps.Cache,
			minTextChars: cfg.MinProfileTextLength,
		},
		&categoryTier{catalog: deps.Catalog},
		&popularTier{catalog: deps.Catalog},
	}

	return NewRecommendationEngineWithTiers(deps.Catalog, deps.Signals, tiers...)
}

// NewRecommendationEngineWithTiers builds an engine with an explicit tier order.
func NewRecommendationEngineWithTiers(catalog VideoCatalog, signals UserSignalStore, tiers ...Tier) *RecommendationEngine {
	return &RecommendationEngine{
		catalog: catalog,
		signals: signals,
		tiers:   tiers,
	}
}

func (e *RecommendationEngine) Recommend(ctx context.Context, req RecommendRequest) (*models.RecommendationResponse, error) {
	if req.UserID == uuid.Nil {
		return nil, &ValidationError{Fields: map[string]string{"user_id": "User ID is required"}}
	}
	switch req.FeedbackType {
	case "", models.FeedbackLiked, models.FeedbackDisliked, models.FeedbackSaved:
	default:
		return nil, &ValidationError{Fields: map[string]string{"feedback_type": "Must be one of liked, disliked, saved"}}
	}
	if req.Limit <= 0 {
		req.Limit = defaultRecommendationLimit
	}
	if req.Limit > maxRecommendationLimit {
		req.Limit = maxRecommendationLimit
	}

	in := e.buildInput(ctx, req)

	for _, tier := range e.tiers {
		results, ok, err := tier.Attempt(ctx, in)
		if err != nil {
			log.Printf("Recommendation tier %s failed for user %s: %v", tier.Name(), req.UserID, err)
			metrics.RecommendationTierErrors.WithLabelValues(tier.Name()).Inc()
			continue
		}
		if !ok {
			continue
		}
		if len(results) > req.Limit {
			results = results[:req.Limit]
		}
		metrics.RecommendationsServed.WithLabelValues(tier.Name()).Inc()
		return buildRecommendationResponse(results, tier.Name()), nil
	}

	metrics.RecommendationsServed.WithLabelValues(MethodNone).Inc()
	return buildRecommendationResponse(nil, MethodNone), nil
}

// buildInput loads the signals every tier needs. Read failures degrade to
// empty signals rather than failing the request.
func (e *RecommendationEngine) buildInput(ctx context.Context, req RecommendRequest) *tierInput {
	in := &tierInput{
		req:      req,
		profile:  req.Profile,
		feedback: map[string]models.Feedback{},
		watched:  map[string]struct{}{},
	}

	if in.profile == nil {
		profile, err := e.signals.GetProfile(ctx, req.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("Failed to load profile for user %s: %v", req.UserID, err)
		}
		if profile == nil {
			profile = &models.UserProfile{UserID: req.UserID}
		}
		in.profile = profile
	}

	if fb, err := e.signals.ListFeedback(ctx, req.UserID); err != nil {
		log.Printf("Failed to load feedback for user %s: %v", req.UserID, err)
	} else if fb != nil {
		in.feedback = fb
	}

	if ids, err := e.signals.RecentWatches(ctx, req.UserID, recentWatchWindow); err != nil {
		log.Printf("Failed to load watch history for user %s: %v", req.UserID, err)
	} else {
		for _, id := range ids {
			in.watched[id] = struct{}{}
		}
	}

	candidates, err := e.catalog.ListCompleted(ctx)
	if err != nil {
		log.Printf("Failed to list completed videos: %v", err)
	}
	in.candidates = candidates

	return in
}

func buildRecommendationResponse(results []ScoredVideo, method string) *models.RecommendationResponse {
	resp := &models.RecommendationResponse{
		VideoIDs: make([]string, 0, len(results)),
		Items:    make([]models.RecommendedVideo, 0, len(results)),
		Method:   method,
	}
	for _, r := range results {
		resp.VideoIDs = append(resp.VideoIDs, r.Video.ID)
		resp.Items = append(resp.Items, models.RecommendedVideo{
			VideoID:  r.Video.ID,
			Title:    r.Video.Title,
			Category: r.Video.Category,
			Score:    r.Score,
		})
	}
	return resp
}

