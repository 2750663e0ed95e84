package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"careerclips-backend/internal/models"
)

// Method names reported in RecommendationResponse.Method.
const (
	MethodHeuristic = "heuristic"
	MethodSemantic  = "semantic"
	MethodEmbedding = "embedding"
	MethodCategory  = "category"
	MethodPopular   = "popular"
	MethodNone      = "none"
)

// Tier is one strategy in the recommendation fallback chain. ok reports
// whether the tier produced at least one qualifying result.
type Tier interface {
	Name() string
	Attempt(ctx context.Context, in *tierInput) (results []ScoredVideo, ok bool, err error)
}

type ScoredVideo struct {
	Video models.Video
	Score float64
}

type feedbackMultipliers struct {
	liked, disliked, saved float64
}

var (
	heuristicMultipliers = feedbackMultipliers{liked: 1.3, disliked: 0.3, saved: 1.4}
	embeddingMultipliers = feedbackMultipliers{liked: 1.2, disliked: 0.5, saved: 1.3}
	neutralMultipliers   = feedbackMultipliers{liked: 1, disliked: 1, saved: 1}
)

// tierInput is the per-request state shared by every tier.
type tierInput struct {
	req        RecommendRequest
	profile    *models.UserProfile
	feedback   map[string]models.Feedback
	watched    map[string]struct{}
	candidates []models.Video
}

// adjust applies feedback multipliers, the feedback-type filter and watched
// exclusion, then drops non-positive scores and sorts the rest.
func (in *tierInput) adjust(scored []ScoredVideo, m feedbackMultipliers) []ScoredVideo {
	out := make([]ScoredVideo, 0, len(scored))
	for _, sv := range scored {
		fb, hasFeedback := in.feedback[sv.Video.ID]
		if hasFeedback {
			if fb.Liked {
				sv.Score *= m.liked
			}
			if fb.Disliked {
				sv.Score *= m.disliked
			}
			if fb.Saved {
				sv.Score *= m.saved
			}
		}

		if in.req.FeedbackType != "" && !(hasFeedback && matchesFeedback(fb, in.req.FeedbackType)) {
			sv.Score = 0
		}
		if _, seen := in.watched[sv.Video.ID]; seen && !in.req.IncludeWatched {
			sv.Score = 0
		}

		if sv.Score > 0 {
			out = append(out, sv)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func matchesFeedback(fb models.Feedback, feedbackType string) bool {
	switch feedbackType {
	case models.FeedbackLiked:
		return fb.Liked
	case models.FeedbackDisliked:
		return fb.Disliked
	case models.FeedbackSaved:
		return fb.Saved
	}
	return false
}

// --- Tier 1: heuristic ---

type heuristicTier struct {
	scorer *heuristicScorer
}

func (t *heuristicTier) Name() string { return MethodHeuristic }

func (t *heuristicTier) Attempt(ctx context.Context, in *tierInput) ([]ScoredVideo, bool, error) {
	if len(in.candidates) == 0 {
		return nil, false, nil
	}

	scored := make([]ScoredVideo, 0, len(in.candidates))
	for _, v := range in.candidates {
		scored = append(scored, ScoredVideo{Video: v, Score: t.scorer.Score(in.profile, &v)})
	}

	results := in.adjust(scored, heuristicMultipliers)
	return results, len(results) > 0, nil
}

// --- Tier 2: semantic LLM rating ---

type semanticTier struct {
	completer     Completer
	scorer        *heuristicScorer
	maxCandidates int
	concurrency   int
}

func (t *semanticTier) Name() string { return MethodSemantic }

func (t *semanticTier) Attempt(ctx context.Context, in *tierInput) ([]ScoredVideo, bool, error) {
	if !in.req.Enhanced || t.completer == nil || len(in.candidates) == 0 {
		return nil, false, nil
	}

	candidates := t.shortlist(in)

	scores := make([]float64, len(candidates))
	var mu sync.Mutex
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i := range candidates {
		g.Go(func() error {
			raw, err := t.completer.Complete(gctx, buildRelevancePrompt(in.profile, &candidates[i]), false)
			if err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
				log.Printf("Semantic rating failed for video %s: %v", candidates[i].ID, err)
				return nil
			}
			scores[i] = parseRelevanceScore(raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if failures == len(candidates) {
		return nil, false, fmt.Errorf("all %d semantic ratings failed", failures)
	}

	scored := make([]ScoredVideo, len(candidates))
	for i, v := range candidates {
		scored[i] = ScoredVideo{Video: v, Score: scores[i]}
	}

	results := in.adjust(scored, embeddingMultipliers)
	return results, len(results) > 0, nil
}

// shortlist keeps the best heuristic matches so the number of model calls stays bounded.
func (t *semanticTier) shortlist(in *tierInput) []models.Video {
	if len(in.candidates) <= t.maxCandidates {
		return in.candidates
	}

	ranked := make([]ScoredVideo, 0, len(in.candidates))
	for _, v := range in.candidates {
		ranked = append(ranked, ScoredVideo{Video: v, Score: t.scorer.Score(in.profile, &v)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	out := make([]models.Video, 0, t.maxCandidates)
	for _, sv := range ranked[:t.maxCandidates] {
		out = append(out, sv.Video)
	}
	return out
}

func buildRelevancePrompt(p *models.UserProfile, v *models.Video) string {
	var b strings.Builder
	b.WriteString("Rate how relevant this career video is to the user on a scale from 0 to 100.\n")
	b.WriteString("Respond with ONLY the integer. No words, no punctuation.\n\n")
	b.WriteString("USER PROFILE\n")
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(p.Interests, ", "))
	fmt.Fprintf(&b, "Skills: %s\n", strings.Join(p.Skills, ", "))
	fmt.Fprintf(&b, "Career goals: %s\n", strings.Join(p.CareerGoals, ", "))
	fmt.Fprintf(&b, "Learning paths: %s\n\n", strings.Join(p.LearningPaths, ", "))
	b.WriteString("VIDEO\n")
	fmt.Fprintf(&b, "Title: %s\n", v.Title)
	fmt.Fprintf(&b, "Category: %s\n", v.Category)
	fmt.Fprintf(&b, "Career pathways: %s\n", strings.Join(v.CareerPathways, ", "))
	fmt.Fprintf(&b, "Skills: %s\n", strings.Join(v.SkillsHighlighted, ", "))
	fmt.Fprintf(&b, "Themes: %s\n", strings.Join(v.KeyThemes, ", "))
	if v.AIAnalysis != nil && v.AIAnalysis.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", v.AIAnalysis.Summary)
	}
	return b.String()
}

// parseRelevanceScore accepts a bare integer in [0,100]; anything else is 0.
func parseRelevanceScore(raw string) float64 {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > 100 {
		return 0
	}
	return float64(n)
}

// --- Tier 3: embedding similarity ---

type embeddingTier struct {
	embedder     Embedder
	vectors      EmbeddingStore
	cache        ProfileEmbeddingCache
	minTextChars int
}

func (t *embeddingTier) Name() string { return MethodEmbedding }

func (t *embeddingTier) Attempt(ctx context.Context, in *tierInput) ([]ScoredVideo, bool, error) {
	if t.embedder == nil || t.vectors == nil || len(in.candidates) == 0 {
		return nil, false, nil
	}

	text := ProfileText(in.profile)
	if utf8.RuneCountInString(text) <= t.minTextChars {
		return nil, false, nil
	}

	profileVec, err := t.profileEmbedding(ctx, in.req.UserID.String(), text)
	if err != nil {
		return nil, false, fmt.Errorf("failed to embed profile: %w", err)
	}

	ids := make([]string, len(in.candidates))
	for i, v := range in.candidates {
		ids[i] = v.ID
	}
	videoVecs, err := t.vectors.GetVideoEmbeddings(ctx, ids)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load video embeddings: %w", err)
	}

	scored := make([]ScoredVideo, 0, len(videoVecs))
	for _, v := range in.candidates {
		vec, ok := videoVecs[v.ID]
		if !ok {
			continue
		}
		scored = append(scored, ScoredVideo{Video: v, Score: CosineSimilarity(profileVec, vec) * 100})
	}

	results := in.adjust(scored, embeddingMultipliers)
	return results, len(results) > 0, nil
}

func (t *embeddingTier) profileEmbedding(ctx context.Context, userID, text string) ([]float32, error) {
	key := profileEmbeddingKey(userID, text)

	if t.cache != nil {
		vec, found, err := t.cache.Get(ctx, key)
		if err != nil {
			log.Printf("Profile embedding cache read failed for user %s: %v", userID, err)
		} else if found {
			return vec, nil
		}
	}

	vec, err := t.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		if err := t.cache.Set(ctx, key, vec); err != nil {
			log.Printf("Profile embedding cache write failed for user %s: %v", userID, err)
		}
	}
	return vec, nil
}

// profileEmbeddingKey changes whenever the profile text changes, so a stale
// vector is never reused after a profile edit.
func profileEmbeddingKey(userID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("profile_embedding:%s:%s", userID, hex.EncodeToString(sum[:8]))
}

// ProfileText is the text embedded for a user profile.
func ProfileText(p *models.UserProfile) string {
	var parts []string
	for _, list := range [][]string{p.Interests, p.Skills, p.CareerGoals, p.LearningPaths} {
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, ", ")
}

// --- Tier 4: category and popularity fallback ---

type categoryTier struct {
	catalog VideoCatalog
}

func (t *categoryTier) Name() string { return MethodCategory }

func (t *categoryTier) Attempt(ctx context.Context, in *tierInput) ([]ScoredVideo, bool, error) {
	interests := lowerAll(in.profile.Interests)
	if len(interests) == 0 {
		return nil, false, nil
	}

	videos, err := t.catalog.ListByCategories(ctx, interests, fallbackFetchSize(in))
	if err != nil {
		return nil, false, fmt.Errorf("failed to list videos by category: %w", err)
	}

	results := in.adjust(rankOrder(videos), neutralMultipliers)
	return results, len(results) > 0, nil
}

type popularTier struct {
	catalog VideoCatalog
}

func (t *popularTier) Name() string { return MethodPopular }

func (t *popularTier) Attempt(ctx context.Context, in *tierInput) ([]ScoredVideo, bool, error) {
	videos, err := t.catalog.ListMostViewed(ctx, fallbackFetchSize(in))
	if err != nil {
		return nil, false, fmt.Errorf("failed to list most viewed videos: %w", err)
	}

	results := in.adjust(rankOrder(videos), neutralMultipliers)
	return results, len(results) > 0, nil
}

// rankOrder scores an already ordered list so that adjust keeps its order.
func rankOrder(videos []models.Video) []ScoredVideo {
	scored := make([]ScoredVideo, len(videos))
	for i, v := range videos {
		scored[i] = ScoredVideo{Video: v, Score: float64(len(videos) - i)}
	}
	return scored
}

// fallbackFetchSize over-fetches so that watched exclusion still leaves enough results.
func fallbackFetchSize(in *tierInput) int {
	return in.req.Limit + len(in.watched) + in.req.Limit
}
