package services

import (
	"math"
	"regexp"
	"strings"

	"careerclips-backend/internal/models"
)

// Heuristic score weights and per-component caps. Totals are capped at maxHeuristicScore.
const (
	categoryExactPoints   = 25.0
	categoryKeywordPoints = 10.0
	categoryKeywordCap    = 20.0

	titleTermPoints = 8.0
	descTermPoints  = 5.0
	titleWordPoints = 3.0
	descWordPoints  = 2.0
	textMatchCap    = 35.0

	pathwayPoints = 7.0
	pathwayCap    = 20.0

	skillPoints = 4.0
	skillCap    = 15.0

	tagPoints = 2.0
	tagCap    = 5.0

	popularityViewsPerPoint = 1000.0
	popularityCap           = 5.0

	maxHeuristicScore = 100.0

	minWordLength = 4
)

// heuristicScorer rates a completed video against a profile on a 0-100 scale.
type heuristicScorer struct {
	categoryKeywords map[string][]*regexp.Regexp
}

// Keywords match interests on word boundaries, so "painting" does not earn
// technology points for containing "ai".
func newHeuristicScorer(taxonomy Taxonomy) *heuristicScorer {
	keywords := make(map[string][]*regexp.Regexp, len(taxonomy))
	for _, c := range taxonomy {
		patterns := make([]*regexp.Regexp, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(strings.ToLower(kw))+`\b`))
		}
		keywords[strings.ToLower(c.Name)] = patterns
	}
	return &heuristicScorer{categoryKeywords: keywords}
}

func (h *heuristicScorer) Score(p *models.UserProfile, v *models.Video) float64 {
	terms := profileTerms(p)
	tags := append(append([]string{}, v.Hashtags...), v.KeyThemes...)

	score := h.categoryScore(p.Interests, v.Category) +
		textScore(terms, v.Title, v.Description) +
		pathwayScore(v.CareerPathways, p.CareerGoals) +
		skillScore(v.SkillsHighlighted, p.Skills) +
		tagScore(tags, terms) +
		math.Min(popularityCap, float64(v.ViewCount)/popularityViewsPerPoint)

	return math.Min(maxHeuristicScore, score)
}

func (h *heuristicScorer) categoryScore(interests []string, category string) float64 {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return 0
	}

	for _, interest := range interests {
		if containsEither(strings.ToLower(interest), category) {
			return categoryExactPoints
		}
	}

	// interests that mention a keyword of the video's category
	score := 0.0
	keywords := h.categoryKeywords[category]
	for _, interest := range interests {
		interest = strings.ToLower(strings.TrimSpace(interest))
		if interest == "" {
			continue
		}
		for _, kw := range keywords {
			if kw.MatchString(interest) {
				score += categoryKeywordPoints
				break
			}
		}
	}
	return math.Min(categoryKeywordCap, score)
}

func textScore(terms []string, title, description string) float64 {
	title = strings.ToLower(title)
	description = strings.ToLower(description)

	score := 0.0
	for _, term := range terms {
		score += titleTermPoints * float64(strings.Count(title, term))
		score += descTermPoints * float64(strings.Count(description, term))

		words := strings.Fields(term)
		if len(words) < 2 {
			continue
		}
		for _, w := range longWords(words) {
			score += titleWordPoints * float64(strings.Count(title, w))
			score += descWordPoints * float64(strings.Count(description, w))
		}
	}
	return math.Min(textMatchCap, score)
}

func pathwayScore(pathways, goals []string) float64 {
	if len(goals) == 0 {
		return 0
	}

	lowerGoals := lowerAll(goals)
	score := 0.0
	for _, pathway := range pathways {
		pathway = strings.ToLower(pathway)
		if pathwayMatches(pathway, lowerGoals) {
			score += pathwayPoints
		}
	}
	return math.Min(pathwayCap, score)
}

func pathwayMatches(pathway string, goals []string) bool {
	pathwayWords := longWords(strings.Fields(pathway))
	for _, goal := range goals {
		for _, w := range pathwayWords {
			if strings.Contains(goal, w) {
				return true
			}
		}
		for _, w := range longWords(strings.Fields(goal)) {
			if strings.Contains(pathway, w) {
				return true
			}
		}
	}
	return false
}

func skillScore(videoSkills, userSkills []string) float64 {
	if len(userSkills) == 0 {
		return 0
	}

	lowerUser := lowerAll(userSkills)
	score := 0.0
	for _, skill := range videoSkills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		for _, us := range lowerUser {
			if containsEither(skill, us) {
				score += skillPoints
				break
			}
		}
	}
	return math.Min(skillCap, score)
}

func tagScore(tags, terms []string) float64 {
	score := 0.0
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		for _, term := range terms {
			if containsEither(tag, term) {
				score += tagPoints
				break
			}
		}
	}
	return math.Min(tagCap, score)
}

// profileTerms returns the lowercased, non-empty profile strings.
func profileTerms(p *models.UserProfile) []string {
	all := make([]string, 0, len(p.Interests)+len(p.Skills)+len(p.CareerGoals)+len(p.LearningPaths))
	for _, list := range [][]string{p.Interests, p.Skills, p.CareerGoals, p.LearningPaths} {
		for _, s := range list {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				all = append(all, s)
			}
		}
	}
	return all
}

// containsEither reports whether either string contains the other.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func longWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) >= minWordLength {
			out = append(out, w)
		}
	}
	return out
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
