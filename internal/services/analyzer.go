package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"careerclips-backend/internal/models"
)

// Completer sends a prompt to a text-completion model.
type Completer interface {
	Complete(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

const (
	truncationMarker        = "\n\n[... content truncated ...]\n\n"
	fallbackSummaryChars    = 300
	fallbackConfidenceScore = 0.6

	maxHashtags          = 10
	maxEmotionalElements = 5
	maxWorkEnvironments  = 3
	maxListItems         = 8
)

type AnalysisResult struct {
	Success  bool
	Degraded bool // model output could not be parsed
	Analysis *models.StructuredAnalysis
}

type ContentAnalyzer struct {
	completer       Completer
	maxPromptTokens int
}

func NewContentAnalyzer(completer Completer, maxPromptTokens int) *ContentAnalyzer {
	return &ContentAnalyzer{
		completer:       completer,
		maxPromptTokens: maxPromptTokens,
	}
}

// Analyze produces a StructuredAnalysis for transcript-like content. It never
// returns an error: a failed model call yields Success=false.
func (a *ContentAnalyzer) Analyze(ctx context.Context, content, category string) AnalysisResult {
	overhead := estimateTokens(buildAnalysisPrompt("", category))
	content = truncateForBudget(content, a.maxPromptTokens-overhead)

	raw, err := a.completer.Complete(ctx, buildAnalysisPrompt(content, category), true)
	if err != nil {
		log.Printf("Content analysis request failed: %v", err)
		return AnalysisResult{Success: false}
	}

	analysis, ok := parseAnalysis(raw)
	if !ok {
		log.Printf("Content analysis returned unparseable output (%d chars), using degraded analysis", len(raw))
		return AnalysisResult{
			Success:  true,
			Degraded: true,
			Analysis: fallbackAnalysis(raw, category),
		}
	}

	return AnalysisResult{Success: true, Analysis: analysis}
}

func estimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}

// truncateForBudget keeps the opening 80% and closing 20% of a window sized
// at 80% of the remaining token budget.
func truncateForBudget(content string, budgetTokens int) string {
	if estimateTokens(content) <= budgetTokens {
		return content
	}
	if budgetTokens <= 0 {
		return ""
	}

	window := int(float64(budgetTokens*4) * 0.8)
	head := int(float64(window) * 0.8)
	tail := window - head

	runes := []rune(content)
	if head+tail >= len(runes) {
		return content
	}

	return string(runes[:head]) + truncationMarker + string(runes[len(runes)-tail:])
}

func buildAnalysisPrompt(content, category string) string {
	var b strings.Builder

	b.WriteString("You are a career guidance analyst reviewing a short video about a job or career path.\n")
	b.WriteString(fmt.Sprintf("Video category hint: %s\n\n", category))
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(`JSON schema:
{"summary": "2-3 sentence summary",
 "keyThemes": ["string"],
 "skillsHighlighted": ["string"],
 "challenges": ["string"],
 "careerPathways": ["job title or pathway"],
 "hashtags": ["#tag"] (max 10),
 "emotionalElements": [{"timestampLabel": "string", "quote": "string", "significance": "string"}] (max 5),
 "educationRequired": ["string"],
 "careerStage": "entry-level"|"mid-career"|"senior-level"|"any",
 "workEnvironments": ["string"] (max 3),
 "confidenceScore": number between 0 and 1}
`)

	b.WriteString("\n---CONTENT START---\n")
	b.WriteString(content)
	b.WriteString("\n---CONTENT END---\n")

	return b.String()
}

type rawAnalysis struct {
	Summary           string                    `json:"summary"`
	KeyThemes         []string                  `json:"keyThemes"`
	SkillsHighlighted []string                  `json:"skillsHighlighted"`
	Challenges        []string                  `json:"challenges"`
	CareerPathways    []string                  `json:"careerPathways"`
	Hashtags          []string                  `json:"hashtags"`
	EmotionalElements []models.EmotionalElement `json:"emotionalElements"`
	EducationRequired []string                  `json:"educationRequired"`
	CareerStage       string                    `json:"careerStage"`
	WorkEnvironments  []string                  `json:"workEnvironments"`
	ConfidenceScore   *float64                  `json:"confidenceScore"`
}

// usable reports whether the model returned any analysis content. JSON null
// and an empty object decode cleanly but carry nothing.
func (r *rawAnalysis) usable() bool {
	if strings.TrimSpace(r.Summary) != "" || len(r.EmotionalElements) > 0 {
		return true
	}
	for _, list := range [][]string{
		r.KeyThemes, r.SkillsHighlighted, r.Challenges, r.CareerPathways,
		r.Hashtags, r.EducationRequired, r.WorkEnvironments,
	} {
		if len(list) > 0 {
			return true
		}
	}
	return false
}

func parseAnalysis(raw string) (*models.StructuredAnalysis, bool) {
	cleaned := stripCodeFence(raw)

	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		// Try to extract the JSON object
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, false
		}
		parsed = rawAnalysis{}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err != nil {
			return nil, false
		}
	}

	if !parsed.usable() {
		return nil, false
	}

	score := fallbackConfidenceScore
	if parsed.ConfidenceScore != nil {
		score = *parsed.ConfidenceScore
	}

	return normalizeAnalysis(&models.StructuredAnalysis{
		Summary:           strings.TrimSpace(parsed.Summary),
		KeyThemes:         parsed.KeyThemes,
		SkillsHighlighted: parsed.SkillsHighlighted,
		Challenges:        parsed.Challenges,
		CareerPathways:    parsed.CareerPathways,
		Hashtags:          parsed.Hashtags,
		EmotionalElements: parsed.EmotionalElements,
		EducationRequired: parsed.EducationRequired,
		CareerStage:       parsed.CareerStage,
		WorkEnvironments:  parsed.WorkEnvironments,
		ConfidenceScore:   score,
	}), true
}

func fallbackAnalysis(raw, category string) *models.StructuredAnalysis {
	summary := strings.TrimSpace(raw)
	if runes := []rune(summary); len(runes) > fallbackSummaryChars {
		summary = string(runes[:fallbackSummaryChars])
	}
	if summary == "" {
		summary = "Career video analysis is unavailable; showing generic insights."
	}

	pathway := "General career exploration"
	if category != "" && category != "general" {
		pathway = strings.ToUpper(category[:1]) + category[1:] + " careers"
	}

	return normalizeAnalysis(&models.StructuredAnalysis{
		Summary:           summary,
		KeyThemes:         []string{"career exploration", "day in the life"},
		SkillsHighlighted: []string{"communication", "problem solving"},
		CareerPathways:    []string{pathway},
		Hashtags:          []string{"#careers"},
		CareerStage:       models.StageAny,
		ConfidenceScore:   fallbackConfidenceScore,
	})
}

// normalizeAnalysis enforces list limits, a valid career stage and a
// confidence score in [0,1]. Nil lists become empty lists.
func normalizeAnalysis(a *models.StructuredAnalysis) *models.StructuredAnalysis {
	a.KeyThemes = clampList(a.KeyThemes, maxListItems)
	a.SkillsHighlighted = clampList(a.SkillsHighlighted, maxListItems)
	a.Challenges = clampList(a.Challenges, maxListItems)
	a.CareerPathways = clampList(a.CareerPathways, maxListItems)
	a.EducationRequired = clampList(a.EducationRequired, maxListItems)
	a.Hashtags = clampList(a.Hashtags, maxHashtags)
	a.WorkEnvironments = clampList(a.WorkEnvironments, maxWorkEnvironments)

	if a.EmotionalElements == nil {
		a.EmotionalElements = []models.EmotionalElement{}
	}
	if len(a.EmotionalElements) > maxEmotionalElements {
		a.EmotionalElements = a.EmotionalElements[:maxEmotionalElements]
	}

	switch a.CareerStage {
	case models.StageEntryLevel, models.StageMidCareer, models.StageSeniorLevel, models.StageAny:
	default:
		a.CareerStage = models.StageAny
	}

	if a.ConfidenceScore < 0 {
		a.ConfidenceScore = 0
	}
	if a.ConfidenceScore > 1 {
		a.ConfidenceScore = 1
	}

	return a
}

func clampList(items []string, max int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == max {
			break
		}
	}
	return out
}
