package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubCompleter struct {
	response   string
	err        error
	lastPrompt string
	lastJSON   bool
	calls      int
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	s.lastJSON = jsonMode
	return s.response, s.err
}

func TestAnalyze_ParsesValidJSON(t *testing.T) {
	completer := &stubCompleter{response: "```json\n" + `{
		"summary": "A nurse walks through a night shift.",
		"keyThemes": ["patient care", "teamwork"],
		"skillsHighlighted": ["empathy", "triage"],
		"challenges": ["long hours"],
		"careerPathways": ["Registered Nurse"],
		"hashtags": ["#nursing"],
		"emotionalElements": [{"timestampLabel": "0:42", "quote": "I love this job", "significance": "motivation"}],
		"educationRequired": ["BSN"],
		"careerStage": "entry-level",
		"workEnvironments": ["hospital"],
		"confidenceScore": 0.92
	}` + "\n```"}

	a := NewContentAnalyzer(completer, 30000)
	result := a.Analyze(context.Background(), "transcript text", "healthcare")

	if !result.Success || result.Degraded {
		t.Fatalf("Expected successful non-degraded result, got %+v", result)
	}
	if result.Analysis.CareerStage != "entry-level" {
		t.Errorf("Expected career stage 'entry-level', got %q", result.Analysis.CareerStage)
	}
	if result.Analysis.ConfidenceScore != 0.92 {
		t.Errorf("Expected confidence 0.92, got %v", result.Analysis.ConfidenceScore)
	}
	if len(result.Analysis.EmotionalElements) != 1 {
		t.Errorf("Expected 1 emotional element, got %d", len(result.Analysis.EmotionalElements))
	}
	if !completer.lastJSON {
		t.Errorf("Expected JSON mode to be requested")
	}
	if !strings.Contains(completer.lastPrompt, "transcript text") {
		t.Errorf("Expected prompt to include the content")
	}
}

func TestAnalyze_UnparseableOutputDegrades(t *testing.T) {
	completer := &stubCompleter{response: "Sorry, here is a prose answer about carpentry instead of JSON."}
	a := NewContentAnalyzer(completer, 30000)

	result := a.Analyze(context.Background(), "some transcript", "trades")

	if !result.Success {
		t.Fatalf("Expected success for unparseable output")
	}
	if !result.Degraded {
		t.Errorf("Expected degraded flag")
	}

	an := result.Analysis
	if an == nil {
		t.Fatal("Expected a synthesized analysis")
	}
	if an.ConfidenceScore < 0 || an.ConfidenceScore > 1 {
		t.Errorf("Expected confidence in [0,1], got %v", an.ConfidenceScore)
	}
	if an.ConfidenceScore != 0.6 {
		t.Errorf("Expected conservative confidence 0.6, got %v", an.ConfidenceScore)
	}
	lists := map[string][]string{
		"keyThemes":         an.KeyThemes,
		"skillsHighlighted": an.SkillsHighlighted,
		"challenges":        an.Challenges,
		"careerPathways":    an.CareerPathways,
		"hashtags":          an.Hashtags,
		"educationRequired": an.EducationRequired,
		"workEnvironments":  an.WorkEnvironments,
	}
	for name, list := range lists {
		if list == nil {
			t.Errorf("Expected %s to be a non-nil list", name)
		}
	}
	if an.EmotionalElements == nil {
		t.Errorf("Expected emotionalElements to be a non-nil list")
	}
	if !strings.HasPrefix(an.Summary, "Sorry, here is a prose answer") {
		t.Errorf("Expected summary to come from raw output, got %q", an.Summary)
	}
}

func TestAnalyze_EmptyJSONDegrades(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"null", "null"},
		{"empty object", "{}"},
		{"fenced empty object", "```json\n{}\n```"},
		{"blank fields", `{"summary": "  ", "keyThemes": [], "careerStage": "entry-level"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewContentAnalyzer(&stubCompleter{response: tc.response}, 30000)
			result := a.Analyze(context.Background(), "some transcript", "technology")

			if !result.Success || !result.Degraded {
				t.Fatalf("Expected degraded success, got success=%v degraded=%v", result.Success, result.Degraded)
			}
			an := result.Analysis
			if an.Summary == "" {
				t.Errorf("Expected a synthesized summary")
			}
			if len(an.KeyThemes) == 0 || len(an.CareerPathways) == 0 {
				t.Errorf("Expected placeholder lists, got themes=%v pathways=%v", an.KeyThemes, an.CareerPathways)
			}
			if an.ConfidenceScore != 0.6 {
				t.Errorf("Expected confidence 0.6, got %v", an.ConfidenceScore)
			}
		})
	}
}

func TestAnalyze_FallbackSummaryIsTruncated(t *testing.T) {
	completer := &stubCompleter{response: strings.Repeat("x", 1000)}
	a := NewContentAnalyzer(completer, 30000)

	result := a.Analyze(context.Background(), "content", "general")
	if got := len(result.Analysis.Summary); got != 300 {
		t.Errorf("Expected 300-char summary, got %d", got)
	}
}

func TestAnalyze_TransportFailure(t *testing.T) {
	completer := &stubCompleter{err: errors.New("connection reset")}
	a := NewContentAnalyzer(completer, 30000)

	result := a.Analyze(context.Background(), "content", "general")
	if result.Success {
		t.Errorf("Expected Success=false on transport failure")
	}
	if result.Analysis != nil {
		t.Errorf("Expected no analysis on transport failure")
	}
}

func TestAnalyze_EnforcesListLimits(t *testing.T) {
	completer := &stubCompleter{response: `{
		"summary": "s",
		"hashtags": ["#1","#2","#3","#4","#5","#6","#7","#8","#9","#10","#11","#12"],
		"workEnvironments": ["a","b","c","d"],
		"emotionalElements": [{"quote":"1"},{"quote":"2"},{"quote":"3"},{"quote":"4"},{"quote":"5"},{"quote":"6"}],
		"careerStage": "wizard",
		"confidenceScore": 7
	}`}
	a := NewContentAnalyzer(completer, 30000)

	an := a.Analyze(context.Background(), "content", "general").Analysis
	if len(an.Hashtags) != 10 {
		t.Errorf("Expected 10 hashtags, got %d", len(an.Hashtags))
	}
	if len(an.WorkEnvironments) != 3 {
		t.Errorf("Expected 3 work environments, got %d", len(an.WorkEnvironments))
	}
	if len(an.EmotionalElements) != 5 {
		t.Errorf("Expected 5 emotional elements, got %d", len(an.EmotionalElements))
	}
	if an.CareerStage != "any" {
		t.Errorf("Expected invalid career stage to become 'any', got %q", an.CareerStage)
	}
	if an.ConfidenceScore != 1 {
		t.Errorf("Expected confidence clamped to 1, got %v", an.ConfidenceScore)
	}
}

func TestAnalyze_MissingConfidenceGetsDefault(t *testing.T) {
	completer := &stubCompleter{response: `Here you go: {"summary": "ok", "keyThemes": ["x"]} hope it helps`}
	a := NewContentAnalyzer(completer, 30000)

	result := a.Analyze(context.Background(), "content", "general")
	if result.Degraded {
		t.Fatalf("Expected embedded JSON object to be extracted")
	}
	if result.Analysis.ConfidenceScore != 0.6 {
		t.Errorf("Expected default confidence 0.6, got %v", result.Analysis.ConfidenceScore)
	}
}

func TestTruncateForBudget(t *testing.T) {
	short := "short content"
	if got := truncateForBudget(short, 100); got != short {
		t.Errorf("Expected short content unchanged, got %q", got)
	}

	content := strings.Repeat("a", 5000) + strings.Repeat("z", 5000)
	budget := 1000 // tokens, about 4000 chars

	got := truncateForBudget(content, budget)

	if !strings.Contains(got, "[... content truncated ...]") {
		t.Fatalf("Expected truncation marker")
	}
	parts := strings.Split(got, truncationMarker)
	if len(parts) != 2 {
		t.Fatalf("Expected head and tail around marker, got %d parts", len(parts))
	}

	// window = 0.8 * 1000 * 4 = 3200 chars; head 80%, tail 20%
	if len(parts[0]) != 2560 {
		t.Errorf("Expected head of 2560 chars, got %d", len(parts[0]))
	}
	if len(parts[1]) != 640 {
		t.Errorf("Expected tail of 640 chars, got %d", len(parts[1]))
	}
	if !strings.HasPrefix(parts[0], "aaa") || !strings.HasSuffix(parts[1], "zzz") {
		t.Errorf("Expected opening and closing text to be preserved")
	}
}

func TestAnalyze_LongContentIsTruncatedInPrompt(t *testing.T) {
	completer := &stubCompleter{response: `{"summary":"ok"}`}
	a := NewContentAnalyzer(completer, 2000)

	content := strings.Repeat("word ", 10000)
	a.Analyze(context.Background(), content, "general")

	if !strings.Contains(completer.lastPrompt, "[... content truncated ...]") {
		t.Errorf("Expected long content to be truncated before sending")
	}
	if estimateTokens(completer.lastPrompt) > 2000 {
		t.Errorf("Expected prompt within budget, got %d tokens", estimateTokens(completer.lastPrompt))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tc := range tests {
		if got := estimateTokens(tc.in); got != tc.want {
			t.Errorf("estimateTokens(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}
