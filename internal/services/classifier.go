package services

import (
	"regexp"
	"strings"

	"careerclips-backend/internal/models"
)

// CategoryKeywords is one entry of a category taxonomy.
type CategoryKeywords struct {
	Name     string
	Keywords []string
}

// Taxonomy is an ordered list of categories. Order decides ties.
type Taxonomy []CategoryKeywords

// DefaultTaxonomy returns the built-in career taxonomy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{Name: "technology", Keywords: []string{
			"software", "developer", "programming", "coding", "engineer", "engineering",
			"data", "ai", "machine learning", "cybersecurity", "cloud", "tech", "computer",
			"web", "app",
		}},
		{Name: "healthcare", Keywords: []string{
			"nurse", "nursing", "doctor", "medical", "hospital", "patient", "health",
			"healthcare", "clinic", "therapist", "pharmacy", "physician", "dental",
		}},
		{Name: "creative", Keywords: []string{
			"design", "designer", "art", "artist", "music", "film", "video", "photography",
			"writing", "writer", "creative", "animation", "fashion", "content creator",
		}},
		{Name: "trades", Keywords: []string{
			"electrician", "plumber", "plumbing", "welding", "welder", "carpentry",
			"carpenter", "construction", "mechanic", "hvac", "apprenticeship", "trade",
			"trades", "baking", "baker", "chef", "culinary",
		}},
		{Name: "business", Keywords: []string{
			"business", "marketing", "sales", "management", "manager", "entrepreneur",
			"startup", "consulting", "operations", "office", "corporate", "leadership",
		}},
		{Name: "sustainability", Keywords: []string{
			"sustainability", "sustainable", "environment", "environmental", "climate",
			"renewable", "solar", "conservation", "green", "recycling", "energy",
		}},
		{Name: "education", Keywords: []string{
			"teacher", "teaching", "education", "school", "classroom", "tutor",
			"professor", "curriculum", "students", "learning",
		}},
		{Name: "finance", Keywords: []string{
			"finance", "financial", "accounting", "accountant", "banking", "investment",
			"investing", "trading", "analyst", "insurance", "tax", "budget",
		}},
	}
}

type compiledCategory struct {
	name     string
	patterns []*regexp.Regexp
}

// CategoryClassifier scores text against a keyword taxonomy.
type CategoryClassifier struct {
	categories      []compiledCategory
	defaultCategory string
}

func NewCategoryClassifier(taxonomy Taxonomy, defaultCategory string) *CategoryClassifier {
	categories := make([]compiledCategory, 0, len(taxonomy))
	for _, c := range taxonomy {
		cc := compiledCategory{name: c.Name}
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			cc.patterns = append(cc.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		categories = append(categories, cc)
	}

	return &CategoryClassifier{
		categories:      categories,
		defaultCategory: defaultCategory,
	}
}

// DefaultCategory is returned when nothing in the text matches.
func (c *CategoryClassifier) DefaultCategory() string {
	return c.defaultCategory
}

// Classify returns the category with the most whole-word keyword hits.
func (c *CategoryClassifier) Classify(text string) string {
	text = strings.ToLower(text)

	best := ""
	bestScore := 0
	for _, cat := range c.categories {
		score := 0
		for _, p := range cat.patterns {
			score += len(p.FindAllStringIndex(text, -1))
		}
		// strict > keeps the earlier category on ties
		if score > bestScore {
			best = cat.name
			bestScore = score
		}
	}

	if bestScore == 0 {
		return c.defaultCategory
	}
	return best
}

// ClassifyAnalysis classifies the career-relevant fields of an analysis.
func (c *CategoryClassifier) ClassifyAnalysis(a *models.StructuredAnalysis) string {
	if a == nil {
		return c.defaultCategory
	}
	return c.Classify(ClassificationText(a))
}

// ClassificationText joins pathways, themes, environments and hashtags.
func ClassificationText(a *models.StructuredAnalysis) string {
	var parts []string
	parts = append(parts, a.CareerPathways...)
	parts = append(parts, a.KeyThemes...)
	parts = append(parts, a.WorkEnvironments...)
	parts = append(parts, a.Hashtags...)
	return strings.ToLower(strings.Join(parts, " "))
}
