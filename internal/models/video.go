package models

import (
	"time"
)

// Analysis status values for Video.AnalysisStatus.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Career stage values for StructuredAnalysis.CareerStage.
const (
	StageEntryLevel  = "entry-level"
	StageMidCareer   = "mid-career"
	StageSeniorLevel = "senior-level"
	StageAny         = "any"
)

type Video struct {
	ID           string `json:"id"`
	SourceURL    string `json:"sourceUrl"`
	SourceID     string `json:"sourceId"`
	SourceType   string `json:"sourceType"` // "youtube"
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Creator      string `json:"creator"`
	Duration     int    `json:"duration"` // seconds
	Category     string `json:"category"`
	ViewCount    int64  `json:"viewCount"`

	AnalysisStatus string              `json:"analysisStatus"`
	AIAnalysis     *StructuredAnalysis `json:"aiAnalysis,omitempty"`
	Transcript     *Transcript         `json:"transcript,omitempty"`
	AnalysisError  *string             `json:"analysisError,omitempty"`
	LastAnalyzed   *time.Time          `json:"lastAnalyzed,omitempty"`

	// Denormalized copies of AIAnalysis fields
	SkillsHighlighted []string `json:"skillsHighlighted"`
	CareerPathways    []string `json:"careerPathways"`
	KeyThemes         []string `json:"keyThemes"`
	Hashtags          []string `json:"hashtags"`
	EducationRequired []string `json:"educationRequired"`
	WorkEnvironments  []string `json:"workEnvironments"`
	CareerStage       string   `json:"careerStage"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VideoUpdate is a merge patch for a Video. Nil fields are left untouched.
type VideoUpdate struct {
	Category          *string
	AnalysisStatus    *string
	AIAnalysis        *StructuredAnalysis
	Transcript        *Transcript
	AnalysisError     *string
	ClearError        bool
	LastAnalyzed      *time.Time
	SkillsHighlighted []string
	CareerPathways    []string
	KeyThemes         []string
	Hashtags          []string
	EducationRequired []string
	WorkEnvironments  []string
	CareerStage       *string
}

type EmotionalElement struct {
	TimestampLabel string `json:"timestampLabel"`
	Quote          string `json:"quote"`
	Significance   string `json:"significance"`
}

type StructuredAnalysis struct {
	Summary           string             `json:"summary"`
	KeyThemes         []string           `json:"keyThemes"`
	SkillsHighlighted []string           `json:"skillsHighlighted"`
	Challenges        []string           `json:"challenges"`
	CareerPathways    []string           `json:"careerPathways"`
	Hashtags          []string           `json:"hashtags"`
	EmotionalElements []EmotionalElement `json:"emotionalElements"`
	EducationRequired []string           `json:"educationRequired"`
	CareerStage       string             `json:"careerStage"`
	WorkEnvironments  []string           `json:"workEnvironments"`
	ConfidenceScore   float64            `json:"confidenceScore"`
}

type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

type Transcript struct {
	Segments     []TranscriptSegment `json:"segments"`
	FullText     string              `json:"fullText"`
	SegmentCount int                 `json:"segmentCount"`
	Source       string              `json:"source"` // "transcript_api" | "timedtext" | "video_insight"
}

type IngestVideoRequest struct {
	URL      string `json:"url"`
	Category string `json:"category,omitempty"`
}

type ReprocessRequest struct {
	Category string `json:"category,omitempty"`
}

// YouTubeMetadata is the editorial information collected at ingest time.
type YouTubeMetadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelName  string `json:"channel_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     int    `json:"duration_seconds"`
	ViewCount    int64  `json:"view_count"`
}
