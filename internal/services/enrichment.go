package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"careerclips-backend/internal/models"
	"careerclips-backend/internal/repository"
)

// TranscriptFetcher acquires captions for a source video id.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, sourceID string) (*models.Transcript, error)
}

// VideoInsighter answers a free-text prompt about the video at a URL.
type VideoInsighter interface {
	AnalyzeVideo(ctx context.Context, sourceURL, prompt string) (string, error)
}

// Analyzer turns transcript-like text into a StructuredAnalysis.
type Analyzer interface {
	Analyze(ctx context.Context, content, category string) AnalysisResult
}

// EnrichmentStore is the subset of the video store the pipeline writes to.
type EnrichmentStore interface {
	GetByID(ctx context.Context, id string) (*models.Video, error)
	MarkProcessing(ctx context.Context, id string) (bool, error)
	ResetToPending(ctx context.Context, id string) error
	MergeUpdate(ctx context.Context, id string, u *models.VideoUpdate) error
}

const generalCategory = "general"

// Progress step numbers reported through EnrichRequest.Progress.
const (
	StepTranscript   = 1
	StepVideoInsight = 2
	StepAnalysis     = 3
	StepStorage      = 4
)

type EnrichRequest struct {
	VideoID        string
	ManualCategory string
	Reprocess      bool
	Progress       func(step int, stepName string)
}

type StageResult struct {
	Attempted      bool          `json:"attempted"`
	Success        bool          `json:"success"`
	ProcessingTime time.Duration `json:"processing_time"`
	Error          string        `json:"error,omitempty"`
}

type EnrichmentResult struct {
	VideoID        string      `json:"video_id"`
	Skipped        bool        `json:"skipped"`
	AnalysisStatus string      `json:"analysis_status"`
	Category       string      `json:"category"`
	Error          string      `json:"error,omitempty"`
	Transcript     StageResult `json:"transcript"`
	VideoInsight   StageResult `json:"video_insight"`
	Analysis       StageResult `json:"analysis"`
	Storage        StageResult `json:"storage"`
}

type EnrichmentPipeline struct {
	store       EnrichmentStore
	transcripts TranscriptFetcher
	insights    VideoInsighter
	analyzer    Analyzer
	classifier  *CategoryClassifier
}

func NewEnrichmentPipeline(
	store EnrichmentStore,
	transcripts TranscriptFetcher,
	insights VideoInsighter,
	analyzer Analyzer,
	classifier *CategoryClassifier,
) *EnrichmentPipeline {
	return &EnrichmentPipeline{
		store:       store,
		transcripts: transcripts,
		insights:    insights,
		analyzer:    analyzer,
		classifier:  classifier,
	}
}

// Run enriches one video. Input and store-read errors are returned as errors;
// every other outcome, including a failed run, is described by the result.
func (p *EnrichmentPipeline) Run(ctx context.Context, req EnrichRequest) (*EnrichmentResult, error) {
	if strings.TrimSpace(req.VideoID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"video_id": "Video ID is required"}}
	}

	result := &EnrichmentResult{VideoID: req.VideoID}

	if req.Reprocess {
		if err := p.store.ResetToPending(ctx, req.VideoID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to reset video %s for reprocessing: %w", req.VideoID, err)
		}
	}

	video, err := p.store.GetByID(ctx, req.VideoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Video not found"}
		}
		return nil, fmt.Errorf("failed to load video %s: %w", req.VideoID, err)
	}

	if video.AnalysisStatus != "" && video.AnalysisStatus != models.StatusPending {
		log.Printf("Enrichment skipped for %s: status is %s", video.ID, video.AnalysisStatus)
		result.Skipped = true
		result.AnalysisStatus = video.AnalysisStatus
		return result, nil
	}

	claimed, err := p.store.MarkProcessing(ctx, video.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark video %s as processing: %w", video.ID, err)
	}
	if !claimed {
		log.Printf("Enrichment skipped for %s: another run claimed it first", video.ID)
		result.Skipped = true
		result.AnalysisStatus = models.StatusProcessing
		return result, nil
	}

	categoryHint := req.ManualCategory
	if categoryHint == "" {
		categoryHint = generalCategory
	}

	// Stage A: transcript
	var contentForAnalysis *string
	transcript := p.acquireTranscript(ctx, video, req, &result.Transcript)
	if transcript != nil {
		contentForAnalysis = &transcript.FullText
	}

	// Stage B: video insight
	if contentForAnalysis == nil {
		if output := p.acquireInsight(ctx, video, categoryHint, req, &result.VideoInsight); output != "" {
			contentForAnalysis = &output
		}
	}

	// Stage C: structured analysis
	var analysis *models.StructuredAnalysis
	if contentForAnalysis != nil {
		notify(req, StepAnalysis, "Analyzing content")
		start := time.Now()
		res := p.analyzer.Analyze(ctx, *contentForAnalysis, categoryHint)
		result.Analysis = StageResult{
			Attempted:      true,
			Success:        res.Success && res.Analysis != nil,
			ProcessingTime: time.Since(start),
		}
		if result.Analysis.Success {
			analysis = res.Analysis
		} else {
			result.Analysis.Error = "content analysis failed"
		}
	} else {
		result.Analysis.Error = "skipped: no content available for analysis"
	}

	result.Category = p.resolveCategory(req.ManualCategory, analysis)

	// Stage D: storage
	notify(req, StepStorage, "Saving results")
	p.persist(ctx, video.ID, analysis, transcript, result)

	if result.AnalysisStatus == models.StatusCompleted {
		log.Printf("Enrichment completed for %s (category: %s)", video.ID, result.Category)
	} else {
		log.Printf("Enrichment failed for %s: %s", video.ID, result.Error)
	}

	return result, nil
}

func (p *EnrichmentPipeline) acquireTranscript(ctx context.Context, video *models.Video, req EnrichRequest, stage *StageResult) *models.Transcript {
	notify(req, StepTranscript, "Fetching transcript")
	start := time.Now()
	stage.Attempted = true

	if video.SourceID == "" {
		stage.Error = "video has no source id"
		stage.ProcessingTime = time.Since(start)
		return nil
	}

	transcript, err := p.transcripts.FetchTranscript(ctx, video.SourceID)
	stage.ProcessingTime = time.Since(start)
	if err != nil {
		log.Printf("Transcript acquisition failed for %s: %v", video.ID, err)
		stage.Error = err.Error()
		return nil
	}
	if transcript == nil || strings.TrimSpace(transcript.FullText) == "" {
		stage.Error = "transcript is empty"
		return nil
	}

	stage.Success = true
	log.Printf("Fetched transcript for %s (%d segments, %d chars)", video.ID, transcript.SegmentCount, len(transcript.FullText))
	return transcript
}

func (p *EnrichmentPipeline) acquireInsight(ctx context.Context, video *models.Video, category string, req EnrichRequest, stage *StageResult) string {
	notify(req, StepVideoInsight, "Analyzing video")
	start := time.Now()
	stage.Attempted = true

	if video.SourceURL == "" {
		stage.Error = "video has no source url"
		stage.ProcessingTime = time.Since(start)
		return ""
	}

	output, err := p.insights.AnalyzeVideo(ctx, video.SourceURL, buildVideoInsightPrompt(category))
	stage.ProcessingTime = time.Since(start)
	if err != nil {
		log.Printf("Video insight failed for %s: %v", video.ID, err)
		stage.Error = err.Error()
		return ""
	}

	output = strings.TrimSpace(output)
	if output == "" {
		stage.Error = "video insight returned no output"
		return ""
	}

	stage.Success = true
	return output
}

func (p *EnrichmentPipeline) resolveCategory(manual string, analysis *models.StructuredAnalysis) string {
	if manual != "" {
		return manual
	}
	if analysis != nil {
		return p.classifier.ClassifyAnalysis(analysis)
	}
	return p.classifier.DefaultCategory()
}

// persist merge-writes the run outcome and verifies it by reading the record back.
func (p *EnrichmentPipeline) persist(ctx context.Context, id string, analysis *models.StructuredAnalysis, transcript *models.Transcript, result *EnrichmentResult) {
	start := time.Now()
	result.Storage.Attempted = true
	defer func() { result.Storage.ProcessingTime = time.Since(start) }()

	if analysis == nil {
		reason := "no stage produced an analysis"
		if result.Transcript.Error != "" || result.VideoInsight.Error != "" {
			reason = fmt.Sprintf("no stage produced an analysis (transcript: %s; video insight: %s)",
				orNone(result.Transcript.Error), orNone(result.VideoInsight.Error))
		}
		p.markFailed(ctx, id, result, reason)
		return
	}

	now := time.Now().UTC()
	status := models.StatusCompleted
	update := &models.VideoUpdate{
		Category:          &result.Category,
		AnalysisStatus:    &status,
		AIAnalysis:        analysis,
		Transcript:        transcript,
		ClearError:        true,
		LastAnalyzed:      &now,
		SkillsHighlighted: analysis.SkillsHighlighted,
		CareerPathways:    analysis.CareerPathways,
		KeyThemes:         analysis.KeyThemes,
		Hashtags:          analysis.Hashtags,
		EducationRequired: analysis.EducationRequired,
		WorkEnvironments:  analysis.WorkEnvironments,
		CareerStage:       &analysis.CareerStage,
	}

	if err := p.store.MergeUpdate(ctx, id, update); err != nil {
		log.Printf("Failed to store enrichment for %s: %v", id, err)
		result.Storage.Error = err.Error()
		p.markFailed(ctx, id, result, "storage write failed: "+err.Error())
		return
	}

	saved, err := p.store.GetByID(ctx, id)
	if err != nil || saved == nil || saved.AIAnalysis == nil || saved.AnalysisStatus != models.StatusCompleted {
		reason := "read-back verification failed: document missing"
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			reason = "read-back verification failed: " + err.Error()
		} else if saved != nil && saved.AIAnalysis == nil {
			reason = "read-back verification failed: analysis not persisted"
		} else if saved != nil {
			reason = fmt.Sprintf("read-back verification failed: status is %q", saved.AnalysisStatus)
		}
		log.Printf("Enrichment write for %s could not be verified: %s", id, reason)
		result.Storage.Error = reason
		p.markFailed(ctx, id, result, reason)
		return
	}

	result.Storage.Success = true
	result.AnalysisStatus = models.StatusCompleted
}

// markFailed records the failure reason. The write is best effort: the run
// is reported as failed whether or not it lands.
func (p *EnrichmentPipeline) markFailed(ctx context.Context, id string, result *EnrichmentResult, reason string) {
	result.AnalysisStatus = models.StatusFailed
	result.Error = reason

	now := time.Now().UTC()
	status := models.StatusFailed
	update := &models.VideoUpdate{
		Category:       &result.Category,
		AnalysisStatus: &status,
		AnalysisError:  &reason,
		LastAnalyzed:   &now,
	}
	if err := p.store.MergeUpdate(ctx, id, update); err != nil {
		log.Printf("Failed to record enrichment failure for %s: %v", id, err)
		if result.Storage.Error == "" {
			result.Storage.Error = err.Error()
		}
	}
}

func buildVideoInsightPrompt(category string) string {
	return fmt.Sprintf(`Watch this short career video (category: %s) and describe it for a career guidance analyst.
Cover: what the person does day to day, the skills and tools shown, the education or training mentioned,
the work environment, challenges and rewards of the job, and any memorable quotes with approximate timestamps.
Write plain prose, no markdown.`, category)
}

func notify(req EnrichRequest, step int, name string) {
	if req.Progress != nil {
		req.Progress(step, name)
	}
}

func orNone(s string) string {
	if s == "" {
		return "not attempted"
	}
	return s
}
