package models

import (
	"time"

	"github.com/google/uuid"
)

const JobTypeEnrichment = "video-enrichment"

type Job struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Type         string     `json:"type"` // "video-enrichment"
	VideoID      string     `json:"video_id"`
	Category     string     `json:"category,omitempty"` // manual category, optional
	Reprocess    bool       `json:"reprocess"`
	Status       string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	VideoID  string    `json:"video_id"`
	Step     int       `json:"step"`
	StepName string    `json:"step_name"`
}

type CompletedEvent struct {
	JobID          uuid.UUID `json:"job_id"`
	VideoID        string    `json:"video_id"`
	AnalysisStatus string    `json:"analysis_status"`
	Category       string    `json:"category"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	VideoID      string    `json:"video_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
