package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback filter values for RecommendRequest.FeedbackType.
const (
	FeedbackLiked    = "liked"
	FeedbackDisliked = "disliked"
	FeedbackSaved    = "saved"
)

type UserProfile struct {
	UserID        uuid.UUID `json:"user_id"`
	Interests     []string  `json:"interests"`
	Skills        []string  `json:"skills"`
	CareerGoals   []string  `json:"careerGoals"`
	LearningPaths []string  `json:"learningPaths"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Feedback flags are independent; more than one may be set for the same video.
type Feedback struct {
	UserID   uuid.UUID `json:"user_id"`
	VideoID  string    `json:"video_id"`
	Liked    bool      `json:"liked"`
	Disliked bool      `json:"disliked"`
	Saved    bool      `json:"saved"`
}

type UpdateProfileRequest struct {
	Interests     []string `json:"interests"`
	Skills        []string `json:"skills"`
	CareerGoals   []string `json:"careerGoals"`
	LearningPaths []string `json:"learningPaths"`
}

type FeedbackRequest struct {
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
	Saved    bool `json:"saved"`
}

type RecommendedVideo struct {
	VideoID  string  `json:"video_id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

type RecommendationResponse struct {
	VideoIDs []string           `json:"video_ids"`
	Items    []RecommendedVideo `json:"items"`
	Method   string             `json:"method"`
}
