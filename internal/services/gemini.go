package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	gobreaker "github.com/sony/gobreaker/v2"
	"google.golang.org/api/option"

	"careerclips-backend/internal/metrics"
)

// AudioSource downloads the audio track of a source video.
type AudioSource interface {
	DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error)
}

type GeminiService struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	jsonModel *genai.GenerativeModel
	embedder  *genai.EmbeddingModel
	audio     AudioSource
	breaker   *gobreaker.CircuitBreaker[any]
	rateChan  chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName, embeddingModel string, concurrentReqs int, audio AudioSource) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	jsonModel := client.GenerativeModel(modelName)
	jsonModel.SetTemperature(0.2)
	jsonModel.ResponseMIMEType = "application/json"

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:    client,
		model:     model,
		jsonModel: jsonModel,
		embedder:  client.EmbeddingModel(embeddingModel),
		audio:     audio,
		breaker:   newGeminiBreaker("gemini-api"),
		rateChan:  rateChan,
	}, nil
}

// newGeminiBreaker opens after 5 consecutive failures and probes again after 30s.
func newGeminiBreaker(name string) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// guarded runs fn inside a rate slot and the circuit breaker.
func guarded[T any](ctx context.Context, s *GeminiService, fn func() (T, error)) (T, error) {
	var zero T
	if err := s.acquireRate(ctx); err != nil {
		return zero, err
	}
	defer s.releaseRate()

	out, err := s.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("Gemini unavailable: %w", err)
		}
		return zero, err
	}
	return out.(T), nil
}

// Complete sends a single prompt and returns the raw text of the response.
func (s *GeminiService) Complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	model := s.model
	if jsonMode {
		model = s.jsonModel
	}

	return guarded(ctx, s, func() (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", fmt.Errorf("Gemini API error: %w", err)
		}

		for i, cand := range resp.Candidates {
			if cand.FinishReason != genai.FinishReasonStop {
				log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
			}
		}

		text := extractText(resp)
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("Gemini returned empty text")
		}
		return text, nil
	})
}

// AnalyzeVideo asks Gemini about the video at sourceURL. When the URL cannot be
// read directly, the audio track is downloaded and analysed instead.
func (s *GeminiService) AnalyzeVideo(ctx context.Context, sourceURL, prompt string) (string, error) {
	output, err := guarded(ctx, s, func() (string, error) {
		resp, err := s.model.GenerateContent(ctx,
			genai.FileData{URI: sourceURL},
			genai.Text(prompt),
		)
		if err != nil {
			return "", fmt.Errorf("Gemini video insight error: %w", err)
		}
		text := strings.TrimSpace(extractText(resp))
		if text == "" {
			return "", fmt.Errorf("Gemini returned empty video insight")
		}
		return text, nil
	})
	if err == nil {
		return output, nil
	}

	if s.audio == nil {
		return "", err
	}
	log.Printf("Video insight via URL failed for %s, trying audio track: %v", sourceURL, err)

	audioBytes, mimeType, audioErr := s.audio.DownloadAudio(ctx, sourceURL)
	if audioErr != nil {
		return "", fmt.Errorf("video insight failed (%v) and audio download failed: %w", err, audioErr)
	}

	output, audioErr = s.analyzeAudio(ctx, audioBytes, mimeType, prompt)
	if audioErr != nil {
		return "", fmt.Errorf("video insight failed (%v) and audio analysis failed: %w", err, audioErr)
	}
	return output, nil
}

// analyzeAudio uploads audio to the Gemini File API and runs prompt over it.
func (s *GeminiService) analyzeAudio(ctx context.Context, audio []byte, mimeType, prompt string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	return guarded(ctx, s, func() (string, error) {
		file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
			DisplayName: "video-audio",
			MIMEType:    mimeType,
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload audio to Gemini: %w", err)
		}

		// Ensure remote file is cleaned up
		defer s.client.DeleteFile(context.Background(), file.Name)

		// Wait until file is active
		for i := 0; i < 20; i++ {
			current, getErr := s.client.GetFile(ctx, file.Name)
			if getErr != nil {
				return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
			}

			if current.State == genai.FileStateActive {
				file = current
				break
			}
			if current.State == genai.FileStateFailed {
				return "", fmt.Errorf("Gemini failed to process uploaded audio file")
			}

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}

		if file.State != genai.FileStateActive {
			return "", fmt.Errorf("audio file did not become active in time")
		}

		resp, err := s.model.GenerateContent(ctx,
			genai.Text(prompt),
			genai.FileData{MIMEType: mimeType, URI: file.URI},
		)
		if err != nil {
			return "", fmt.Errorf("Gemini audio analysis error: %w", err)
		}

		text := strings.TrimSpace(extractText(resp))
		if text == "" {
			return "", fmt.Errorf("Gemini returned empty audio analysis")
		}
		return text, nil
	})
}

// Embed returns the embedding vector for text.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	return guarded(ctx, s, func() ([]float32, error) {
		res, err := s.embedder.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, fmt.Errorf("Gemini embedding error: %w", err)
		}
		if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
			return nil, fmt.Errorf("Gemini returned empty embedding")
		}
		return res.Embedding.Values, nil
	})
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// stripCodeFence removes a surrounding ```json fence if the model added one.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
