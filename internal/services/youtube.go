package services

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	urlpkg "net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yterrors "github.com/hightemp/youtube-transcript-api-go/errors"
	yt "github.com/kkdai/youtube/v2"

	"careerclips-backend/internal/models"
)

var preferredTranscriptLanguages = []string{"en", "en-US", "en-GB"}

const (
	transcriptAttempts = 3
	transcriptBackoff  = 2 * time.Second
)

type YouTubeService struct {
	httpClient        *http.Client
	transcriptAPI     *ytapi.YouTubeTranscriptApi
	ytClient          *yt.Client
	transcriptBackoff time.Duration
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		transcriptAPI:     ytapi.NewYouTubeTranscriptApi(),
		ytClient:          &yt.Client{},
		transcriptBackoff: transcriptBackoff,
	}
}

// FetchTranscript fetches captions for a YouTube video id, preferring English.
func (s *YouTubeService) FetchTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required")
	}

	fetch := func(languages []string) (*ytapi.Transcript, error) {
		return retryTranscript(ctx, transcriptAttempts, s.transcriptBackoff, func() (*ytapi.Transcript, error) {
			return s.transcriptAPI.GetTranscript(videoID, languages)
		})
	}

	transcript, err := fetch(preferredTranscriptLanguages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Fallback: request any available language
		transcript, err = fetch(nil)
		if err != nil {
			timed, timedErr := s.getTranscriptViaTimedText(ctx, videoID)
			if timedErr == nil {
				return timed, nil
			}
			return nil, fmt.Errorf("no subtitles available via transcript API (%v) and timedtext fallback failed (%v)", err, timedErr)
		}
	}

	if len(transcript.Entries) == 0 {
		return nil, fmt.Errorf("subtitle track is empty")
	}

	return buildTranscript(entriesToSegments(transcript.Entries), "transcript_api")
}

func entriesToSegments(entries []ytapi.TranscriptEntry) []models.TranscriptSegment {
	var segments []models.TranscriptSegment
	for _, entry := range entries {
		text := strings.TrimSpace(html.UnescapeString(entry.Text))
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			Text:     text,
			Start:    entry.Start,
			Duration: entry.Duration,
		})
	}
	return segments
}

// retryTranscript calls fetch up to attempts times, doubling the wait after
// each transient failure. Missing or disabled captions are returned at once.
func retryTranscript(ctx context.Context, attempts int, backoff time.Duration, fetch func() (*ytapi.Transcript, error)) (*ytapi.Transcript, error) {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var transcript *ytapi.Transcript
		transcript, err = fetch()
		if err == nil {
			return transcript, nil
		}
		if !isTransientTranscriptError(err) || attempt == attempts {
			break
		}

		wait := backoff << (attempt - 1)
		log.Printf("Transcript fetch attempt %d/%d failed (%v), retrying in %s", attempt, attempts, err, wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, err
}

// isTransientTranscriptError reports rate limiting, IP blocks and request
// failures. Everything else means the captions do not exist.
func isTransientTranscriptError(err error) bool {
	msg := err.Error()
	var te *yterrors.TranscriptError
	if errors.As(err, &te) {
		msg = te.Message
	}
	msg = strings.ToLower(msg)
	for _, marker := range []string{"too many requests", "429", "blocked", "request error"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (s *YouTubeService) getTranscriptViaTimedText(ctx context.Context, videoID string) (*models.Transcript, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read YouTube page: %w", err)
	}

	pageHTML := string(body)
	log.Printf("TimedText fallback: fetched YouTube page for %s (%d bytes)", videoID, len(pageHTML))

	captionURL, err := extractCaptionURL(pageHTML)
	if err != nil {
		return nil, err
	}

	captionReq, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return nil, err
	}
	captionResp, err := s.httpClient.Do(captionReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer captionResp.Body.Close()

	captionBody, err := io.ReadAll(captionResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}

	segments, err := parseCaptionsXML(captionBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse captions XML: %w", err)
	}

	return buildTranscript(segments, "timedtext")
}

func buildTranscript(segments []models.TranscriptSegment, source string) (*models.Transcript, error) {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}

	fullText := strings.TrimSpace(strings.Join(parts, " "))
	if fullText == "" {
		return nil, fmt.Errorf("subtitle text resolved to empty content")
	}

	return &models.Transcript{
		Segments:     segments,
		FullText:     fullText,
		SegmentCount: len(segments),
		Source:       source,
	}, nil
}

func extractCaptionURL(pageHTML string) (string, error) {
	re := regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	matches := re.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		return "", fmt.Errorf("no captions available for this video")
	}

	reURL := regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	urlMatches := reURL.FindStringSubmatch(matches[1])
	if len(urlMatches) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	u := urlMatches[1]
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")

	return u, nil
}

func parseCaptionsXML(data []byte) ([]models.TranscriptSegment, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	var segments []models.TranscriptSegment
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		segments = append(segments, models.TranscriptSegment{Text: text, Start: start, Duration: dur})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("captions XML empty")
	}

	return segments, nil
}

// DownloadAudio downloads the best available audio-only stream for a YouTube URL.
func (s *YouTubeService) DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, "", fmt.Errorf("no audio formats available")
	}

	best := formats[0]
	for _, f := range formats {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	stream, _, err := s.ytClient.GetStreamContext(ctx, video, &best)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	const maxAudioBytes = 50 * 1024 * 1024 // short-form videos only
	limited := io.LimitReader(stream, maxAudioBytes+1)
	audioBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audioBytes) > maxAudioBytes {
		return nil, "", fmt.Errorf("audio stream exceeds %d MB limit", maxAudioBytes/(1024*1024))
	}

	mimeType := strings.TrimSpace(strings.Split(best.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}

	return audioBytes, mimeType, nil
}

// GetVideoMetadata returns the editorial fields of a YouTube video.
func (s *YouTubeService) GetVideoMetadata(ctx context.Context, videoID string) (*models.YouTubeMetadata, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	meta := &models.YouTubeMetadata{
		VideoID:      videoID,
		Title:        video.Title,
		Description:  video.Description,
		ChannelName:  video.Author,
		ThumbnailURL: fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID),
		Duration:     int(video.Duration.Seconds()),
		ViewCount:    int64(video.Views),
	}

	// Prefer the largest thumbnail YouTube reports
	var bestWidth uint
	for _, th := range video.Thumbnails {
		if th.URL != "" && th.Width >= bestWidth {
			bestWidth = th.Width
			meta.ThumbnailURL = th.URL
		}
	}

	return meta, nil
}

// ExtractVideoID returns the 11-character id of a YouTube URL, or "".
func ExtractVideoID(url string) string {
	parsed, err := urlpkg.Parse(url)
	if err == nil {
		host := strings.ToLower(parsed.Host)
		path := strings.Trim(parsed.Path, "/")

		// youtube.com/watch?v=VIDEO_ID
		if strings.Contains(host, "youtube.com") {
			if v := parsed.Query().Get("v"); len(v) == 11 {
				return v
			}

			parts := strings.Split(path, "/")
			if len(parts) >= 2 {
				switch parts[0] {
				case "shorts", "embed", "v":
					if len(parts[1]) == 11 {
						return parts[1]
					}
				}
			}
		}

		// youtu.be/VIDEO_ID
		if strings.Contains(host, "youtu.be") {
			candidate := strings.Split(path, "/")[0]
			if len(candidate) == 11 {
				return candidate
			}
		}
	}

	if m := videoIDPattern.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}

	return ""
}

var videoIDPattern = regexp.MustCompile(`(?:v=|\/v\/|youtu\.be\/|embed\/|shorts\/)([a-zA-Z0-9_-]{11})`)

// VideoRecordID derives the stable record id for a source URL.
func VideoRecordID(sourceURL string) string {
	if id := ExtractVideoID(sourceURL); id != "" {
		return "yt_" + id
	}
	return ""
}
