package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"careerclips-backend/internal/metrics"
	"careerclips-backend/internal/models"
	"careerclips-backend/internal/services"
)

const (
	EnrichmentQueue = "queue:video-enrichment"

	popTimeout = 30 * time.Second
	lockTTL    = 10 * time.Minute
)

type Enricher interface {
	Run(ctx context.Context, req services.EnrichRequest) (*services.EnrichmentResult, error)
}

type Indexer interface {
	Index(ctx context.Context, videoID string) error
}

type JobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string) error
}

type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// Queue pushes enrichment jobs onto the Redis list the pool consumes.
type Queue struct {
	redis *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{redis: client}
}

func (q *Queue) Enqueue(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.redis.LPush(ctx, EnrichmentQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

type Pool struct {
	redis       *redis.Client
	pipeline    Enricher
	indexer     Indexer
	jobs        JobStore
	publisher   Publisher
	workerCount int
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	pipeline Enricher,
	indexer Indexer,
	jobs JobStore,
	publisher Publisher,
	workerCount int,
) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		pipeline:    pipeline,
		indexer:     indexer,
		jobs:        jobs,
		publisher:   publisher,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Printf("Started %d enrichment workers", p.workerCount)
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, popTimeout, EnrichmentQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Printf("Worker %d: queue read failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// One run per video at a time across all workers and replicas.
		lockKey := "video_lock:" + job.VideoID
		locked, err := p.redis.SetNX(ctx, lockKey, job.ID.String(), lockTTL).Result()
		if err != nil || !locked {
			log.Printf("Worker %d: video %s is already being enriched, dropping job %s", id, job.VideoID, job.ID)
			p.finishSkipped(ctx, &job, "another enrichment run holds the video lock")
			continue
		}

		log.Printf("Worker %d: processing job %s (video: %s)", id, job.ID, job.VideoID)
		p.process(ctx, &job)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, job *models.Job) {
	p.jobs.UpdateStatus(ctx, job.ID, models.StatusProcessing)

	res, err := p.pipeline.Run(ctx, services.EnrichRequest{
		VideoID:        job.VideoID,
		ManualCategory: job.Category,
		Reprocess:      job.Reprocess,
		Progress: func(step int, stepName string) {
			p.publisher.Publish(ctx, job.UserID, models.WSMessage{
				Type: "status_update",
				Payload: models.StatusUpdate{
					JobID:    job.ID,
					VideoID:  job.VideoID,
					Step:     step,
					StepName: stepName,
				},
			})
		},
	})

	if res != nil {
		observeStages(res)
	}

	switch {
	case err != nil:
		p.handleFailure(ctx, job, err.Error())
	case res.Skipped:
		p.finishSkipped(ctx, job, "video is "+res.AnalysisStatus)
	case res.AnalysisStatus != models.StatusCompleted:
		p.handleFailure(ctx, job, res.Error)
	default:
		if p.indexer != nil {
			err := p.indexer.Index(ctx, job.VideoID)
			if err != nil {
				log.Printf("Job %s: video %s enriched but not indexed: %v", job.ID, job.VideoID, err)
			}
			metrics.VideosIndexed.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
		}
		p.handleSuccess(ctx, job, res)
	}
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, res *services.EnrichmentResult) {
	metrics.EnrichmentRuns.WithLabelValues("completed").Inc()
	p.jobs.UpdateStatus(ctx, job.ID, models.StatusCompleted)

	p.publisher.Publish(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:          job.ID,
			VideoID:        job.VideoID,
			AnalysisStatus: res.AnalysisStatus,
			Category:       res.Category,
		},
	})

	log.Printf("Job %s completed (video: %s, category: %s)", job.ID, job.VideoID, res.Category)
}

// handleFailure records a failed run. Enrichment is not retried here; a
// reprocess request starts a new run.
func (p *Pool) handleFailure(ctx context.Context, job *models.Job, errMsg string) {
	log.Printf("Job %s failed (video: %s): %s", job.ID, job.VideoID, errMsg)
	metrics.EnrichmentRuns.WithLabelValues("failed").Inc()
	p.jobs.UpdateStatus(ctx, job.ID, models.StatusFailed)
	p.jobs.UpdateError(ctx, job.ID, errMsg)

	p.publisher.Publish(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			VideoID:      job.VideoID,
			ErrorCode:    "ENRICHMENT_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

func (p *Pool) finishSkipped(ctx context.Context, job *models.Job, reason string) {
	metrics.EnrichmentRuns.WithLabelValues("skipped").Inc()
	p.jobs.UpdateStatus(ctx, job.ID, models.StatusCompleted)
	p.jobs.UpdateError(ctx, job.ID, "skipped: "+reason)
}

func observeStages(res *services.EnrichmentResult) {
	for name, st := range map[string]services.StageResult{
		"transcript":    res.Transcript,
		"video_insight": res.VideoInsight,
		"analysis":      res.Analysis,
		"storage":       res.Storage,
	} {
		metrics.ObserveStage(name, st.Attempted, st.Success, st.ProcessingTime)
	}
}
