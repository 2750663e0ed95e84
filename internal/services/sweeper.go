package services

import (
	"context"
	"log"
	"time"
)

const (
	staleProcessingReason = "enrichment interrupted before completion"
	sweepPollInterval     = 5 * time.Minute
)

// StaleProcessingStore fails videos stuck in processing.
type StaleProcessingStore interface {
	FailStaleProcessing(ctx context.Context, cutoff time.Time, reason string) ([]string, error)
}

// StaleSweeper recovers videos left in processing by a worker that died
// mid-run. Without it such videos can never be claimed again.
type StaleSweeper struct {
	store    StaleProcessingStore
	maxAge   time.Duration
	interval time.Duration
	stopChan chan struct{}
}

func NewStaleSweeper(store StaleProcessingStore, maxAge time.Duration) *StaleSweeper {
	return &StaleSweeper{
		store:    store,
		maxAge:   maxAge,
		interval: sweepPollInterval,
		stopChan: make(chan struct{}),
	}
}

func (s *StaleSweeper) Start() {
	if s.store == nil || s.maxAge <= 0 {
		return
	}
	go s.loop()
	log.Printf("Stale enrichment sweeper started (max age %s)", s.maxAge)
}

func (s *StaleSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *StaleSweeper) loop() {
	// Run on startup as well as by interval.
	s.Sweep(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Sweep(context.Background(), time.Now().UTC())
		}
	}
}

// Sweep fails every video whose processing began before now-maxAge.
func (s *StaleSweeper) Sweep(ctx context.Context, now time.Time) int {
	ids, err := s.store.FailStaleProcessing(ctx, sweepCutoff(now, s.maxAge), staleProcessingReason)
	if err != nil {
		log.Printf("stale sweep: %v", err)
		return 0
	}
	for _, id := range ids {
		log.Printf("stale sweep: marked %s as failed", id)
	}
	return len(ids)
}

func sweepCutoff(now time.Time, maxAge time.Duration) time.Time {
	return now.Add(-maxAge)
}
