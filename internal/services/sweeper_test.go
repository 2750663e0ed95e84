package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubStaleStore struct {
	ids        []string
	err        error
	lastCutoff time.Time
	lastReason string
}

func (s *stubStaleStore) FailStaleProcessing(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	s.lastCutoff = cutoff
	s.lastReason = reason
	return s.ids, s.err
}

func TestStaleSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	store := &stubStaleStore{ids: []string{"yt_a", "yt_b"}}
	s := NewStaleSweeper(store, 30*time.Minute)

	if n := s.Sweep(context.Background(), now); n != 2 {
		t.Fatalf("expected 2 swept videos, got %d", n)
	}
	if want := now.Add(-30 * time.Minute); !store.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, store.lastCutoff)
	}
	if store.lastReason == "" {
		t.Fatalf("expected a failure reason to be recorded")
	}
}

func TestStaleSweeper_SweepError(t *testing.T) {
	s := NewStaleSweeper(&stubStaleStore{err: errors.New("db down")}, time.Minute)
	if n := s.Sweep(context.Background(), time.Now()); n != 0 {
		t.Fatalf("expected 0 on store error, got %d", n)
	}
}

func TestStaleSweeper_StopIsIdempotent(t *testing.T) {
	s := NewStaleSweeper(&stubStaleStore{}, time.Minute)
	s.Stop()
	s.Stop()
}
