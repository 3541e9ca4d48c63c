package audit

import (
	"context"
	"testing"
	"time"
)

func TestRetentionScheduler_Prune(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 11, 20, 3, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store.Append(ctx, &Entry{ID: "old", Time: now.AddDate(0, 0, -31)})
	store.Append(ctx, &Entry{ID: "edge", Time: now.AddDate(0, 0, -30)})
	store.Append(ctx, &Entry{ID: "new", Time: now.Add(-time.Hour)})

	s := NewRetentionScheduler(store, RetentionConfig{Days: 30, Schedule: "0 3 * * *"})
	s.now = func() time.Time { return now }

	deleted, err := s.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune() = %d, want 1", deleted)
	}
}

func TestRetentionScheduler_StartStop(t *testing.T) {
	s := NewRetentionScheduler(NewMemoryStore(), RetentionConfig{Days: 7, Schedule: "0 3 * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}

	next := s.NextRun()
	if next == nil {
		t.Fatal("NextRun() = nil")
	}
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextRun() = %v, want 03:00", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestRetentionScheduler_Disabled(t *testing.T) {
	tests := []struct {
		name   string
		config RetentionConfig
	}{
		{name: "no schedule", config: RetentionConfig{Days: 30}},
		{name: "keep forever", config: RetentionConfig{Schedule: "0 3 * * *"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRetentionScheduler(NewMemoryStore(), tt.config)
			if err := s.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if s.IsRunning() {
				t.Error("IsRunning() = true, want false")
			}
		})
	}
}

func TestRetentionScheduler_InvalidSchedule(t *testing.T) {
	s := NewRetentionScheduler(NewMemoryStore(), RetentionConfig{Days: 1, Schedule: "every day"})
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() with invalid schedule should fail")
	}
}
