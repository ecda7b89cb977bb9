package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/taskhive/backend/internal/config"
)

func TestSyncQueue_IsAsync(t *testing.T) {
	if NewSyncQueue().IsAsync() {
		t.Error("SyncQueue.IsAsync() should be false")
	}
}

func TestSyncQueue_RunsProcessor(t *testing.T) {
	q := NewSyncQueue()
	var seen atomic.Int64
	q.SetProcessor(func(ctx context.Context, task *RescoreTask) error {
		seen.Add(int64(task.SubmissionID))
		return nil
	})

	for i := uint(1); i <= 4; i++ {
		if err := q.Enqueue(&RescoreTask{SubmissionID: i}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := seen.Load(); got != 10 {
		t.Errorf("processed ids sum = %d, want 10", got)
	}
}

func TestSyncQueue_ProcessorErrorIsSwallowed(t *testing.T) {
	q := NewSyncQueue()
	q.SetProcessor(func(ctx context.Context, task *RescoreTask) error {
		return errors.New("scorer down")
	})
	if err := q.Enqueue(&RescoreTask{SubmissionID: 1}); err != nil {
		t.Errorf("Enqueue() should not surface processor errors, got %v", err)
	}
	_ = q.Close()
}

func TestSyncQueue_NoProcessor(t *testing.T) {
	q := NewSyncQueue()
	if err := q.Enqueue(&RescoreTask{SubmissionID: 1}); err != nil {
		t.Errorf("Enqueue() without processor should be a no-op, got %v", err)
	}
	_ = q.Close()
}

func TestNewWorker_DisabledWithoutRedis(t *testing.T) {
	if w := NewWorker(&config.RedisConfig{Enabled: false}); w != nil {
		t.Error("NewWorker should return nil when Redis is disabled")
	}
}
