package services

import (
	"context"
	"time"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	MaxRescoreAttempts = 3
	RescoreInterval    = 5 * time.Minute
	RescoreBatchSize   = 10
)

// RescoreSweeper periodically re-queues Pending submissions that never got an AI score.
// It catches tasks lost by the in-process queue on restart.
type RescoreSweeper struct {
	db          *gorm.DB
	queue       TaskQueue
	maxAttempts int
	interval    time.Duration
}

func NewRescoreSweeper(db *gorm.DB, queue TaskQueue, maxAttempts int, interval time.Duration) *RescoreSweeper {
	if maxAttempts <= 0 {
		maxAttempts = MaxRescoreAttempts
	}
	if interval <= 0 {
		interval = RescoreInterval
	}
	return &RescoreSweeper{db: db, queue: queue, maxAttempts: maxAttempts, interval: interval}
}

// Start runs the sweep every interval until ctx is cancelled.
func (s *RescoreSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Infof("[Rescore] Sweeper started, interval: %v, max attempts: %d", s.interval, s.maxAttempts)
}

// Sweep enqueues one batch and returns how many submissions were queued.
// Nothing is queued while triage is switched off.
func (s *RescoreSweeper) Sweep(ctx context.Context) int {
	if !NewSystemConfigService(s.db).GetBool("triage_enabled", true) {
		return 0
	}

	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("status = ? AND ai_score IS NULL AND triage_attempts < ?", models.SubmissionPending, s.maxAttempts).
		Where("updated_at < ?", time.Now().Add(-time.Minute)).
		Order("created_at ASC").
		Limit(RescoreBatchSize).
		Pluck("id", &ids).Error
	if err != nil {
		logger.Errorf("[Rescore] Failed to fetch unscored submissions: %v", err)
		return 0
	}

	queued := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(&RescoreTask{SubmissionID: id}); err != nil {
			logger.Warnf("[Rescore] Failed to enqueue submission %d: %v", id, err)
			continue
		}
		queued++
	}
	if queued > 0 {
		logger.Infof("[Rescore] Queued %d submissions for rescoring", queued)
	}
	return queued
}
