package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"gorm.io/gorm"
)

// Review states as seen by an admin. Pending submissions are PENDING_TRIAGE until
// the scorer has run (or failed), then NEEDS_REVIEW.
const (
	StatePendingTriage = "PENDING_TRIAGE"
	StateAutoApproved  = "AUTO_APPROVED"
	StateNeedsReview   = "NEEDS_REVIEW"
)

// ReviewState derives the state-machine position of a submission.
func ReviewState(sub *models.Submission) string {
	switch sub.Status {
	case models.SubmissionApproved:
		if sub.ReviewedBy == nil {
			return StateAutoApproved
		}
		return models.SubmissionApproved
	case models.SubmissionRejected:
		return models.SubmissionRejected
	}
	if sub.AIScore == nil && sub.TriageAttempts == 0 {
		return StatePendingTriage
	}
	return StateNeedsReview
}

type ReviewService struct {
	db        *gorm.DB
	wallet    *WalletService
	settings  *SystemConfigService
	threshold float64
	events    *SSEHub
}

// NewReviewService uses threshold unless the triage_auto_approve_threshold setting overrides it.
func NewReviewService(db *gorm.DB, wallet *WalletService, threshold float64) *ReviewService {
	return &ReviewService{
		db:        db,
		wallet:    wallet,
		settings:  NewSystemConfigService(db),
		threshold: threshold,
		events:    GetSSEHub(),
	}
}

func (s *ReviewService) AutoApproveThreshold() float64 {
	return s.settings.AutoApproveThreshold(s.threshold)
}

// ApplyTriage records the triage outcome and auto-approves when the score clears the
// threshold and nothing looks inconsistent. Everything else waits for an admin.
func (s *ReviewService) ApplyTriage(ctx context.Context, submissionID uint, result TriageResult, triageErr error) (*models.Submission, error) {
	threshold := s.AutoApproveThreshold()
	autoApprove := triageErr == nil && result.AIScore != nil && *result.AIScore >= threshold && !result.ConsistencyWarning

	var sub models.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Project", withDeleted).First(&sub, submissionID).Error; err != nil {
			return notFound(err)
		}
		if sub.IsTerminal() {
			return &AlreadyReviewedError{Kind: "submission", ID: sub.ID, Status: sub.Status}
		}

		updates := map[string]interface{}{
			"ai_score":            result.AIScore,
			"ai_feedback":         result.AIFeedback,
			"consistency_warning": result.ConsistencyWarning,
			"triage_attempts":     gorm.Expr("triage_attempts + 1"),
			"triage_error":        "",
		}
		if triageErr != nil {
			updates["triage_error"] = triageErr.Error()
		}

		if !autoApprove {
			return tx.Model(&models.Submission{}).Where("id = ? AND status = ?", sub.ID, models.SubmissionPending).
				Updates(updates).Error
		}

		now := time.Now()
		updates["status"] = models.SubmissionApproved
		updates["triage_status"] = models.TriageApproved
		updates["reviewed_at"] = now
		updates["earned_amount"] = sub.Project.PotentialEarning(sub.TimeSpentMinutes)
		if err := s.transition(tx, &sub, updates); err != nil {
			return err
		}
		_, err := s.wallet.CreditApproved(tx, &sub, sub.Project)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&sub, submissionID).Error; err != nil {
		return nil, err
	}
	if autoApprove {
		logger.Infof("[Review] Submission %d auto-approved (score %.0f >= %.0f)", sub.ID, *result.AIScore, threshold)
	}
	s.publish(&sub)
	return &sub, nil
}

// ApplyRescore fills in AI fields for a submission whose first triage failed.
// It never moves the submission out of NEEDS_REVIEW.
func (s *ReviewService) ApplyRescore(ctx context.Context, submissionID uint, result TriageResult, triageErr error) error {
	updates := map[string]interface{}{
		"triage_attempts": gorm.Expr("triage_attempts + 1"),
	}
	if triageErr != nil {
		updates["triage_error"] = triageErr.Error()
	} else {
		updates["ai_score"] = result.AIScore
		updates["ai_feedback"] = result.AIFeedback
		updates["consistency_warning"] = result.ConsistencyWarning
		updates["triage_error"] = ""
	}

	res := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND status = ? AND ai_score IS NULL", submissionID, models.SubmissionPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 && triageErr == nil {
		var sub models.Submission
		if err := s.db.WithContext(ctx).First(&sub, submissionID).Error; err == nil {
			s.publish(&sub)
		}
	}
	return nil
}

// Review is the admin decision on a NEEDS_REVIEW submission.
func (s *ReviewService) Review(ctx context.Context, submissionID, reviewerID uint, status string, feedback *string) (*models.Submission, error) {
	if status != models.SubmissionApproved && status != models.SubmissionRejected {
		return nil, &ValidationError{Field: "status", Reason: "must be Approved or Rejected"}
	}

	var sub models.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Project", withDeleted).First(&sub, submissionID).Error; err != nil {
			return notFound(err)
		}
		if sub.IsTerminal() {
			return &AlreadyReviewedError{Kind: "submission", ID: sub.ID, Status: sub.Status}
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
		}
		if feedback != nil {
			updates["admin_feedback"] = *feedback
		}

		if status == models.SubmissionApproved {
			updates["triage_status"] = models.TriageApproved
			updates["earned_amount"] = sub.Project.PotentialEarning(sub.TimeSpentMinutes)
			if err := s.transition(tx, &sub, updates); err != nil {
				return err
			}
			_, err := s.wallet.CreditApproved(tx, &sub, sub.Project)
			return err
		}

		updates["triage_status"] = models.TriageRejected
		if err := s.transition(tx, &sub, updates); err != nil {
			return err
		}
		return s.wallet.ReleasePending(tx, sub.UserID, sub.PotentialEarning)
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&sub, submissionID).Error; err != nil {
		return nil, err
	}
	logger.Infof("[Review] Submission %d %s by reviewer %d", sub.ID, status, reviewerID)
	LogInfo(LogModuleReview, status, fmt.Sprintf("Submission %d %s", sub.ID, status), &reviewerID, "", "", map[string]interface{}{
		"submission_id": sub.ID,
		"project_id":    sub.ProjectID,
		"user_id":       sub.UserID,
	})
	s.publish(&sub)
	return &sub, nil
}

// transition applies a Pending -> terminal update. The status guard in SQL makes the
// losing side of a concurrent review see AlreadyReviewedError.
func (s *ReviewService) transition(tx *gorm.DB, sub *models.Submission, updates map[string]interface{}) error {
	res := tx.Model(&models.Submission{}).
		Where("id = ? AND status = ?", sub.ID, models.SubmissionPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		var current models.Submission
		if err := tx.Select("status").First(&current, sub.ID).Error; err != nil {
			return notFound(err)
		}
		return &AlreadyReviewedError{Kind: "submission", ID: sub.ID, Status: current.Status}
	}
	return nil
}

type BulkReviewRequest struct {
	IDs      []uint  `json:"ids" binding:"required,min=1"`
	Status   string  `json:"status" binding:"required"`
	Feedback *string `json:"feedback"`
}

type BulkReviewFailure struct {
	ID    uint   `json:"id"`
	Error string `json:"error"`
}

type BulkReviewResult struct {
	ProcessedCount int                 `json:"processedCount"`
	FailedCount    int                 `json:"failedCount"`
	Failures       []BulkReviewFailure `json:"failures"`
}

// BulkReview reviews each id in its own transaction; a failing item does not stop the rest.
func (s *ReviewService) BulkReview(ctx context.Context, req *BulkReviewRequest, reviewerID uint) (*BulkReviewResult, error) {
	if req.Status != models.SubmissionApproved && req.Status != models.SubmissionRejected {
		return nil, &ValidationError{Field: "status", Reason: "must be Approved or Rejected"}
	}

	result := &BulkReviewResult{Failures: []BulkReviewFailure{}}
	seen := make(map[uint]bool, len(req.IDs))
	for _, id := range req.IDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		if err := ctx.Err(); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, BulkReviewFailure{ID: id, Error: err.Error()})
			continue
		}
		if _, err := s.Review(ctx, id, reviewerID, req.Status, req.Feedback); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, BulkReviewFailure{ID: id, Error: err.Error()})
			continue
		}
		result.ProcessedCount++
	}

	logger.Infof("[Review] Bulk %s by reviewer %d: %d processed, %d failed", req.Status, reviewerID, result.ProcessedCount, result.FailedCount)
	return result, nil
}

func (s *ReviewService) publish(sub *models.Submission) {
	if s.events == nil {
		return
	}
	s.events.Publish(SubmissionEvent{
		ID:           sub.ID,
		ProjectID:    sub.ProjectID,
		UserID:       sub.UserID,
		Status:       sub.Status,
		TriageStatus: sub.TriageStatus,
		ReviewState:  ReviewState(sub),
		AIScore:      sub.AIScore,
	})
}

// withDeleted lets a preload see soft-deleted projects; old submissions still reference them.
func withDeleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
