package services

import (
	"context"
	"errors"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmitRequest struct {
	ProjectID        uint
	UserID           uint
	Content          string
	TaskIndex        *int
	TimeSpentMinutes *int
}

type SubmissionService struct {
	db      *gorm.DB
	wallet  *WalletService
	triage  *TriageService
	review  *ReviewService
	rescore TaskQueue
}

func NewSubmissionService(db *gorm.DB, wallet *WalletService, triage *TriageService, review *ReviewService, rescore TaskQueue) *SubmissionService {
	return &SubmissionService{db: db, wallet: wallet, triage: triage, review: review, rescore: rescore}
}

// Submit records a freelancer's answer and runs it through triage before returning.
// The returned submission reflects the post-triage state.
func (s *SubmissionService) Submit(ctx context.Context, req *SubmitRequest) (*models.Submission, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, req.UserID).Error; err != nil {
		return nil, notFound(err)
	}
	if !user.CanSubmit() {
		return nil, ErrNotEligible
	}

	var project models.Project
	if err := db.First(&project, req.ProjectID).Error; err != nil {
		return nil, notFound(err)
	}
	if !project.IsActive {
		return nil, ErrProjectInactive
	}

	content, err := ParseContent(project.TaskType, req.Content)
	if err != nil {
		return nil, err
	}
	if project.PaymentType == models.PaymentHourly && (req.TimeSpentMinutes == nil || *req.TimeSpentMinutes <= 0) {
		return nil, &ValidationError{Field: "timeSpentMinutes", Reason: "required and must be positive for hourly projects"}
	}
	if req.TimeSpentMinutes != nil && *req.TimeSpentMinutes < 0 {
		return nil, &ValidationError{Field: "timeSpentMinutes", Reason: "must not be negative"}
	}

	sub := &models.Submission{
		ProjectID:        project.ID,
		UserID:           user.ID,
		Content:          content.JSON(),
		ContentHash:      content.Hash(),
		Status:           models.SubmissionPending,
		TriageStatus:     models.TriagePending,
		TimeSpentMinutes: req.TimeSpentMinutes,
		PotentialEarning: project.PotentialEarning(req.TimeSpentMinutes),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		// Serialise submissions per project so quota and repeat checks hold.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&models.Project{}, project.ID).Error; err != nil {
			return err
		}
		if err := checkSubmissionLimits(tx, &project, user.ID); err != nil {
			return err
		}

		taskIndex, err := resolveTaskIndex(tx, &project, user.ID, req.TaskIndex)
		if err != nil {
			return err
		}
		sub.TaskIndex = taskIndex

		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return s.wallet.AddPending(tx, user.ID, sub.PotentialEarning)
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("[Submission] User %d submitted to project %d (submission %d)", user.ID, project.ID, sub.ID)
	return s.runTriage(ctx, sub, &project)
}

func (s *SubmissionService) runTriage(ctx context.Context, sub *models.Submission, project *models.Project) (*models.Submission, error) {
	result, triageErr := s.triage.Evaluate(ctx, sub, project)

	updated, err := s.review.ApplyTriage(ctx, sub.ID, result, triageErr)
	if err != nil {
		// The submission exists; report it as stored rather than failing the request.
		logger.Errorf("[Submission] Failed to apply triage to submission %d: %v", sub.ID, err)
		var fresh models.Submission
		if e := s.db.WithContext(ctx).First(&fresh, sub.ID).Error; e == nil {
			return &fresh, nil
		}
		return sub, nil
	}

	if triageErr != nil && !errors.Is(triageErr, ErrTriageDisabled) {
		LogWarning(LogModuleTriage, "Score", "AI triage failed, left for manual review: "+triageErr.Error(), &sub.UserID, "", "", map[string]interface{}{
			"submission_id": sub.ID,
		})
		if s.rescore != nil {
			if err := s.rescore.Enqueue(&RescoreTask{SubmissionID: sub.ID}); err != nil {
				logger.Warnf("[Submission] Failed to enqueue rescore for submission %d: %v", sub.ID, err)
			}
		}
	}
	return updated, nil
}

// checkSubmissionLimits enforces isRepeatable and maxTotalSubmissions.
func checkSubmissionLimits(db *gorm.DB, project *models.Project, userID uint) error {
	if !project.IsRepeatable {
		var mine int64
		if err := db.Model(&models.Submission{}).Where("project_id = ? AND user_id = ?", project.ID, userID).Count(&mine).Error; err != nil {
			return err
		}
		if mine > 0 {
			return &RepeatSubmissionError{ProjectID: project.ID}
		}
	}

	if project.MaxTotalSubmissions != nil {
		var total int64
		if err := db.Model(&models.Submission{}).Where("project_id = ?", project.ID).Count(&total).Error; err != nil {
			return err
		}
		if total >= int64(*project.MaxTotalSubmissions) {
			return &QuotaExceededError{ProjectID: project.ID, Limit: *project.MaxTotalSubmissions}
		}
	}
	return nil
}

// resolveTaskIndex checks that the submitted pool position belongs to the user. With no
// index given, the user's single outstanding assignment is used.
func resolveTaskIndex(tx *gorm.DB, project *models.Project, userID uint, requested *int) (*int, error) {
	var poolSize int64
	if err := tx.Model(&models.TaskPoolEntry{}).Where("project_id = ?", project.ID).Count(&poolSize).Error; err != nil {
		return nil, err
	}

	if poolSize == 0 {
		if requested != nil {
			return nil, &ValidationError{Field: "taskIndex", Reason: "project has no task pool"}
		}
		return nil, nil
	}

	if requested == nil {
		held, err := (&AssignmentService{db: tx}).heldEntry(tx, project.ID, userID)
		if err != nil {
			return nil, err
		}
		if held == nil {
			return nil, &ValidationError{Field: "taskIndex", Reason: "no task is assigned to you in this project"}
		}
		idx := held.Position
		return &idx, nil
	}

	if *requested < 0 || int64(*requested) >= poolSize {
		return nil, &ValidationError{Field: "taskIndex", Reason: "out of range"}
	}

	var entry models.TaskPoolEntry
	if err := tx.Where("project_id = ? AND position = ?", project.ID, *requested).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "taskIndex", Reason: "out of range"}
		}
		return nil, err
	}
	if !entry.IsAssigned || entry.AssignedTo == nil || *entry.AssignedTo != userID {
		return nil, &ValidationError{Field: "taskIndex", Reason: "task is not assigned to you"}
	}

	var dup int64
	if err := tx.Model(&models.Submission{}).
		Where("project_id = ? AND user_id = ? AND task_index = ?", project.ID, userID, *requested).
		Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, &ValidationError{Field: "taskIndex", Reason: "task already submitted"}
	}

	idx := *requested
	return &idx, nil
}

func (s *SubmissionService) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var sub models.Submission
	if err := s.db.WithContext(ctx).Preload("Project", withDeleted).Preload("User").First(&sub, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

type SubmissionListRequest struct {
	Page         int      `form:"page"`
	PageSize     int      `form:"page_size"`
	Status       string   `form:"status"`
	TriageStatus string   `form:"triage_status"`
	ProjectID    uint     `form:"project_id"`
	UserID       uint     `form:"user_id"`
	MinScore     *float64 `form:"min_score"`
	MaxScore     *float64 `form:"max_score"`
	Flagged      *bool    `form:"flagged"`
}

// SubmissionView adds the derived review state to a submission.
type SubmissionView struct {
	models.Submission
	ReviewState string `json:"review_state"`
}

func (s *SubmissionService) List(ctx context.Context, req *SubmissionListRequest) (*response.Page[SubmissionView], error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Submission{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.TriageStatus != "" {
		query = query.Where("triage_status = ?", req.TriageStatus)
	}
	if req.ProjectID != 0 {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.MinScore != nil {
		query = query.Where("ai_score >= ?", *req.MinScore)
	}
	if req.MaxScore != nil {
		query = query.Where("ai_score <= ?", *req.MaxScore)
	}
	if req.Flagged != nil {
		query = query.Where("consistency_warning = ?", *req.Flagged)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var subs []models.Submission
	if err := query.Preload("Project", withDeleted).Preload("User").
		Order("created_at DESC").Order("id DESC").
		Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).
		Find(&subs).Error; err != nil {
		return nil, err
	}

	items := make([]SubmissionView, 0, len(subs))
	for _, sub := range subs {
		items = append(items, SubmissionView{Submission: sub, ReviewState: ReviewState(&sub)})
	}
	return &response.Page[SubmissionView]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// Rescore re-runs triage for a submission that still has no AI score.
// It is the processor behind the rescore queue and sweep.
func (s *SubmissionService) Rescore(ctx context.Context, submissionID uint, maxAttempts int) error {
	var sub models.Submission
	if err := s.db.WithContext(ctx).Preload("Project", withDeleted).First(&sub, submissionID).Error; err != nil {
		return notFound(err)
	}
	if sub.IsTerminal() || sub.AIScore != nil {
		return nil
	}
	if maxAttempts > 0 && sub.TriageAttempts >= maxAttempts {
		logger.Infof("[Rescore] Submission %d reached %d attempts, leaving for manual review", sub.ID, sub.TriageAttempts)
		return nil
	}

	result, triageErr := s.triage.Evaluate(ctx, &sub, sub.Project)
	if err := s.review.ApplyRescore(ctx, sub.ID, result, triageErr); err != nil {
		return err
	}
	if triageErr != nil {
		logger.Warnf("[Rescore] Submission %d attempt %d failed: %v", sub.ID, sub.TriageAttempts+1, triageErr)
	}
	return nil
}
