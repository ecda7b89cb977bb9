package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const qualificationPrompt = `An applicant wants to join the %s annotation pool. Grade their qualification answers.
Respond with a single JSON object: {"score": <integer 0-100>, "feedback": "<short note for the admin>", "consistency_warning": <true if answers look copied or machine-generated>}

%s`

type QualificationAnswer struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
}

type QualificationRequest struct {
	SkillDomain string                `json:"skill_domain" binding:"required"`
	Answers     []QualificationAnswer `json:"answers" binding:"required,min=1,dive"`
}

// QualificationService handles applicant tests and their admin review.
type QualificationService struct {
	db      *gorm.DB
	ai      *AIService
	timeout time.Duration
}

func NewQualificationService(db *gorm.DB, ai *AIService, timeout time.Duration) *QualificationService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &QualificationService{db: db, ai: ai, timeout: timeout}
}

// Submit stores an applicant's test and moves the account to Pending. The AI pre-score is advisory.
func (s *QualificationService) Submit(ctx context.Context, userID uint, req *QualificationRequest) (*models.QualificationAttempt, error) {
	if !contains(models.ProjectDomains, req.SkillDomain) {
		return nil, &ValidationError{Field: "skill_domain", Reason: "unknown domain"}
	}
	for i, a := range req.Answers {
		if strings.TrimSpace(a.Answer) == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("answers[%d]", i), Reason: "empty answer"}
		}
	}

	answers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, err
	}
	attempt := &models.QualificationAttempt{
		UserID:      userID,
		SkillDomain: req.SkillDomain,
		Answers:     datatypes.JSON(answers),
		Status:      models.UserStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND role = ? AND status IN ?", userID, models.RoleApplicant, []string{models.UserStatusNew, models.UserStatusRejected}).
			Updates(map[string]interface{}{
				"status":       models.UserStatusPending,
				"skill_domain": req.SkillDomain,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			var user models.User
			if err := tx.First(&user, userID).Error; err != nil {
				return notFound(err)
			}
			if user.Role != models.RoleApplicant {
				return ErrNotEligible
			}
			return &AlreadyReviewedError{Kind: "application", ID: user.ID, Status: user.Status}
		}
		return tx.Create(attempt).Error
	})
	if err != nil {
		return nil, err
	}

	s.preScore(ctx, attempt, req)
	LogInfo(LogModuleQualification, "Submit", fmt.Sprintf("Applicant submitted %s qualification", req.SkillDomain), &userID, "", "", map[string]interface{}{
		"attempt_id": attempt.ID,
	})
	return attempt, nil
}

func (s *QualificationService) preScore(ctx context.Context, attempt *models.QualificationAttempt, req *QualificationRequest) {
	if s.ai == nil {
		return
	}

	var body strings.Builder
	for i, a := range req.Answers {
		fmt.Fprintf(&body, "Q%d: %s\nA%d: %s\n\n", i+1, a.Question, i+1, a.Answer)
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	completion, err := s.ai.Complete(scoreCtx, fmt.Sprintf(qualificationPrompt, req.SkillDomain, body.String()))
	if err != nil {
		logger.Warnf("[Qualification] Pre-score failed for attempt %d: %v", attempt.ID, err)
		return
	}
	verdict, err := parseVerdict(completion.Content)
	if err != nil {
		logger.Warnf("[Qualification] Unparseable pre-score for attempt %d: %v", attempt.ID, err)
		return
	}

	attempt.AIScore = &verdict.Score
	attempt.AIFeedback = &verdict.Feedback
	s.db.WithContext(ctx).Model(attempt).Updates(map[string]interface{}{
		"ai_score":    verdict.Score,
		"ai_feedback": verdict.Feedback,
	})
}

type ApplicantListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
}

func (s *QualificationService) List(ctx context.Context, req *ApplicantListRequest) (*response.Page[models.QualificationAttempt], error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.WithContext(ctx).Model(&models.QualificationAttempt{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.QualificationAttempt
	if err := query.Preload("User").Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &response.Page[models.QualificationAttempt]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// Review decides a pending attempt. Accepting promotes the applicant to a Bronze freelancer.
func (s *QualificationService) Review(ctx context.Context, attemptID, adminID uint, status string) (*models.QualificationAttempt, error) {
	if status != models.UserStatusAccepted && status != models.UserStatusRejected {
		return nil, &ValidationError{Field: "status", Reason: "must be Accepted or Rejected"}
	}

	var attempt models.QualificationAttempt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&attempt, attemptID).Error; err != nil {
			return notFound(err)
		}

		now := time.Now()
		res := tx.Model(&models.QualificationAttempt{}).
			Where("id = ? AND status = ?", attempt.ID, models.UserStatusPending).
			Updates(map[string]interface{}{
				"status":      status,
				"reviewed_by": adminID,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return &AlreadyReviewedError{Kind: "application", ID: attempt.ID, Status: attempt.Status}
		}

		userUpdates := map[string]interface{}{"status": status}
		if status == models.UserStatusAccepted {
			userUpdates["role"] = models.RoleFreelancer
			userUpdates["tier"] = models.TierBronze
			userUpdates["skill_domain"] = attempt.SkillDomain
		}
		return tx.Model(&models.User{}).Where("id = ?", attempt.UserID).Updates(userUpdates).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("User").First(&attempt, attemptID).Error; err != nil {
		return nil, err
	}
	LogInfo(LogModuleQualification, "Review", fmt.Sprintf("Application %d %s", attempt.ID, status), &adminID, "", "", map[string]interface{}{
		"applicant_id": attempt.UserID,
	})
	return &attempt, nil
}
