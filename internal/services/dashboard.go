package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/taskhive/backend/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStatsRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// dateRange defaults to the last 7 days.
func (r *DashboardStatsRequest) dateRange() (time.Time, time.Time) {
	end := time.Now()
	start := end.AddDate(0, 0, -7)
	if r == nil {
		return start, end
	}
	if t, err := time.ParseInLocation("2006-01-02", r.StartDate, time.Local); err == nil {
		start = t
	}
	if t, err := time.ParseInLocation("2006-01-02", r.EndDate, time.Local); err == nil {
		end = t.Add(24*time.Hour - time.Second)
	}
	return start, end
}

type SubmissionCounts struct {
	Total         int64 `json:"total"`
	Pending       int64 `json:"pending"`
	Approved      int64 `json:"approved"`
	Rejected      int64 `json:"rejected"`
	AutoApproved  int64 `json:"auto_approved"`
	Flagged       int64 `json:"flagged"`
	TriageFailure int64 `json:"triage_failure"`
}

type ProjectStats struct {
	ProjectID       uint    `json:"project_id"`
	Title           string  `json:"title"`
	SubmissionCount int64   `json:"submission_count"`
	ApprovedCount   int64   `json:"approved_count"`
	AvgScore        float64 `json:"avg_score"`
}

type EarnerStats struct {
	UserID   uint            `json:"user_id"`
	Username string          `json:"username"`
	Tier     string          `json:"tier"`
	Approved int64           `json:"approved"`
	Earned   decimal.Decimal `json:"earned"`
}

type AdminDashboard struct {
	Submissions      SubmissionCounts `json:"submissions"`
	AutoApprovalRate float64          `json:"auto_approval_rate"`
	AverageAIScore   float64          `json:"average_ai_score"`
	PendingPayouts   int64            `json:"pending_payouts"`
	PendingAmount    decimal.Decimal  `json:"pending_payout_amount"`
	ActiveProjects   int64            `json:"active_projects"`
	PendingApplicant int64            `json:"pending_applicants"`
	ProjectStats     []ProjectStats   `json:"project_stats"`
	TopEarners       []EarnerStats    `json:"top_earners"`
}

// Admin aggregates marketplace health for the date range. Queries run concurrently.
func (s *DashboardService) Admin(ctx context.Context, req *DashboardStatsRequest) (*AdminDashboard, error) {
	start, end := req.dateRange()
	out := &AdminDashboard{ProjectStats: []ProjectStats{}, TopEarners: []EarnerStats{}}

	inRange := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Submission{}).Where("submissions.created_at BETWEEN ? AND ?", start, end)
	}

	g, gctx := errgroup.WithContext(ctx)
	counts := []struct {
		dst   *int64
		where string
		args  []interface{}
	}{
		{&out.Submissions.Total, "1 = 1", nil},
		{&out.Submissions.Pending, "status = ?", []interface{}{models.SubmissionPending}},
		{&out.Submissions.Approved, "status = ?", []interface{}{models.SubmissionApproved}},
		{&out.Submissions.Rejected, "status = ?", []interface{}{models.SubmissionRejected}},
		{&out.Submissions.AutoApproved, "status = ? AND reviewed_by IS NULL", []interface{}{models.SubmissionApproved}},
		{&out.Submissions.Flagged, "consistency_warning = ?", []interface{}{true}},
		{&out.Submissions.TriageFailure, "ai_score IS NULL AND triage_attempts > 0", nil},
	}
	for _, c := range counts {
		g.Go(func() error {
			return inRange().WithContext(gctx).Where(c.where, c.args...).Count(c.dst).Error
		})
	}

	g.Go(func() error {
		return inRange().WithContext(gctx).Where("ai_score IS NOT NULL").
			Select("COALESCE(AVG(ai_score), 0)").Scan(&out.AverageAIScore).Error
	})
	g.Go(func() error {
		var amounts []decimal.Decimal
		if err := s.db.WithContext(gctx).Model(&models.PayoutRequest{}).
			Where("status = ?", models.PayoutPending).Pluck("amount", &amounts).Error; err != nil {
			return err
		}
		out.PendingPayouts = int64(len(amounts))
		out.PendingAmount = decimal.Sum(decimal.Zero, amounts...)
		return nil
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Project{}).Where("is_active = ?", true).Count(&out.ActiveProjects).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.User{}).
			Where("role = ? AND status = ?", models.RoleApplicant, models.UserStatusPending).
			Count(&out.PendingApplicant).Error
	})
	g.Go(func() error {
		var stats []ProjectStats
		err := inRange().WithContext(gctx).
			Select("submissions.project_id, projects.title, COUNT(*) AS submission_count, " +
				"SUM(CASE WHEN submissions.status = 'Approved' THEN 1 ELSE 0 END) AS approved_count, " +
				"COALESCE(AVG(submissions.ai_score), 0) AS avg_score").
			Joins("JOIN projects ON projects.id = submissions.project_id").
			Group("submissions.project_id, projects.title").
			Order("submission_count DESC").
			Limit(10).
			Scan(&stats).Error
		if err == nil && stats != nil {
			out.ProjectStats = stats
		}
		return err
	})
	g.Go(func() error {
		var earners []EarnerStats
		err := inRange().WithContext(gctx).
			Select("submissions.user_id, users.username, users.tier, COUNT(*) AS approved, COALESCE(SUM(submissions.earned_amount), 0) AS earned").
			Joins("JOIN users ON users.id = submissions.user_id").
			Where("submissions.status = ?", models.SubmissionApproved).
			Group("submissions.user_id, users.username, users.tier").
			Order("earned DESC").
			Limit(10).
			Scan(&earners).Error
		if err == nil && earners != nil {
			out.TopEarners = earners
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.Submissions.Approved > 0 {
		out.AutoApprovalRate = float64(out.Submissions.AutoApproved) / float64(out.Submissions.Approved)
	}
	return out, nil
}

type FreelancerDashboard struct {
	Wallet            *WalletSummary      `json:"wallet"`
	TotalEarned       decimal.Decimal     `json:"total_earned"`
	Submissions       SubmissionCounts    `json:"submissions"`
	ApprovalRate      float64             `json:"approval_rate"`
	RecentSubmissions []models.Submission `json:"recent_submissions"`
}

func (s *DashboardService) Freelancer(ctx context.Context, userID uint, wallet *WalletService) (*FreelancerDashboard, error) {
	out := &FreelancerDashboard{RecentSubmissions: []models.Submission{}}
	mine := func(c context.Context) *gorm.DB {
		return s.db.WithContext(c).Model(&models.Submission{}).Where("user_id = ?", userID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := wallet.GetWallet(gctx, userID)
		out.Wallet = w
		return err
	})
	g.Go(func() error {
		return mine(gctx).Count(&out.Submissions.Total).Error
	})
	g.Go(func() error {
		return mine(gctx).Where("status = ?", models.SubmissionPending).Count(&out.Submissions.Pending).Error
	})
	g.Go(func() error {
		return mine(gctx).Where("status = ?", models.SubmissionApproved).Count(&out.Submissions.Approved).Error
	})
	g.Go(func() error {
		return mine(gctx).Where("status = ?", models.SubmissionRejected).Count(&out.Submissions.Rejected).Error
	})
	g.Go(func() error {
		var amounts []decimal.Decimal
		if err := mine(gctx).Where("status = ?", models.SubmissionApproved).Pluck("earned_amount", &amounts).Error; err != nil {
			return err
		}
		out.TotalEarned = decimal.Sum(decimal.Zero, amounts...)
		return nil
	})
	g.Go(func() error {
		var recent []models.Submission
		err := mine(gctx).Preload("Project", withDeleted).Order("created_at DESC").Limit(10).Find(&recent).Error
		if err == nil && recent != nil {
			out.RecentSubmissions = recent
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if decided := out.Submissions.Approved + out.Submissions.Rejected; decided > 0 {
		out.ApprovalRate = float64(out.Submissions.Approved) / float64(decided)
	}
	return out, nil
}
