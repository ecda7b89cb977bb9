package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/backend/internal/models"
)

func TestDashboardStatsRequest_DateRange(t *testing.T) {
	var nilReq *DashboardStatsRequest
	start, end := nilReq.dateRange()
	if d := end.Sub(start); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour+time.Minute {
		t.Errorf("default range = %v, want 7 days", d)
	}

	start, end = (&DashboardStatsRequest{StartDate: "2026-01-01", EndDate: "2026-01-31"}).dateRange()
	if start.Format("2006-01-02") != "2026-01-01" {
		t.Errorf("start = %v", start)
	}
	if end.Format("2006-01-02 15:04:05") != "2026-01-31 23:59:59" {
		t.Errorf("end = %v, want end of day", end)
	}
}

func TestAdminDashboard(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	admin := newAdmin(t, m.db)
	project := newProject(t, m.db, 0, func(p *models.Project) { p.IsRepeatable = true })
	alice := newFreelancer(t, m.db, "alice")

	_, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "auto"})
	require.NoError(t, err)

	m.scorer.set(&Verdict{Score: 60}, nil)
	sub, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "manual"})
	require.NoError(t, err)
	_, err = m.review.Review(ctx, sub.ID, admin.ID, models.SubmissionApproved, nil)
	require.NoError(t, err)

	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "waiting"})
	require.NoError(t, err)

	stats, err := NewDashboardService(m.db).Admin(ctx, &DashboardStatsRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Submissions.Total)
	require.EqualValues(t, 2, stats.Submissions.Approved)
	require.EqualValues(t, 1, stats.Submissions.AutoApproved)
	require.EqualValues(t, 1, stats.Submissions.Pending)
	require.InDelta(t, 0.5, stats.AutoApprovalRate, 0.001)
	require.InDelta(t, 73, stats.AverageAIScore, 0.001)
	require.EqualValues(t, 1, stats.ActiveProjects)
	require.Len(t, stats.ProjectStats, 1)
	require.EqualValues(t, 2, stats.ProjectStats[0].ApprovedCount)
	require.Len(t, stats.TopEarners, 1)
	require.Equal(t, "alice", stats.TopEarners[0].Username)
	requireDecimal(t, "40", stats.TopEarners[0].Earned)
}

func TestFreelancerDashboard(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	admin := newAdmin(t, m.db)
	project := newProject(t, m.db, 0, func(p *models.Project) { p.IsRepeatable = true })
	alice := newFreelancer(t, m.db, "alice")

	_, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "one"})
	require.NoError(t, err)
	m.scorer.set(&Verdict{Score: 10}, nil)
	sub, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "two"})
	require.NoError(t, err)
	_, err = m.review.Review(ctx, sub.ID, admin.ID, models.SubmissionRejected, nil)
	require.NoError(t, err)

	dash, err := NewDashboardService(m.db).Freelancer(ctx, alice.ID, m.wallet)
	require.NoError(t, err)
	require.EqualValues(t, 2, dash.Submissions.Total)
	require.InDelta(t, 0.5, dash.ApprovalRate, 0.001)
	requireDecimal(t, "20", dash.TotalEarned)
	requireDecimal(t, "20", dash.Wallet.Available)
	require.Len(t, dash.RecentSubmissions, 2)
	require.NotNil(t, dash.RecentSubmissions[0].Project)
}
