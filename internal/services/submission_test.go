package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/backend/internal/models"
)

func TestSubmit_HighScoreAutoApprovesAndCredits(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionApproved, sub.Status)
	require.Equal(t, models.TriageApproved, sub.TriageStatus)
	require.Nil(t, sub.ReviewedBy)
	require.NotNil(t, sub.AIScore)
	require.Equal(t, 99.0, *sub.AIScore)
	require.Equal(t, StateAutoApproved, ReviewState(sub))
	requireDecimal(t, "20", sub.EarnedAmount)

	user := reloadUser(t, m.db, alice.ID)
	requireDecimal(t, "20", user.WalletAvailable)
	requireDecimal(t, "0", user.WalletPendingReview)

	var entries []models.WalletEntry
	require.NoError(t, m.db.Where("user_id = ?", alice.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.EntryEarning, entries[0].Type)
	require.Equal(t, sub.ID, *entries[0].SubmissionID)
}

func TestSubmit_LowScoreWaitsForReview(t *testing.T) {
	m := newMarketplace(t, 80)
	ctx := context.Background()
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionPending, sub.Status)
	require.Equal(t, models.TriagePending, sub.TriageStatus)
	require.Equal(t, 80.0, *sub.AIScore)
	require.Equal(t, StateNeedsReview, ReviewState(sub))

	user := reloadUser(t, m.db, alice.ID)
	requireDecimal(t, "0", user.WalletAvailable)
	requireDecimal(t, "20", user.WalletPendingReview)
}

func TestSubmit_ThresholdSettingOverridesConfig(t *testing.T) {
	m := newMarketplace(t, 90)
	require.NoError(t, NewSystemConfigService(m.db).Set("triage_auto_approve_threshold", "85"))
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(context.Background(), &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionApproved, sub.Status)
}

func TestSubmit_ScorerFailureLeavesSubmissionForReview(t *testing.T) {
	m := newMarketplace(t, 99)
	m.scorer.set(nil, errors.New("model overloaded"))
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(context.Background(), &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionPending, sub.Status)
	require.Nil(t, sub.AIScore)
	require.Equal(t, 1, sub.TriageAttempts)
	require.Contains(t, sub.TriageError, "model overloaded")
	require.Equal(t, StateNeedsReview, ReviewState(sub))
}

func TestSubmit_TriageDisabledSkipsScorer(t *testing.T) {
	m := newMarketplace(t, 99)
	require.NoError(t, NewSystemConfigService(m.db).Set("triage_enabled", "false"))
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(context.Background(), &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionPending, sub.Status)
	require.Zero(t, m.scorer.callCount())
}

func TestSubmit_HourlyEarningRoundsToCents(t *testing.T) {
	m := newMarketplace(t, 99)
	project := newProject(t, m.db, 0, func(p *models.Project) {
		p.PaymentType = models.PaymentHourly
		p.PayRate = decimal.RequireFromString("25")
	})
	alice := newFreelancer(t, m.db, "alice")

	_, err := m.submissions.Submit(context.Background(), &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "timeSpentMinutes", verr.Field)

	sub, err := m.submissions.Submit(context.Background(), &SubmitRequest{
		ProjectID:        project.ID,
		UserID:           alice.ID,
		Content:          "positive",
		TimeSpentMinutes: intPtr(50),
	})
	require.NoError(t, err)
	// 25 * 50 / 60 = 20.8333...
	requireDecimal(t, "20.83", sub.EarnedAmount)
}

func TestSubmit_RepeatAndQuota(t *testing.T) {
	m := newMarketplace(t, 80)
	ctx := context.Background()
	alice := newFreelancer(t, m.db, "alice")
	bob := newFreelancer(t, m.db, "bob")
	carol := newFreelancer(t, m.db, "carol")

	once := newProject(t, m.db, 0, nil)
	_, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: once.ID, UserID: alice.ID, Content: "first"})
	require.NoError(t, err)
	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: once.ID, UserID: alice.ID, Content: "second"})
	var repeat *RepeatSubmissionError
	require.True(t, errors.As(err, &repeat), "got %v", err)

	capped := newProject(t, m.db, 0, func(p *models.Project) {
		p.IsRepeatable = true
		p.MaxTotalSubmissions = intPtr(2)
	})
	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: capped.ID, UserID: alice.ID, Content: "a"})
	require.NoError(t, err)
	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: capped.ID, UserID: bob.ID, Content: "b"})
	require.NoError(t, err)
	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: capped.ID, UserID: carol.ID, Content: "c"})
	var quota *QuotaExceededError
	require.True(t, errors.As(err, &quota), "got %v", err)
	require.Equal(t, 2, quota.Limit)
}

func TestSubmit_RepeatRegardlessOfOutcome(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		review     string
		wantStatus string
	}{
		{"first still pending", 80, "", models.SubmissionPending},
		{"first auto-approved", 99, "", models.SubmissionApproved},
		{"first approved by admin", 80, models.SubmissionApproved, models.SubmissionApproved},
		{"first rejected", 80, models.SubmissionRejected, models.SubmissionRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMarketplace(t, tt.score)
			ctx := context.Background()
			admin := newAdmin(t, m.db)
			alice := newFreelancer(t, m.db, "alice")
			project := newProject(t, m.db, 0, nil)

			first, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "first"})
			require.NoError(t, err)
			if tt.review != "" {
				_, err = m.review.Review(ctx, first.ID, admin.ID, tt.review, nil)
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantStatus, reloadSubmission(t, m, first.ID).Status)

			_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "second"})
			var repeat *RepeatSubmissionError
			require.True(t, errors.As(err, &repeat), "got %v", err)
			require.Equal(t, project.ID, repeat.ProjectID)

			var count int64
			require.NoError(t, m.db.Model(&models.Submission{}).Where("project_id = ?", project.ID).Count(&count).Error)
			require.EqualValues(t, 1, count)
		})
	}
}

func TestSubmit_Guards(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	alice := newFreelancer(t, m.db, "alice")

	inactive := newProject(t, m.db, 0, func(p *models.Project) { p.IsActive = false })
	_, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: inactive.ID, UserID: alice.ID, Content: "x"})
	require.ErrorIs(t, err, ErrProjectInactive)

	project := newProject(t, m.db, 0, nil)
	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "   "})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	require.NoError(t, m.db.Model(alice).Update("is_active", false).Error)
	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "x"})
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestSubmit_PoolTaskIndex(t *testing.T) {
	m := newMarketplace(t, 80)
	ctx := context.Background()
	project := newProject(t, m.db, 3, func(p *models.Project) { p.IsRepeatable = true })
	alice := newFreelancer(t, m.db, "alice")
	bob := newFreelancer(t, m.db, "bob")

	_, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "x"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "submitting without an assignment: %v", err)

	task, err := m.assignment.AssignNextTask(ctx, project.ID, alice.ID)
	require.NoError(t, err)
	_, err = m.assignment.AssignNextTask(ctx, project.ID, bob.ID)
	require.NoError(t, err)

	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "x", TaskIndex: intPtr(1)})
	require.True(t, errors.As(err, &verr), "submitting bob's entry: %v", err)
	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "x", TaskIndex: intPtr(7)})
	require.True(t, errors.As(err, &verr), "out of range: %v", err)

	sub, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "x"})
	require.NoError(t, err)
	require.Equal(t, *task.TaskIndex, *sub.TaskIndex)

	_, err = m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "y", TaskIndex: task.TaskIndex})
	require.True(t, errors.As(err, &verr), "resubmitting the same entry: %v", err)

	next, err := m.assignment.AssignNextTask(ctx, project.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 2, *next.TaskIndex)
}

func TestSubmit_DuplicateAnswerIsFlagged(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	project := newProject(t, m.db, 0, func(p *models.Project) { p.IsRepeatable = true })
	alice := newFreelancer(t, m.db, "alice")

	first, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "Very positive"})
	require.NoError(t, err)
	require.False(t, first.ConsistencyWarning)

	second, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "  very   POSITIVE "})
	require.NoError(t, err)
	require.True(t, second.ConsistencyWarning)
	require.Equal(t, models.SubmissionPending, second.Status, "flagged answers are never auto-approved")
}

func TestSubmit_ComparisonContent(t *testing.T) {
	m := newMarketplace(t, 80)
	project := newProject(t, m.db, 0, func(p *models.Project) { p.TaskType = models.TaskTypeComparison })
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(context.Background(), &SubmitRequest{
		ProjectID: project.ID,
		UserID:    alice.ID,
		Content:   `{"preferred":"b","reasoning":"more accurate"}`,
	})
	require.NoError(t, err)

	content, err := DecodeContent(sub.Content)
	require.NoError(t, err)
	require.Equal(t, "B", content.Preferred)
	require.Equal(t, "more accurate", content.Reasoning)
}

func TestRescore_FillsScoreButKeepsStatus(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	m.scorer.set(nil, errors.New("timeout"))
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)
	require.Nil(t, sub.AIScore)

	m.scorer.set(&Verdict{Score: 100, Feedback: "excellent"}, nil)
	require.NoError(t, m.submissions.Rescore(ctx, sub.ID, MaxRescoreAttempts))

	var after models.Submission
	require.NoError(t, m.db.First(&after, sub.ID).Error)
	require.NotNil(t, after.AIScore)
	require.Equal(t, 100.0, *after.AIScore)
	require.Equal(t, models.SubmissionPending, after.Status)
	require.Equal(t, 2, after.TriageAttempts)
	require.Empty(t, after.TriageError)

	calls := m.scorer.callCount()
	require.NoError(t, m.submissions.Rescore(ctx, sub.ID, MaxRescoreAttempts))
	require.Equal(t, calls, m.scorer.callCount(), "scored submissions are not rescored")
}

func TestRescore_StopsAtMaxAttempts(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	m.scorer.set(nil, errors.New("down"))
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.submissions.Rescore(ctx, sub.ID, 3))
	}
	var after models.Submission
	require.NoError(t, m.db.First(&after, sub.ID).Error)
	require.Equal(t, 3, after.TriageAttempts)
}

func TestRescoreSweeper_QueuesStaleUnscored(t *testing.T) {
	m := newMarketplace(t, 99)
	m.scorer.set(nil, errors.New("down"))
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(context.Background(), &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)

	queue := &recordingQueue{}
	sweeper := NewRescoreSweeper(m.db, queue, 3, 0)
	require.Zero(t, sweeper.Sweep(context.Background()), "fresh submissions are left alone")

	require.NoError(t, m.db.Model(&models.Submission{}).Where("id = ?", sub.ID).
		UpdateColumn("updated_at", time.Now().Add(-10*time.Minute)).Error)
	require.Equal(t, 1, sweeper.Sweep(context.Background()))
	require.Equal(t, []uint{sub.ID}, queue.ids)
}

func TestRescoreSweeper_SkipsWhileTriageDisabled(t *testing.T) {
	m := newMarketplace(t, 99)
	settings := NewSystemConfigService(m.db)
	require.NoError(t, settings.Set("triage_enabled", "false"))
	project := newProject(t, m.db, 0, nil)
	alice := newFreelancer(t, m.db, "alice")

	sub, err := m.submissions.Submit(context.Background(), &SubmitRequest{ProjectID: project.ID, UserID: alice.ID, Content: "positive"})
	require.NoError(t, err)
	require.NoError(t, m.db.Model(&models.Submission{}).Where("id = ?", sub.ID).
		UpdateColumn("updated_at", time.Now().Add(-10*time.Minute)).Error)

	queue := &recordingQueue{}
	sweeper := NewRescoreSweeper(m.db, queue, 3, 0)
	require.Zero(t, sweeper.Sweep(context.Background()))
	require.Empty(t, queue.ids)

	require.NoError(t, settings.Set("triage_enabled", "true"))
	require.Equal(t, 1, sweeper.Sweep(context.Background()), "re-enabling picks the backlog up")
	require.Equal(t, []uint{sub.ID}, queue.ids)
}

type recordingQueue struct {
	ids []uint
}

func (q *recordingQueue) Enqueue(task *RescoreTask) error {
	q.ids = append(q.ids, task.SubmissionID)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func TestSubmissionList_Filters(t *testing.T) {
	m := newMarketplace(t, 80)
	ctx := context.Background()
	project := newProject(t, m.db, 0, func(p *models.Project) { p.IsRepeatable = true })
	alice := newFreelancer(t, m.db, "alice")
	bob := newFreelancer(t, m.db, "bob")

	for i, uid := range []uint{alice.ID, alice.ID, bob.ID} {
		_, err := m.submissions.Submit(ctx, &SubmitRequest{ProjectID: project.ID, UserID: uid, Content: fmt.Sprintf("answer %d", i)})
		require.NoError(t, err)
	}

	page, err := m.submissions.List(ctx, &SubmissionListRequest{UserID: alice.ID})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	for _, item := range page.Items {
		require.Equal(t, StateNeedsReview, item.ReviewState)
	}

	min := 90.0
	page, err = m.submissions.List(ctx, &SubmissionListRequest{MinScore: &min})
	require.NoError(t, err)
	require.Zero(t, page.Total)
}
