package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/testutil"
)

func TestSystemLog_ListFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	InitSystemLogger(db)
	t.Cleanup(func() { InitSystemLogger(nil) })

	admin := uint(7)
	LogInfo(LogModuleReview, models.SubmissionApproved, "Submission 1 Approved", &admin, "", "", nil)
	LogWarning(LogModuleTriage, "Score", "AI triage failed, left for manual review", nil, "", "", nil)
	LogError(LogModulePayout, models.PayoutCompleted, "payout failed to settle", &admin, "10.0.0.1", "curl", map[string]interface{}{"payout_id": 3})
	require.NoError(t, db.Create(&models.SystemLog{
		Level:     LogLevelInfo,
		Module:    LogModuleDigest,
		Action:    "Generate",
		Message:   "Daily digest",
		CreatedAt: time.Now().AddDate(0, 0, -10),
	}).Error)

	svc := NewSystemLogService(db)
	day := func(offset int) string { return time.Now().AddDate(0, 0, offset).Format("2006-01-02") }

	tests := []struct {
		name string
		req  SystemLogListRequest
		want int64
	}{
		{"all", SystemLogListRequest{}, 4},
		{"module", SystemLogListRequest{Module: LogModuleReview}, 1},
		{"level", SystemLogListRequest{Level: LogLevelWarning}, 1},
		{"user", SystemLogListRequest{UserID: admin}, 2},
		{"action substring", SystemLogListRequest{Action: "Approv"}, 1},
		{"message search", SystemLogListRequest{Search: "settle"}, 1},
		{"since two days ago", SystemLogListRequest{StartDate: day(-2)}, 3},
		{"until five days ago", SystemLogListRequest{EndDate: day(-5)}, 1},
		{"end date is inclusive", SystemLogListRequest{StartDate: day(0), EndDate: day(0)}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			page, err := svc.List(&req)
			require.NoError(t, err)
			require.Equal(t, tt.want, page.Total)
			require.Len(t, page.Items, int(tt.want))
		})
	}

	page, err := svc.List(&SystemLogListRequest{Module: LogModulePayout})
	require.NoError(t, err)
	require.JSONEq(t, `{"payout_id":3}`, page.Items[0].Extra)
	require.Equal(t, "10.0.0.1", page.Items[0].IP)
}

func TestSystemLog_RejectsMalformedDates(t *testing.T) {
	svc := NewSystemLogService(testutil.NewTestDB(t))

	for _, req := range []SystemLogListRequest{{StartDate: "18/10/2026"}, {EndDate: "yesterday"}} {
		_, err := svc.List(&req)
		var invalid *ValidationError
		require.True(t, errors.As(err, &invalid), "got %v", err)
	}
}

func TestSystemLog_ModulesIncludeMarketplaceAndLogged(t *testing.T) {
	db := testutil.NewTestDB(t)
	InitSystemLogger(db)
	t.Cleanup(func() { InitSystemLogger(nil) })

	LogInfo("LLM Configs", "Create", "[Audit] admin POST /api/admin/llm-configs -> OK", nil, "", "", nil)
	LogInfo(LogModuleReview, models.SubmissionRejected, "Submission 2 Rejected", nil, "", "", nil)

	modules, err := NewSystemLogService(db).GetModules()
	require.NoError(t, err)
	require.IsIncreasing(t, modules)
	require.Contains(t, modules, "LLM Configs")
	for _, m := range []string{LogModuleAuth, LogModuleTriage, LogModuleReview, LogModuleWallet, LogModulePayout, LogModuleDigest} {
		require.Contains(t, modules, m)
	}
}

func TestSystemLog_AdminReviewIsRecorded(t *testing.T) {
	m := newMarketplace(t, 80)
	InitSystemLogger(m.db)
	t.Cleanup(func() { InitSystemLogger(nil) })
	admin := newAdmin(t, m.db)
	project := newProject(t, m.db, 0, nil)
	id := pendingSubmissions(t, m, project, 1)[0]

	_, err := m.review.Review(context.Background(), id, admin.ID, models.SubmissionRejected, nil)
	require.NoError(t, err)

	page, err := NewSystemLogService(m.db).List(&SystemLogListRequest{Module: LogModuleReview, UserID: admin.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, models.SubmissionRejected, page.Items[0].Action)
	require.Equal(t, LogLevelInfo, page.Items[0].Level)
}

func TestSystemLog_NoDatabaseIsNoop(t *testing.T) {
	InitSystemLogger(nil)
	LogError(LogModuleWallet, "Credit", "dropped", nil, "", "", nil)
}
