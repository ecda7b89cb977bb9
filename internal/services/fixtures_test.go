package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/testutil"
	"gorm.io/gorm"
)

// fakeScorer returns a fixed verdict (or error) and counts calls.
type fakeScorer struct {
	mu      sync.Mutex
	verdict *Verdict
	err     error
	calls   int
}

func (f *fakeScorer) Score(ctx context.Context, _ SubmissionContent, _ TaskContext) (*Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	v := *f.verdict
	return &v, nil
}

func (f *fakeScorer) set(v *Verdict, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verdict, f.err = v, err
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// marketplace wires the submission pipeline the way bootstrap does, minus the LLM.
type marketplace struct {
	db          *gorm.DB
	scorer      *fakeScorer
	queue       *SyncQueue
	wallet      *WalletService
	review      *ReviewService
	triage      *TriageService
	submissions *SubmissionService
	assignment  *AssignmentService
}

func newMarketplace(t *testing.T, score float64) *marketplace {
	t.Helper()
	db := testutil.NewTestDB(t)

	m := &marketplace{
		db:     db,
		scorer: &fakeScorer{verdict: &Verdict{Score: score, Feedback: "looks fine"}},
		queue:  NewSyncQueue(),
	}
	m.wallet = NewWalletService(db, config.DefaultConfig().Tier)
	m.review = NewReviewService(db, m.wallet, 98)
	m.triage = NewTriageService(db, m.scorer, 0)
	m.submissions = NewSubmissionService(db, m.wallet, m.triage, m.review, m.queue)
	m.assignment = NewAssignmentService(db)
	t.Cleanup(func() { _ = m.queue.Close() })
	return m
}

func newFreelancer(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:    username,
		Role:        models.RoleFreelancer,
		Status:      models.UserStatusAccepted,
		SkillDomain: "GENERAL",
		Tier:        models.TierBronze,
		AuthType:    "local",
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Username: "admin",
		Role:     models.RoleAdmin,
		Status:   models.UserStatusAccepted,
		AuthType: "local",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// newProject creates an active PER_TASK text project paying 20 with a pool of poolSize entries.
func newProject(t *testing.T, db *gorm.DB, poolSize int, edit func(*models.Project)) *models.Project {
	t.Helper()
	project := &models.Project{
		Title:         "Sentiment labels",
		Description:   "Label the sentiment of each review",
		TaskType:      models.TaskTypeTextAnnotation,
		ProjectDomain: "GENERAL",
		PaymentType:   models.PaymentPerTask,
		PayRate:       decimal.NewFromInt(20),
		TaskContent:   "Is this review positive?",
		IsActive:      true,
	}
	if edit != nil {
		edit(project)
	}
	wantActive := project.IsActive
	require.NoError(t, db.Create(project).Error)
	// gorm writes the column default back into the struct on Create.
	if !wantActive {
		require.NoError(t, db.Model(project).Update("is_active", false).Error)
		project.IsActive = false
	}

	if poolSize > 0 {
		entries := make([]TaskPoolInput, poolSize)
		for i := range entries {
			entries[i] = TaskPoolInput{Content: fmt.Sprintf("review #%d", i)}
		}
		_, err := appendPool(db, project.ID, entries)
		require.NoError(t, err)
	}
	return project
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return &user
}

func intPtr(v int) *int { return &v }

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
