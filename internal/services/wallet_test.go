package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/backend/internal/models"
)

type capturingNotifier struct {
	mu      sync.Mutex
	payouts []string
	done    chan struct{}
}

func (n *capturingNotifier) NotifyPayoutRequested(payout *models.PayoutRequest, _ *models.User) {
	n.mu.Lock()
	n.payouts = append(n.payouts, payout.Reference)
	n.mu.Unlock()
	n.done <- struct{}{}
}

// fundedFreelancer returns a freelancer with 20 available from one auto-approved submission.
func fundedFreelancer(t *testing.T, m *marketplace, username string) *models.User {
	t.Helper()
	user := newFreelancer(t, m.db, username)
	project := newProject(t, m.db, 0, func(p *models.Project) { p.Title = "Funding " + username })
	sub, err := m.submissions.Submit(context.Background(), &SubmitRequest{ProjectID: project.ID, UserID: user.ID, Content: "answer"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionApproved, sub.Status)
	require.NoError(t, m.wallet.UpdatePaymentMethod(context.Background(), user.ID, &UpdatePaymentMethodRequest{
		PaymentMethod:     "paypal",
		PaymentIdentifier: username + "@example.com",
	}))
	return reloadUser(t, m.db, user.ID)
}

func TestRequestPayout_WithdrawsWholeBalance(t *testing.T) {
	m := newMarketplace(t, 99)
	notifier := &capturingNotifier{done: make(chan struct{}, 1)}
	m.wallet.SetNotifier(notifier)
	alice := fundedFreelancer(t, m, "alice")

	payout, err := m.wallet.RequestPayout(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.PayoutPending, payout.Status)
	requireDecimal(t, "20", payout.Amount)
	require.Equal(t, "paypal", payout.PaymentMethod)
	require.Contains(t, payout.Reference, "PO-")

	requireDecimal(t, "0", reloadUser(t, m.db, alice.ID).WalletAvailable)

	var hold models.WalletEntry
	require.NoError(t, m.db.Where("user_id = ? AND type = ?", alice.ID, models.EntryPayoutHold).First(&hold).Error)
	requireDecimal(t, "-20", hold.Amount)
	require.Equal(t, payout.ID, *hold.PayoutID)

	<-notifier.done
	require.Equal(t, []string{payout.Reference}, notifier.payouts)

	summary, err := m.wallet.GetWallet(context.Background(), alice.ID)
	require.NoError(t, err)
	requireDecimal(t, "20", summary.PendingPayout)
	requireDecimal(t, "20", summary.TotalEarned)
}

func TestRequestPayout_ZeroBalanceCreatesNothing(t *testing.T) {
	m := newMarketplace(t, 99)
	alice := newFreelancer(t, m.db, "alice")

	_, err := m.wallet.RequestPayout(context.Background(), alice.ID)
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient), "got %v", err)

	var count int64
	require.NoError(t, m.db.Model(&models.PayoutRequest{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRequestPayout_NeedsPaymentMethod(t *testing.T) {
	m := newMarketplace(t, 99)
	alice := newFreelancer(t, m.db, "alice")
	require.NoError(t, m.db.Model(alice).Update("wallet_available", decimal.NewFromInt(5)).Error)

	_, err := m.wallet.RequestPayout(context.Background(), alice.ID)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "payment_method", verr.Field)
}

func TestRequestPayout_SecondRequestFindsEmptyWallet(t *testing.T) {
	m := newMarketplace(t, 99)
	alice := fundedFreelancer(t, m, "alice")

	_, err := m.wallet.RequestPayout(context.Background(), alice.ID)
	require.NoError(t, err)
	_, err = m.wallet.RequestPayout(context.Background(), alice.ID)
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
}

func TestReviewPayout_RejectRestoresAmount(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	admin := newAdmin(t, m.db)
	alice := fundedFreelancer(t, m, "alice")

	payout, err := m.wallet.RequestPayout(ctx, alice.ID)
	require.NoError(t, err)

	notes := "account closed"
	rejected, err := m.wallet.ReviewPayout(ctx, payout.ID, admin.ID, models.PayoutRejected, &notes)
	require.NoError(t, err)
	require.Equal(t, models.PayoutRejected, rejected.Status)
	require.Equal(t, admin.ID, *rejected.ProcessedBy)

	requireDecimal(t, "20", reloadUser(t, m.db, alice.ID).WalletAvailable)

	var restore models.WalletEntry
	require.NoError(t, m.db.Where("user_id = ? AND type = ?", alice.ID, models.EntryPayoutRestore).First(&restore).Error)
	requireDecimal(t, "20", restore.Amount)

	_, err = m.wallet.ReviewPayout(ctx, payout.ID, admin.ID, models.PayoutCompleted, nil)
	var already *AlreadyReviewedError
	require.True(t, errors.As(err, &already), "got %v", err)
}

func TestReviewPayout_Complete(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	admin := newAdmin(t, m.db)
	alice := fundedFreelancer(t, m, "alice")

	payout, err := m.wallet.RequestPayout(ctx, alice.ID)
	require.NoError(t, err)

	done, err := m.wallet.ReviewPayout(ctx, payout.ID, admin.ID, models.PayoutCompleted, nil)
	require.NoError(t, err)
	require.Equal(t, models.PayoutCompleted, done.Status)
	requireDecimal(t, "0", reloadUser(t, m.db, alice.ID).WalletAvailable)

	summary, err := m.wallet.GetWallet(ctx, alice.ID)
	require.NoError(t, err)
	requireDecimal(t, "20", summary.TotalPaidOut)
	requireDecimal(t, "0", summary.PendingPayout)

	_, err = m.wallet.ReviewPayout(ctx, payout.ID, admin.ID, "Pending", nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestListPayouts_FilterByStatus(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	admin := newAdmin(t, m.db)
	alice := fundedFreelancer(t, m, "alice")
	bob := fundedFreelancer(t, m, "bob")

	first, err := m.wallet.RequestPayout(ctx, alice.ID)
	require.NoError(t, err)
	_, err = m.wallet.RequestPayout(ctx, bob.ID)
	require.NoError(t, err)
	_, err = m.wallet.ReviewPayout(ctx, first.ID, admin.ID, models.PayoutCompleted, nil)
	require.NoError(t, err)

	page, err := m.wallet.ListPayouts(ctx, &PayoutListRequest{Status: models.PayoutPending})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, bob.ID, page.Items[0].UserID)
	require.NotNil(t, page.Items[0].User)
	require.Equal(t, "bob", page.Items[0].User.Username)
}

func TestUpdatePaymentMethod_Validates(t *testing.T) {
	m := newMarketplace(t, 99)
	alice := newFreelancer(t, m.db, "alice")

	err := m.wallet.UpdatePaymentMethod(context.Background(), alice.ID, &UpdatePaymentMethodRequest{PaymentMethod: "cheque", PaymentIdentifier: "x"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestListEntries_NewestFirst(t *testing.T) {
	m := newMarketplace(t, 99)
	ctx := context.Background()
	alice := fundedFreelancer(t, m, "alice")
	_, err := m.wallet.RequestPayout(ctx, alice.ID)
	require.NoError(t, err)

	page, err := m.wallet.ListEntries(ctx, alice.ID, &WalletEntryListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Equal(t, models.EntryPayoutHold, page.Items[0].Type)
	require.Equal(t, models.EntryEarning, page.Items[1].Type)
}
