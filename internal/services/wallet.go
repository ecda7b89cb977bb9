package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/idgen"
	"github.com/taskhive/backend/pkg/logger"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var PaymentMethods = []string{"paypal", "bank_transfer", "wise", "payoneer", "crypto"}

// WalletService owns every change to a freelancer's balances.
// Balance writes happen only inside a transaction that holds the user row lock.
type WalletService struct {
	db       *gorm.DB
	tiers    config.TierConfig
	notifier PayoutNotifier
}

// PayoutNotifier is told about new payout requests after commit.
type PayoutNotifier interface {
	NotifyPayoutRequested(payout *models.PayoutRequest, user *models.User)
}

func NewWalletService(db *gorm.DB, tiers config.TierConfig) *WalletService {
	return &WalletService{db: db, tiers: tiers}
}

func (s *WalletService) SetNotifier(n PayoutNotifier) {
	s.notifier = n
}

func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// AddPending records a submission's potential earning as pending review.
func (s *WalletService) AddPending(tx *gorm.DB, userID uint, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	user, err := lockUser(tx, userID)
	if err != nil {
		return err
	}
	return tx.Model(user).Update("wallet_pending_review", user.WalletPendingReview.Add(amount)).Error
}

// ReleasePending removes a rejected submission's potential earning.
func (s *WalletService) ReleasePending(tx *gorm.DB, userID uint, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	user, err := lockUser(tx, userID)
	if err != nil {
		return err
	}
	return tx.Model(user).Update("wallet_pending_review", nonNegative(user.WalletPendingReview.Sub(amount))).Error
}

// CreditApproved pays out an approved submission: it moves the earning from pending to
// available, writes the EARNING entry and recomputes the tier. Returns the amount credited.
func (s *WalletService) CreditApproved(tx *gorm.DB, sub *models.Submission, project *models.Project) (decimal.Decimal, error) {
	amount := project.PotentialEarning(sub.TimeSpentMinutes)

	user, err := lockUser(tx, sub.UserID)
	if err != nil {
		return decimal.Zero, err
	}

	available := user.WalletAvailable.Add(amount)
	pending := nonNegative(user.WalletPendingReview.Sub(sub.PotentialEarning))

	if err := tx.Model(user).Updates(map[string]interface{}{
		"wallet_available":      available,
		"wallet_pending_review": pending,
	}).Error; err != nil {
		return decimal.Zero, err
	}

	subID := sub.ID
	if err := tx.Create(&models.WalletEntry{
		UserID:       user.ID,
		Type:         models.EntryEarning,
		Amount:       amount,
		BalanceAfter: available,
		SubmissionID: &subID,
	}).Error; err != nil {
		return decimal.Zero, err
	}

	if _, err := recomputeTier(tx, s.tiers, user.ID); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// RequestPayout withdraws the whole available balance into a Pending payout request.
func (s *WalletService) RequestPayout(ctx context.Context, userID uint) (*models.PayoutRequest, error) {
	var payout *models.PayoutRequest
	var owner *models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if !user.WalletAvailable.IsPositive() {
			return &InsufficientBalanceError{Available: user.WalletAvailable.StringFixed(2)}
		}
		if user.PaymentMethod == "" || user.PaymentIdentifier == "" {
			return &ValidationError{Field: "payment_method", Reason: "set a payment method before requesting a payout"}
		}

		amount := user.WalletAvailable
		payout = &models.PayoutRequest{
			Reference:         idgen.NextWithPrefix("PO-"),
			UserID:            user.ID,
			Amount:            amount,
			Status:            models.PayoutPending,
			PaymentMethod:     user.PaymentMethod,
			PaymentIdentifier: user.PaymentIdentifier,
		}
		if err := tx.Create(payout).Error; err != nil {
			return err
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND wallet_available = ?", user.ID, amount).
			Update("wallet_available", decimal.Zero)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errors.New("wallet balance changed concurrently, retry")
		}

		payoutID := payout.ID
		if err := tx.Create(&models.WalletEntry{
			UserID:       user.ID,
			Type:         models.EntryPayoutHold,
			Amount:       amount.Neg(),
			BalanceAfter: decimal.Zero,
			PayoutID:     &payoutID,
		}).Error; err != nil {
			return err
		}

		owner = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("[Wallet] Payout %s requested by user %d for %s", payout.Reference, userID, payout.Amount.StringFixed(2))
	LogInfo(LogModulePayout, "Request", "Payout requested: "+payout.Reference, &userID, "", "", map[string]interface{}{
		"payout_id": payout.ID,
		"amount":    payout.Amount.StringFixed(2),
	})
	if s.notifier != nil {
		go s.notifier.NotifyPayoutRequested(payout, owner)
	}
	return payout, nil
}

// ReviewPayout completes or rejects a Pending payout. Rejection restores the amount.
func (s *WalletService) ReviewPayout(ctx context.Context, payoutID, adminID uint, status string, notes *string) (*models.PayoutRequest, error) {
	if status != models.PayoutCompleted && status != models.PayoutRejected {
		return nil, &ValidationError{Field: "status", Reason: "must be Completed or Rejected"}
	}

	var payout models.PayoutRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payout, payoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&models.PayoutRequest{}).
			Where("id = ? AND status = ?", payoutID, models.PayoutPending).
			Updates(map[string]interface{}{
				"status":       status,
				"admin_notes":  notes,
				"processed_by": adminID,
				"processed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &AlreadyReviewedError{Kind: "payout", ID: payoutID, Status: payout.Status}
		}

		if status == models.PayoutRejected {
			user, err := lockUser(tx, payout.UserID)
			if err != nil {
				return err
			}
			available := user.WalletAvailable.Add(payout.Amount)
			if err := tx.Model(user).Update("wallet_available", available).Error; err != nil {
				return err
			}
			pid := payout.ID
			if err := tx.Create(&models.WalletEntry{
				UserID:       user.ID,
				Type:         models.EntryPayoutRestore,
				Amount:       payout.Amount,
				BalanceAfter: available,
				PayoutID:     &pid,
			}).Error; err != nil {
				return err
			}
		}

		return tx.First(&payout, payoutID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("[Wallet] Payout %s marked %s by admin %d", payout.Reference, status, adminID)
	LogInfo(LogModulePayout, status, fmt.Sprintf("Payout %s %s", payout.Reference, status), &adminID, "", "", map[string]interface{}{
		"payout_id": payout.ID,
		"user_id":   payout.UserID,
	})
	return &payout, nil
}

// WalletSummary is the freelancer-facing wallet view.
type WalletSummary struct {
	Available         decimal.Decimal `json:"available"`
	PendingReview     decimal.Decimal `json:"pending_review"`
	PendingPayout     decimal.Decimal `json:"pending_payout"`
	TotalEarned       decimal.Decimal `json:"total_earned"`
	TotalPaidOut      decimal.Decimal `json:"total_paid_out"`
	Tier              string          `json:"tier"`
	Stats             TierStats       `json:"stats"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentIdentifier string          `json:"payment_identifier"`
}

func (s *WalletService) GetWallet(ctx context.Context, userID uint) (*WalletSummary, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	stats, err := loadTierStats(db, userID)
	if err != nil {
		return nil, err
	}

	var earned []models.WalletEntry
	if err := db.Where("user_id = ? AND type = ?", userID, models.EntryEarning).Find(&earned).Error; err != nil {
		return nil, err
	}
	totalEarned := decimal.Zero
	for _, e := range earned {
		totalEarned = totalEarned.Add(e.Amount)
	}

	var payouts []models.PayoutRequest
	if err := db.Where("user_id = ? AND status IN ?", userID, []string{models.PayoutPending, models.PayoutCompleted}).Find(&payouts).Error; err != nil {
		return nil, err
	}
	pendingPayout, paidOut := decimal.Zero, decimal.Zero
	for _, p := range payouts {
		if p.Status == models.PayoutPending {
			pendingPayout = pendingPayout.Add(p.Amount)
		} else {
			paidOut = paidOut.Add(p.Amount)
		}
	}

	return &WalletSummary{
		Available:         user.WalletAvailable,
		PendingReview:     user.WalletPendingReview,
		PendingPayout:     pendingPayout,
		TotalEarned:       totalEarned,
		TotalPaidOut:      paidOut,
		Tier:              user.Tier,
		Stats:             stats,
		PaymentMethod:     user.PaymentMethod,
		PaymentIdentifier: user.PaymentIdentifier,
	}, nil
}

type UpdatePaymentMethodRequest struct {
	PaymentMethod     string `json:"payment_method" binding:"required"`
	PaymentIdentifier string `json:"payment_identifier" binding:"required"`
}

func (s *WalletService) UpdatePaymentMethod(ctx context.Context, userID uint, req *UpdatePaymentMethodRequest) error {
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if !contains(PaymentMethods, method) {
		return &ValidationError{Field: "payment_method", Reason: "must be one of " + strings.Join(PaymentMethods, ", ")}
	}
	identifier := strings.TrimSpace(req.PaymentIdentifier)
	if identifier == "" {
		return &ValidationError{Field: "payment_identifier", Reason: "must not be empty"}
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"payment_method":     method,
		"payment_identifier": identifier,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type WalletEntryListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Type     string `form:"type"`
}

func (s *WalletService) ListEntries(ctx context.Context, userID uint, req *WalletEntryListRequest) (*response.Page[models.WalletEntry], error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.WithContext(ctx).Model(&models.WalletEntry{}).Where("user_id = ?", userID)
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []models.WalletEntry
	if err := query.Order("id DESC").Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).Find(&entries).Error; err != nil {
		return nil, err
	}

	return &response.Page[models.WalletEntry]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: entries}, nil
}

type PayoutListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
	UserID   uint   `form:"user_id"`
}

// ListPayouts lists payout requests; a non-zero req.UserID restricts to that user.
func (s *WalletService) ListPayouts(ctx context.Context, req *PayoutListRequest) (*response.Page[models.PayoutRequest], error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.WithContext(ctx).Model(&models.PayoutRequest{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var payouts []models.PayoutRequest
	if err := query.Preload("User").Order("created_at DESC").Order("id DESC").
		Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).Find(&payouts).Error; err != nil {
		return nil, err
	}

	return &response.Page[models.PayoutRequest]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: payouts}, nil
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
