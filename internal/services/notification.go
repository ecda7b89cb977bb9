package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"gorm.io/gorm"
)

// NotificationService fans admin notices out to the configured IM bots.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// NotifyPayoutRequested tells payout-watching bots about a new request. Failures are only logged.
func (s *NotificationService) NotifyPayoutRequested(payout *models.PayoutRequest, user *models.User) {
	var bots []models.IMBot
	if err := s.db.Where("is_active = ? AND payout_notify = ?", true, true).Find(&bots).Error; err != nil {
		logger.Errorf("[Notification] Failed to load payout bots: %v", err)
		return
	}
	if len(bots) == 0 {
		return
	}

	username := ""
	if user != nil {
		username = user.Username
	}
	notice := &Notice{
		Kind:  "payout",
		Title: "New payout request " + payout.Reference,
		Body: fmt.Sprintf("**Freelancer**: %s\n**Amount**: %s\n**Method**: %s",
			username, payout.Amount.StringFixed(2), payout.PaymentMethod),
		Fields: map[string]interface{}{
			"reference": payout.Reference,
			"user_id":   payout.UserID,
			"username":  username,
			"amount":    payout.Amount.StringFixed(2),
			"method":    payout.PaymentMethod,
		},
	}
	if err := s.broadcast(bots, notice); err != nil {
		logger.Warnf("[Notification] Payout %s notice: %v", payout.Reference, err)
	}
}

// SendDigest posts the digest to digest-enabled bots. It returns an error if any bot failed.
func (s *NotificationService) SendDigest(d *models.DailyDigest) error {
	var bots []models.IMBot
	if err := s.db.Where("is_active = ? AND digest_enabled = ?", true, true).Find(&bots).Error; err != nil {
		return err
	}
	if len(bots) == 0 {
		logger.Infof("[Notification] No digest bots configured, skipping")
		return nil
	}
	return s.broadcast(bots, DigestNotice(d))
}

// DigestNotice renders a digest snapshot as a notice.
func DigestNotice(d *models.DailyDigest) *Notice {
	var b strings.Builder
	fmt.Fprintf(&b, "**New submissions**: %d\n", d.NewSubmissions)
	fmt.Fprintf(&b, "**Auto-approved**: %d\n", d.AutoApproved)
	fmt.Fprintf(&b, "**Approved by admins**: %d\n", d.ManualApproved)
	fmt.Fprintf(&b, "**Rejected**: %d\n", d.Rejected)
	fmt.Fprintf(&b, "**Waiting for review**: %d\n", d.WaitingReview)
	if d.TriageFailures > 0 {
		fmt.Fprintf(&b, "**Unscored (AI failed)**: %d\n", d.TriageFailures)
	}
	fmt.Fprintf(&b, "**Pending payouts**: %d (%s)\n", d.PendingPayouts, d.PendingAmount)
	fmt.Fprintf(&b, "**New applicants**: %d", d.NewApplicants)

	return &Notice{
		Kind:  "digest",
		Title: "TaskHive daily digest " + d.DigestDate.Format("2006-01-02"),
		Body:  b.String(),
		Fields: map[string]interface{}{
			"date":            d.DigestDate.Format("2006-01-02"),
			"new_submissions": d.NewSubmissions,
			"auto_approved":   d.AutoApproved,
			"manual_approved": d.ManualApproved,
			"rejected":        d.Rejected,
			"waiting_review":  d.WaitingReview,
			"triage_failures": d.TriageFailures,
			"pending_payouts": d.PendingPayouts,
			"pending_amount":  d.PendingAmount,
			"new_applicants":  d.NewApplicants,
		},
	}
}

// SendTest sends a test notice to one bot regardless of its flags.
func (s *NotificationService) SendTest(botID uint) error {
	var bot models.IMBot
	if err := s.db.First(&bot, botID).Error; err != nil {
		return notFound(err)
	}
	return getAdapter(bot.Type).Send(&bot, &Notice{
		Kind:  "test",
		Title: "TaskHive test message",
		Body:  "This bot is connected.",
	})
}

func (s *NotificationService) broadcast(bots []models.IMBot, n *Notice) error {
	var errs []error
	for i := range bots {
		bot := &bots[i]
		if err := getAdapter(bot.Type).Send(bot, n); err != nil {
			logger.Warnf("[Notification] Bot %s (%s) failed: %v", bot.Name, bot.Type, err)
			errs = append(errs, fmt.Errorf("%s: %w", bot.Name, err))
			continue
		}
		logger.Infof("[Notification] %s notice sent to %s", n.Kind, bot.Name)
	}
	return errors.Join(errs...)
}
