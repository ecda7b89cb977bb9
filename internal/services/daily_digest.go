package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
)

const digestLockName = "daily_digest"

// ErrDigestLocked means another instance already sent today's digest.
var ErrDigestLocked = errors.New("digest already claimed by another instance")

// DigestService builds the daily admin summary and posts it to IM bots.
type DigestService struct {
	db            *gorm.DB
	settings      *SystemConfigService
	notifications *NotificationService
	workdays      *WorkdayCalendar
	instance      string

	mu             sync.Mutex
	cronScheduler  *cron.Cron
	currentEntryID cron.EntryID
	scheduledAt    string
}

func NewDigestService(db *gorm.DB, notifications *NotificationService, workdays *WorkdayCalendar) *DigestService {
	host, _ := os.Hostname()
	return &DigestService{
		db:            db,
		settings:      NewSystemConfigService(db),
		notifications: notifications,
		workdays:      workdays,
		instance:      fmt.Sprintf("%s-%d", host, os.Getpid()),
	}
}

func (s *DigestService) StartScheduler() {
	s.cronScheduler = cron.New()
	s.Reschedule()
	s.cronScheduler.Start()
	logger.Infof("[Digest] Scheduler started")
}

func (s *DigestService) StopScheduler() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

// Reschedule re-reads daily_digest_time; call it after the setting changes.
func (s *DigestService) Reschedule() {
	if s.cronScheduler == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.settings.GetDigestSettings()
	hour, minute, err := parseClock(settings.Time)
	if err != nil {
		logger.Warnf("[Digest] Invalid daily_digest_time %q, using 18:00", settings.Time)
		hour, minute = 18, 0
	}
	clock := fmt.Sprintf("%02d:%02d", hour, minute)
	if s.currentEntryID != 0 && clock == s.scheduledAt {
		return
	}
	if s.currentEntryID != 0 {
		s.cronScheduler.Remove(s.currentEntryID)
	}

	entryID, err := s.cronScheduler.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), s.runScheduled)
	if err != nil {
		logger.Errorf("[Digest] Failed to add cron job: %v", err)
		return
	}
	s.currentEntryID = entryID
	s.scheduledAt = clock
	logger.Infof("[Digest] Scheduled daily at %s", clock)
}

func parseClock(v string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour")
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute")
	}
	return hour, minute, nil
}

func (s *DigestService) runScheduled() {
	settings := s.settings.GetDigestSettings()
	if !settings.Enabled {
		return
	}
	now := time.Now()
	if !s.workdays.IsWorkday(now, settings.Country) {
		logger.Infof("[Digest] %s is not a workday in %s, skipping", now.Format("2006-01-02"), settings.Country)
		return
	}
	if _, err := s.GenerateAndSend(now); err != nil && !errors.Is(err, ErrDigestLocked) {
		logger.Errorf("[Digest] Failed: %v", err)
	}
}

// GenerateAndSend builds the digest for day and notifies bots, at most once per day across instances.
func (s *DigestService) GenerateAndSend(day time.Time) (*models.DailyDigest, error) {
	if err := s.acquireLock(day); err != nil {
		return nil, err
	}

	digest, err := s.Generate(day)
	if err != nil {
		return nil, err
	}
	return digest, s.deliver(digest)
}

func (s *DigestService) deliver(digest *models.DailyDigest) error {
	sendErr := s.notifications.SendDigest(digest)

	updates := map[string]interface{}{"notify_error": ""}
	if sendErr != nil {
		updates["notify_error"] = sendErr.Error()
	} else {
		now := time.Now()
		updates["notified_at"] = now
		digest.NotifiedAt = &now
	}
	if err := s.db.Model(digest).Updates(updates).Error; err != nil {
		logger.Warnf("[Digest] Failed to record delivery of digest %d: %v", digest.ID, err)
	}
	return sendErr
}

// acquireLock inserts a per-day lock row; the unique index lets only one instance win.
func (s *DigestService) acquireLock(day time.Time) error {
	now := time.Now()
	key := day.Format("2006-01-02")

	s.db.Where("lock_name = ? AND expires_at < ?", digestLockName, now).Delete(&models.SchedulerLock{})

	lock := models.SchedulerLock{
		LockName:  digestLockName,
		LockKey:   key,
		LockedBy:  s.instance,
		LockedAt:  now,
		ExpiresAt: now.Add(36 * time.Hour),
	}
	if err := s.db.Create(&lock).Error; err != nil {
		var existing models.SchedulerLock
		if s.db.Where("lock_name = ? AND lock_key = ?", digestLockName, key).First(&existing).Error == nil {
			return ErrDigestLocked
		}
		return err
	}
	return nil
}

// Generate computes (or recomputes) the digest row for the calendar day containing day.
func (s *DigestService) Generate(day time.Time) (*models.DailyDigest, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	digest := models.DailyDigest{DigestDate: start}

	if err := s.db.Model(&models.Submission{}).Where("created_at >= ? AND created_at < ?", start, end).
		Count(&digest.NewSubmissions).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Submission{}).
		Where("status = ? AND reviewed_by IS NULL AND reviewed_at >= ? AND reviewed_at < ?", models.SubmissionApproved, start, end).
		Count(&digest.AutoApproved).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Submission{}).
		Where("status = ? AND reviewed_by IS NOT NULL AND reviewed_at >= ? AND reviewed_at < ?", models.SubmissionApproved, start, end).
		Count(&digest.ManualApproved).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Submission{}).
		Where("status = ? AND reviewed_at >= ? AND reviewed_at < ?", models.SubmissionRejected, start, end).
		Count(&digest.Rejected).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Submission{}).Where("status = ?", models.SubmissionPending).
		Count(&digest.WaitingReview).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Submission{}).Where("status = ? AND ai_score IS NULL AND triage_attempts > 0", models.SubmissionPending).
		Count(&digest.TriageFailures).Error; err != nil {
		return nil, err
	}

	var amounts []decimal.Decimal
	if err := s.db.Model(&models.PayoutRequest{}).Where("status = ?", models.PayoutPending).
		Pluck("amount", &amounts).Error; err != nil {
		return nil, err
	}
	pendingAmount := decimal.Zero
	for _, a := range amounts {
		pendingAmount = pendingAmount.Add(a)
	}
	digest.PendingPayouts = int64(len(amounts))
	digest.PendingAmount = pendingAmount.StringFixed(2)

	if err := s.db.Model(&models.User{}).Where("role = ? AND status = ?", models.RoleApplicant, models.UserStatusPending).
		Count(&digest.NewApplicants).Error; err != nil {
		return nil, err
	}

	var existing models.DailyDigest
	err := s.db.Where("digest_date = ?", start).First(&existing).Error
	switch {
	case err == nil:
		digest.ID = existing.ID
		digest.CreatedAt = existing.CreatedAt
		digest.NotifiedAt = existing.NotifiedAt
		if err := s.db.Save(&digest).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.Create(&digest).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	logger.Infof("[Digest] %s: %d new, %d auto-approved, %d waiting", start.Format("2006-01-02"),
		digest.NewSubmissions, digest.AutoApproved, digest.WaitingReview)
	LogInfo(LogModuleDigest, "Generate", "Daily digest for "+start.Format("2006-01-02"), nil, "", "", map[string]interface{}{
		"new_submissions": digest.NewSubmissions,
		"auto_approved":   digest.AutoApproved,
		"waiting_review":  digest.WaitingReview,
	})
	return &digest, nil
}

func (s *DigestService) List(page, pageSize int) (*response.Page[models.DailyDigest], error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	if err := s.db.Model(&models.DailyDigest{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.DailyDigest
	if err := s.db.Order("digest_date DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return &response.Page[models.DailyDigest]{Total: total, Page: page, PageSize: pageSize, Items: items}, nil
}

// Resend posts a stored digest again, bypassing the daily lock.
func (s *DigestService) Resend(id uint) error {
	var digest models.DailyDigest
	if err := s.db.First(&digest, id).Error; err != nil {
		return notFound(err)
	}
	return s.deliver(&digest)
}

func (s *DigestService) SupportedCountries() []CountryInfo {
	return s.workdays.SupportedCountries()
}
