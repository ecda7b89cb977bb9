package services

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// Modules written by the marketplace services. Audit rows add route-derived modules on top.
const (
	LogModuleAuth          = "Auth"
	LogModuleQualification = "Qualification"
	LogModuleProject       = "Project"
	LogModuleTriage        = "Triage"
	LogModuleReview        = "Review"
	LogModuleWallet        = "Wallet"
	LogModulePayout        = "Payout"
	LogModuleDigest        = "Digest"
)

var marketplaceLogModules = []string{
	LogModuleAuth,
	LogModuleQualification,
	LogModuleProject,
	LogModuleTriage,
	LogModuleReview,
	LogModuleWallet,
	LogModulePayout,
	LogModuleDigest,
}

var globalDB *gorm.DB

// InitSystemLogger sets the database that Log* calls persist to. A nil db turns them into no-ops.
func InitSystemLogger(db *gorm.DB) {
	globalDB = db
}

func LogInfo(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(LogLevelInfo, module, action, message, userID, ip, userAgent, extra)
}

func LogWarning(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(LogLevelWarning, module, action, message, userID, ip, userAgent, extra)
}

func LogError(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(LogLevelError, module, action, message, userID, ip, userAgent, extra)
}

func writeLog(level, module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	if globalDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	if err := globalDB.Create(entry).Error; err != nil {
		logger.Warnf("[SystemLog] Failed to persist %s/%s: %v", module, action, err)
	}
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	UserID    uint   `form:"user_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*response.Page[models.SystemLog], error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	var logs []models.SystemLog
	var total int64

	query := s.db.Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.StartDate != "" {
		start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
		if err != nil {
			return nil, &ValidationError{Field: "start_date", Reason: "must be YYYY-MM-DD"}
		}
		query = query.Where("created_at >= ?", start)
	}
	if req.EndDate != "" {
		end, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local)
		if err != nil {
			return nil, &ValidationError{Field: "end_date", Reason: "must be YYYY-MM-DD"}
		}
		query = query.Where("created_at < ?", end.AddDate(0, 0, 1))
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &response.Page[models.SystemLog]{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// GetModules lists the marketplace modules plus any other module that has logged rows.
func (s *SystemLogService) GetModules() ([]string, error) {
	var logged []string
	if err := s.db.Model(&models.SystemLog{}).Distinct("module").Pluck("module", &logged).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(marketplaceLogModules)+len(logged))
	modules := make([]string, 0, len(marketplaceLogModules)+len(logged))
	for _, m := range append(append([]string{}, marketplaceLogModules...), logged...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		modules = append(modules, m)
	}
	sort.Strings(modules)
	return modules, nil
}

// CleanupOldLogs deletes logs older than retentionDays and returns the count removed.
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (s *SystemLogService) GetRetentionDays() int {
	return NewSystemConfigService(s.db).GetInt("log_retention_days", 30)
}

func (s *SystemLogService) SetRetentionDays(days int) error {
	if days < 0 {
		return &ValidationError{Field: "days", Reason: "must not be negative"}
	}
	return NewSystemConfigService(s.db).Set("log_retention_days", strconv.Itoa(days))
}

// StartLogCleanupScheduler runs the retention cleanup now and then daily until stop is closed.
func StartLogCleanupScheduler(db *gorm.DB, stop <-chan struct{}) {
	go func() {
		service := NewSystemLogService(db)
		runCleanup(service)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runCleanup(service)
			case <-stop:
				return
			}
		}
	}()
}

func runCleanup(service *SystemLogService) {
	retentionDays := service.GetRetentionDays()
	if retentionDays <= 0 {
		logger.Infof("[SystemLog] Log cleanup disabled (retention_days <= 0)")
		return
	}

	deleted, err := service.CleanupOldLogs(retentionDays)
	if err != nil {
		logger.Errorf("[SystemLog] Failed to cleanup old logs: %v", err)
		return
	}

	if deleted > 0 {
		logger.Infof("[SystemLog] Cleaned up %d logs older than %d days", deleted, retentionDays)
	}
}
