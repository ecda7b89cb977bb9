package models

import (
	"fmt"

	"github.com/taskhive/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	return InitDBWithLogLevel(cfg, logger.Warn)
}

func InitDBWithLogLevel(cfg *config.DatabaseConfig, level logger.LogLevel) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY under load.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	DB = db
	return nil
}

// AllModels lists every persisted type, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&QualificationAttempt{},
		&Project{},
		&TaskPoolEntry{},
		&Submission{},
		&PayoutRequest{},
		&WalletEntry{},
		&LLMConfig{},
		&SystemConfig{},
		&IMBot{},
		&SystemLog{},
		&DailyDigest{},
		&SchedulerLock{},
	}
}

func AutoMigrate() error {
	return DB.AutoMigrate(AllModels()...)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default runtime settings if not exists
func SeedDefaultData() error {
	return SeedSystemConfigs(DB)
}

func SeedSystemConfigs(db *gorm.DB) error {
	defaultConfigs := []SystemConfig{
		{Key: "ldap_enabled", Value: "false", Type: "bool", Group: "ldap", Label: "Enable LDAP Authentication"},
		{Key: "ldap_host", Value: "", Type: "string", Group: "ldap", Label: "LDAP Server Host"},
		{Key: "ldap_port", Value: "389", Type: "int", Group: "ldap", Label: "LDAP Server Port"},
		{Key: "ldap_base_dn", Value: "", Type: "string", Group: "ldap", Label: "LDAP Base DN"},
		{Key: "ldap_bind_dn", Value: "", Type: "string", Group: "ldap", Label: "LDAP Bind DN"},
		{Key: "ldap_bind_password", Value: "", Type: "string", Group: "ldap", Label: "LDAP Bind Password"},
		{Key: "ldap_user_filter", Value: "(uid=%s)", Type: "string", Group: "ldap", Label: "LDAP User Filter"},
		{Key: "ldap_use_ssl", Value: "false", Type: "bool", Group: "ldap", Label: "Use SSL/TLS"},
		{Key: "triage_auto_approve_threshold", Value: "98", Type: "int", Group: "triage", Label: "AI Auto-Approve Threshold"},
		{Key: "triage_enabled", Value: "true", Type: "bool", Group: "triage", Label: "Enable AI Triage"},
		{Key: "daily_digest_enabled", Value: "false", Type: "bool", Group: "digest", Label: "Enable Daily Admin Digest"},
		{Key: "daily_digest_time", Value: "18:00", Type: "string", Group: "digest", Label: "Daily Digest Time"},
		{Key: "daily_digest_country", Value: "US", Type: "string", Group: "digest", Label: "Holiday Calendar Country"},
		{Key: "log_retention_days", Value: "30", Type: "int", Group: "system", Label: "System Log Retention Days"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		db.Model(&SystemConfig{}).Where(&SystemConfig{Key: cfg.Key}).Count(&count)
		if count == 0 {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
