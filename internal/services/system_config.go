package services

import (
	"errors"
	"strconv"

	"github.com/taskhive/backend/internal/models"
	"gorm.io/gorm"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) GetInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(s.GetWithDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) GetFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(s.GetWithDefault(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) GetBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(s.GetWithDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Group: group}).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// UpdateGroup writes the given keys, refusing any key that is not already seeded in the group.
func (s *SystemConfigService) UpdateGroup(group string, values map[string]string) error {
	existing, err := s.GetByGroup(group)
	if err != nil {
		return err
	}
	allowed := make(map[string]bool, len(existing))
	for _, c := range existing {
		allowed[c.Key] = true
	}
	for k := range values {
		if !allowed[k] {
			return &ValidationError{Field: k, Reason: "unknown setting for group " + group}
		}
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			if err := tx.Model(&models.SystemConfig{}).Where(&models.SystemConfig{Key: k}).Update("value", v).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type LDAPConfigResponse struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	BaseDN      string `json:"base_dn"`
	BindDN      string `json:"bind_dn"`
	UserFilter  string `json:"user_filter"`
	UseSSL      bool   `json:"use_ssl"`
	PasswordSet bool   `json:"password_set"`
}

func (s *SystemConfigService) GetLDAPConfig() *LDAPConfigResponse {
	return &LDAPConfigResponse{
		Enabled:     s.GetBool("ldap_enabled", false),
		Host:        s.GetWithDefault("ldap_host", ""),
		Port:        s.GetInt("ldap_port", 389),
		BaseDN:      s.GetWithDefault("ldap_base_dn", ""),
		BindDN:      s.GetWithDefault("ldap_bind_dn", ""),
		UserFilter:  s.GetWithDefault("ldap_user_filter", "(uid=%s)"),
		UseSSL:      s.GetBool("ldap_use_ssl", false),
		PasswordSet: s.GetWithDefault("ldap_bind_password", "") != "",
	}
}

// AutoApproveThreshold is the AI score at or above which a clean submission is approved without an admin.
func (s *SystemConfigService) AutoApproveThreshold(fallback float64) float64 {
	return s.GetFloat("triage_auto_approve_threshold", fallback)
}

type DigestSettings struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time"`    // HH:MM
	Country string `json:"country"` // holiday calendar code
}

func (s *SystemConfigService) GetDigestSettings() DigestSettings {
	return DigestSettings{
		Enabled: s.GetBool("daily_digest_enabled", false),
		Time:    s.GetWithDefault("daily_digest_time", "18:00"),
		Country: s.GetWithDefault("daily_digest_country", "US"),
	}
}
