package services

import (
	"context"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
)

var LLMProviders = []string{"openai", "azure", "anthropic", "ollama", "gemini"}

type LLMConfigService struct {
	db *gorm.DB
	ai *AIService
}

func NewLLMConfigService(db *gorm.DB, ai *AIService) *LLMConfigService {
	return &LLMConfigService{db: db, ai: ai}
}

type LLMConfigListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Name     string `form:"name"`
	Provider string `form:"provider"`
	IsActive *bool  `form:"is_active"`
}

type CreateLLMConfigRequest struct {
	Name        string  `json:"name" binding:"required"`
	Provider    string  `json:"provider"`
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model" binding:"required"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Priority    *int    `json:"priority"`
	IsDefault   bool    `json:"is_default"`
	IsActive    bool    `json:"is_active"`
}

type UpdateLLMConfigRequest struct {
	Name        string   `json:"name"`
	Provider    string   `json:"provider"`
	BaseURL     string   `json:"base_url"`
	APIKey      string   `json:"api_key"`
	Model       string   `json:"model"`
	MaxTokens   *int     `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
	Priority    *int     `json:"priority"`
	IsDefault   *bool    `json:"is_default"`
	IsActive    *bool    `json:"is_active"`
}

func (s *LLMConfigService) List(req *LLMConfigListRequest) (*response.Page[models.LLMConfig], error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.Model(&models.LLMConfig{})
	if req.Name != "" {
		query = query.Where("name LIKE ? OR model LIKE ?", "%"+req.Name+"%", "%"+req.Name+"%")
	}
	if req.Provider != "" {
		query = query.Where("provider = ?", req.Provider)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var configs []models.LLMConfig
	if err := query.Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).
		Order("is_default DESC").Order("priority ASC").Order("id ASC").
		Find(&configs).Error; err != nil {
		return nil, err
	}

	for i := range configs {
		configs[i].APIKeyMask = configs[i].MaskAPIKey()
	}
	return &response.Page[models.LLMConfig]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: configs}, nil
}

func (s *LLMConfigService) GetByID(id uint) (*models.LLMConfig, error) {
	var cfg models.LLMConfig
	if err := s.db.First(&cfg, id).Error; err != nil {
		return nil, notFound(err)
	}
	cfg.APIKeyMask = cfg.MaskAPIKey()
	return &cfg, nil
}

func (s *LLMConfigService) Create(req *CreateLLMConfigRequest) (*models.LLMConfig, error) {
	if req.Provider == "" {
		req.Provider = "openai"
	}
	if !contains(LLMProviders, req.Provider) {
		return nil, &ValidationError{Field: "provider", Reason: "unsupported provider"}
	}
	// ollama runs locally without a key
	if req.APIKey == "" && req.Provider != "ollama" {
		return nil, &ValidationError{Field: "api_key", Reason: "required"}
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 1024
	}

	cfg := models.LLMConfig{
		Name:        req.Name,
		Provider:    req.Provider,
		BaseURL:     req.BaseURL,
		APIKey:      req.APIKey,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Priority:    100,
		IsDefault:   req.IsDefault,
		IsActive:    req.IsActive,
	}
	if req.Priority != nil {
		cfg.Priority = *req.Priority
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&models.LLMConfig{}).Where("is_default = ?", true).Update("is_default", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&cfg).Error; err != nil {
			return err
		}
		// gorm skips zero values on create, so an inactive config needs an explicit write.
		if !req.IsActive {
			return tx.Model(&cfg).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cfg.APIKeyMask = cfg.MaskAPIKey()
	return &cfg, nil
}

func (s *LLMConfigService) Update(id uint, req *UpdateLLMConfigRequest) (*models.LLMConfig, error) {
	var cfg models.LLMConfig
	if err := s.db.First(&cfg, id).Error; err != nil {
		return nil, notFound(err)
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Provider != "" {
		if !contains(LLMProviders, req.Provider) {
			return nil, &ValidationError{Field: "provider", Reason: "unsupported provider"}
		}
		updates["provider"] = req.Provider
	}
	if req.BaseURL != "" {
		updates["base_url"] = req.BaseURL
	}
	if req.APIKey != "" {
		updates["api_key"] = req.APIKey
	}
	if req.Model != "" {
		updates["model"] = req.Model
	}
	if req.MaxTokens != nil {
		updates["max_tokens"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		updates["temperature"] = *req.Temperature
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault != nil && *req.IsDefault {
			if err := tx.Model(&models.LLMConfig{}).Where("is_default = ? AND id <> ?", true, id).Update("is_default", false).Error; err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&cfg).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(id)
}

func (s *LLMConfigService) Delete(id uint) error {
	res := s.db.Delete(&models.LLMConfig{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Test sends a short prompt through the stored config.
func (s *LLMConfigService) Test(ctx context.Context, id uint) error {
	var cfg models.LLMConfig
	if err := s.db.First(&cfg, id).Error; err != nil {
		return notFound(err)
	}
	return s.ai.TestConnection(ctx, &cfg)
}
