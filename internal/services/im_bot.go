package services

import (
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
)

type IMBotService struct {
	db *gorm.DB
}

func NewIMBotService(db *gorm.DB) *IMBotService {
	return &IMBotService{db: db}
}

type IMBotListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Name     string `form:"name"`
	Type     string `form:"type"`
	IsActive *bool  `form:"is_active"`
}

type CreateIMBotRequest struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type" binding:"required,oneof=wechat_work dingtalk feishu slack webhook"`
	Webhook       string `json:"webhook" binding:"required,url"`
	Secret        string `json:"secret"`
	IsActive      bool   `json:"is_active"`
	DigestEnabled bool   `json:"digest_enabled"`
	PayoutNotify  bool   `json:"payout_notify"`
}

type UpdateIMBotRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type" binding:"omitempty,oneof=wechat_work dingtalk feishu slack webhook"`
	Webhook       string `json:"webhook" binding:"omitempty,url"`
	Secret        string `json:"secret"`
	IsActive      *bool  `json:"is_active"`
	DigestEnabled *bool  `json:"digest_enabled"`
	PayoutNotify  *bool  `json:"payout_notify"`
}

func (s *IMBotService) List(req *IMBotListRequest) (*response.Page[models.IMBot], error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.Model(&models.IMBot{})
	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var bots []models.IMBot
	if err := query.Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).Order("created_at DESC").Find(&bots).Error; err != nil {
		return nil, err
	}
	return &response.Page[models.IMBot]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: bots}, nil
}

func (s *IMBotService) GetByID(id uint) (*models.IMBot, error) {
	var bot models.IMBot
	if err := s.db.First(&bot, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &bot, nil
}

func (s *IMBotService) Create(req *CreateIMBotRequest) (*models.IMBot, error) {
	bot := models.IMBot{
		Name:          req.Name,
		Type:          req.Type,
		Webhook:       req.Webhook,
		Secret:        req.Secret,
		IsActive:      req.IsActive,
		DigestEnabled: req.DigestEnabled,
		PayoutNotify:  req.PayoutNotify,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&bot).Error; err != nil {
			return err
		}
		// is_active defaults to true in the schema, so false must be written explicitly.
		if !req.IsActive {
			return tx.Model(&bot).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (s *IMBotService) Update(id uint, req *UpdateIMBotRequest) (*models.IMBot, error) {
	bot, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Type != "" {
		updates["type"] = req.Type
	}
	if req.Webhook != "" {
		updates["webhook"] = req.Webhook
	}
	if req.Secret != "" {
		updates["secret"] = req.Secret
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.DigestEnabled != nil {
		updates["digest_enabled"] = *req.DigestEnabled
	}
	if req.PayoutNotify != nil {
		updates["payout_notify"] = *req.PayoutNotify
	}

	if len(updates) > 0 {
		if err := s.db.Model(bot).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(id)
}

func (s *IMBotService) Delete(id uint) error {
	res := s.db.Delete(&models.IMBot{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
