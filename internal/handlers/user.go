package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

type userListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Username string `form:"username"`
	Role     string `form:"role"`
	Status   string `form:"status"`
	Tier     string `form:"tier"`
}

// List
// GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	var req userListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := h.db.Model(&models.User{})
	if req.Username != "" {
		query = query.Where("username LIKE ?", "%"+req.Username+"%")
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Tier != "" {
		query = query.Where("tier = ?", req.Tier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		fail(c, err)
		return
	}
	var users []models.User
	if err := query.Order("id ASC").Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).Find(&users).Error; err != nil {
		fail(c, err)
		return
	}

	response.Success(c, response.Page[models.User]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: users})
}

type UpdateUserRequest struct {
	Role        *string `json:"role"`
	Status      *string `json:"status"`
	SkillDomain *string `json:"skill_domain"`
	IsActive    *bool   `json:"is_active"`
	Nickname    *string `json:"nickname"`
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Update changes role, status or activation. Deactivating a user revokes their refresh tokens.
// PUT /api/admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if id == middleware.GetUserID(c) {
		response.BadRequest(c, "cannot modify your own account")
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		response.NotFound(c, "user not found")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.Role != nil {
		if !oneOf(*req.Role, models.RoleApplicant, models.RoleFreelancer, models.RoleAdmin) {
			response.BadRequest(c, "invalid role")
			return
		}
		updates["role"] = *req.Role
	}
	if req.Status != nil {
		if !oneOf(*req.Status, models.UserStatusNew, models.UserStatusPending, models.UserStatusAccepted, models.UserStatusRejected) {
			response.BadRequest(c, "invalid status")
			return
		}
		updates["status"] = *req.Status
	}
	if req.SkillDomain != nil {
		domain := strings.ToUpper(*req.SkillDomain)
		if !oneOf(domain, models.ProjectDomains...) {
			response.BadRequest(c, "invalid skill_domain")
			return
		}
		updates["skill_domain"] = domain
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}

	if len(updates) == 0 {
		response.BadRequest(c, "no fields to update")
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		if req.IsActive != nil && !*req.IsActive {
			return tx.Model(&models.RefreshToken{}).
				Where("user_id = ? AND revoked_at IS NULL", user.ID).
				Update("revoked_at", time.Now()).Error
		}
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.db.First(&user, id)
	response.Success(c, user)
}

// Delete soft-deletes a user. Their submissions and ledger rows are kept.
// DELETE /api/admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if id == middleware.GetUserID(c) {
		response.BadRequest(c, "cannot delete your own account")
		return
	}

	res := h.db.Delete(&models.User{}, id)
	if res.Error != nil {
		fail(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		response.NotFound(c, "user not found")
		return
	}
	response.Success(c, gin.H{"message": "user deleted"})
}
