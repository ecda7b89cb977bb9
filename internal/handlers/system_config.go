package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
)

const maskedSecret = "******"

var secretSettings = map[string]bool{"ldap_bind_password": true}

type SystemConfigHandler struct {
	configService *services.SystemConfigService
	digestService *services.DigestService
}

func NewSystemConfigHandler(db *gorm.DB, digestService *services.DigestService) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: services.NewSystemConfigService(db),
		digestService: digestService,
	}
}

// GetGroup lists the settings of one group with secrets masked.
// GET /api/admin/settings/:group
func (h *SystemConfigHandler) GetGroup(c *gin.Context) {
	configs, err := h.configService.GetByGroup(c.Param("group"))
	if err != nil {
		fail(c, err)
		return
	}
	if len(configs) == 0 {
		response.NotFound(c, "unknown settings group")
		return
	}
	for i := range configs {
		if secretSettings[configs[i].Key] && configs[i].Value != "" {
			configs[i].Value = maskedSecret
		}
	}
	response.Success(c, configs)
}

// UpdateGroup
// PUT /api/admin/settings/:group
func (h *SystemConfigHandler) UpdateGroup(c *gin.Context) {
	group := c.Param("group")

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	for k, v := range values {
		if secretSettings[k] && v == maskedSecret {
			delete(values, k)
			continue
		}
		if err := validateSetting(k, v); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	if err := h.configService.UpdateGroup(group, values); err != nil {
		fail(c, err)
		return
	}
	if group == "digest" && h.digestService != nil {
		h.digestService.Reschedule()
	}
	h.GetGroup(c)
}

func validateSetting(key, value string) error {
	switch key {
	case "daily_digest_time":
		if _, err := time.Parse("15:04", value); err != nil {
			return &services.ValidationError{Field: key, Reason: "must be HH:MM"}
		}
	case "triage_auto_approve_threshold":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 || v > 100 {
			return &services.ValidationError{Field: key, Reason: "must be a number between 0 and 100"}
		}
	case "log_retention_days", "ldap_port":
		v, err := strconv.Atoi(value)
		if err != nil || v <= 0 {
			return &services.ValidationError{Field: key, Reason: "must be a positive integer"}
		}
	case "ldap_enabled", "ldap_use_ssl", "triage_enabled", "daily_digest_enabled":
		if _, err := strconv.ParseBool(value); err != nil {
			return &services.ValidationError{Field: key, Reason: "must be true or false"}
		}
	}
	return nil
}
