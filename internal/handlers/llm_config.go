package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
)

type LLMConfigHandler struct {
	llmConfigService *services.LLMConfigService
}

func NewLLMConfigHandler(llmConfigService *services.LLMConfigService) *LLMConfigHandler {
	return &LLMConfigHandler{llmConfigService: llmConfigService}
}

func (h *LLMConfigHandler) List(c *gin.Context) {
	var req services.LLMConfigListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.llmConfigService.List(&req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

func (h *LLMConfigHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	cfg, err := h.llmConfigService.GetByID(id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, cfg)
}

func (h *LLMConfigHandler) Create(c *gin.Context) {
	var req services.CreateLLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.llmConfigService.Create(&req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, cfg)
}

func (h *LLMConfigHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateLLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.llmConfigService.Update(id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, cfg)
}

func (h *LLMConfigHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.llmConfigService.Delete(id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "deleted"})
}

// Test sends a one-line prompt through the provider.
// POST /api/admin/llm-configs/:id/test
func (h *LLMConfigHandler) Test(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.llmConfigService.Test(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, err)
			return
		}
		response.Success(c, gin.H{"ok": false, "error": err.Error()})
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *LLMConfigHandler) Providers(c *gin.Context) {
	response.Success(c, services.LLMProviders)
}
