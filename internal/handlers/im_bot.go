package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
)

type IMBotHandler struct {
	imBotService        *services.IMBotService
	notificationService *services.NotificationService
}

func NewIMBotHandler(db *gorm.DB, notificationService *services.NotificationService) *IMBotHandler {
	return &IMBotHandler{
		imBotService:        services.NewIMBotService(db),
		notificationService: notificationService,
	}
}

func (h *IMBotHandler) List(c *gin.Context) {
	var req services.IMBotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.imBotService.List(&req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

func (h *IMBotHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	bot, err := h.imBotService.GetByID(id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, bot)
}

func (h *IMBotHandler) Create(c *gin.Context) {
	var req services.CreateIMBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bot, err := h.imBotService.Create(&req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, bot)
}

func (h *IMBotHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateIMBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bot, err := h.imBotService.Update(id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, bot)
}

func (h *IMBotHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.imBotService.Delete(id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "bot deleted"})
}

// Test posts a test message to the bot's webhook.
// POST /api/admin/im-bots/:id/test
func (h *IMBotHandler) Test(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.SendTest(id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "test message sent"})
}

func (h *IMBotHandler) Types(c *gin.Context) {
	response.Success(c, services.IMBotTypes)
}
