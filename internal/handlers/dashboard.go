package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
	walletService    *services.WalletService
}

func NewDashboardHandler(db *gorm.DB, walletService *services.WalletService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: services.NewDashboardService(db),
		walletService:    walletService,
	}
}

// Admin returns marketplace statistics for a date range (default last 7 days).
// GET /api/dashboard/admin
func (h *DashboardHandler) Admin(c *gin.Context) {
	var req services.DashboardStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stats, err := h.dashboardService.Admin(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, stats)
}

// Freelancer
// GET /api/dashboard/freelancer
func (h *DashboardHandler) Freelancer(c *gin.Context) {
	stats, err := h.dashboardService.Freelancer(c.Request.Context(), middleware.GetUserID(c), h.walletService)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, stats)
}
