package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/services"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// CheckHealth reports database, queue and SSE state. It answers 503 when the database is unreachable.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	code := http.StatusOK

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if q := services.GetTaskQueue(); q != nil && q.IsAsync() {
		queueMode = "async (Redis)"
	}

	var waitingReview, unscored int64
	if dbStatus == "ok" {
		h.db.Model(&models.Submission{}).Where("status = ?", models.SubmissionPending).Count(&waitingReview)
		h.db.Model(&models.Submission{}).
			Where("status = ? AND ai_score IS NULL AND triage_attempts > 0", models.SubmissionPending).
			Count(&unscored)
	}

	c.JSON(code, gin.H{
		"status":  overall,
		"service": "taskhive",
		"components": gin.H{
			"database":       dbStatus,
			"queue_mode":     queueMode,
			"sse_clients":    services.GetSSEHub().ClientCount(),
			"waiting_review": waitingReview,
			"unscored":       unscored,
		},
	})
}
