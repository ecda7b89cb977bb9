package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
)

type QualificationHandler struct {
	qualificationService *services.QualificationService
}

func NewQualificationHandler(qualificationService *services.QualificationService) *QualificationHandler {
	return &QualificationHandler{qualificationService: qualificationService}
}

// Submit
// POST /api/applicant/qualification
func (h *QualificationHandler) Submit(c *gin.Context) {
	var req services.QualificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	attempt, err := h.qualificationService.Submit(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, attempt)
}

// List
// GET /api/admin/applicants
func (h *QualificationHandler) List(c *gin.Context) {
	var req services.ApplicantListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.qualificationService.List(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

type reviewApplicantRequest struct {
	Status string `json:"status" binding:"required"`
}

// Review
// POST /api/admin/applicants/:id/review
func (h *QualificationHandler) Review(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reviewApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	attempt, err := h.qualificationService.Review(c.Request.Context(), id, middleware.GetUserID(c), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, attempt)
}
