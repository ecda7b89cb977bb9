package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
	reviewService     *services.ReviewService
}

func NewSubmissionHandler(submissionService *services.SubmissionService, reviewService *services.ReviewService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		reviewService:     reviewService,
	}
}

// submitRequest accepts content either as a JSON string or as a JSON object.
type submitRequest struct {
	Content          json.RawMessage `json:"content" binding:"required"`
	TimeSpentMinutes *int            `json:"timeSpentMinutes"`
	TaskIndex        *int            `json:"taskIndex"`
}

func (r *submitRequest) rawContent() string {
	trimmed := bytes.TrimSpace(r.Content)
	var s string
	if len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	return string(trimmed)
}

type submissionResult struct {
	ID                 uint            `json:"id"`
	ProjectID          uint            `json:"projectId"`
	TaskIndex          *int            `json:"taskIndex"`
	Status             string          `json:"status"`
	TriageStatus       string          `json:"triageStatus"`
	ReviewState        string          `json:"reviewState"`
	AIScore            *float64        `json:"aiScore"`
	AIFeedback         *string         `json:"aiFeedback"`
	ConsistencyWarning bool            `json:"consistencyWarning"`
	PotentialEarning   decimal.Decimal `json:"potentialEarning"`
	EarnedAmount       decimal.Decimal `json:"earnedAmount"`
}

func newSubmissionResult(sub *models.Submission) submissionResult {
	return submissionResult{
		ID:                 sub.ID,
		ProjectID:          sub.ProjectID,
		TaskIndex:          sub.TaskIndex,
		Status:             sub.Status,
		TriageStatus:       sub.TriageStatus,
		ReviewState:        services.ReviewState(sub),
		AIScore:            sub.AIScore,
		AIFeedback:         sub.AIFeedback,
		ConsistencyWarning: sub.ConsistencyWarning,
		PotentialEarning:   sub.PotentialEarning,
		EarnedAmount:       sub.EarnedAmount,
	}
}

// Submit records an answer and returns it after triage.
// POST /api/project/:id/submit
func (h *SubmissionHandler) Submit(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if bytes.Equal(bytes.TrimSpace(req.Content), []byte("null")) {
		fail(c, &services.ValidationError{Field: "content", Reason: "required"})
		return
	}

	sub, err := h.submissionService.Submit(c.Request.Context(), &services.SubmitRequest{
		ProjectID:        projectID,
		UserID:           middleware.GetUserID(c),
		Content:          req.rawContent(),
		TaskIndex:        req.TaskIndex,
		TimeSpentMinutes: req.TimeSpentMinutes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"submission": newSubmissionResult(sub)})
}

// List
// GET /api/submissions
func (h *SubmissionHandler) List(c *gin.Context) {
	var req services.SubmissionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.submissionService.List(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// ListMine
// GET /api/my/submissions
func (h *SubmissionHandler) ListMine(c *gin.Context) {
	var req services.SubmissionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.UserID = middleware.GetUserID(c)

	page, err := h.submissionService.List(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// GetByID lets admins read any submission and freelancers read their own.
// GET /api/submissions/:id
func (h *SubmissionHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	sub, err := h.submissionService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if middleware.GetRole(c) != models.RoleAdmin && sub.UserID != middleware.GetUserID(c) {
		response.NotFound(c, "submission not found")
		return
	}
	response.Success(c, services.SubmissionView{Submission: *sub, ReviewState: services.ReviewState(sub)})
}

type reviewRequest struct {
	Status   string  `json:"status" binding:"required"`
	Feedback *string `json:"feedback"`
}

// Review
// POST /api/submission/:id/review
func (h *SubmissionHandler) Review(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sub, err := h.reviewService.Review(c.Request.Context(), id, middleware.GetUserID(c), req.Status, req.Feedback)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"submission": newSubmissionResult(sub)})
}

// BulkReview reviews every id independently and reports how many went through.
// POST /api/submissions/bulk-review
func (h *SubmissionHandler) BulkReview(c *gin.Context) {
	var req services.BulkReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.reviewService.BulkReview(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}
