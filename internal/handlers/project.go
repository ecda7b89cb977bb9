package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
)

type ProjectHandler struct {
	projectService    *services.ProjectService
	assignmentService *services.AssignmentService
}

func NewProjectHandler(projectService *services.ProjectService, assignmentService *services.AssignmentService) *ProjectHandler {
	return &ProjectHandler{
		projectService:    projectService,
		assignmentService: assignmentService,
	}
}

type projectWithTask struct {
	Project *models.Project        `json:"project"`
	Task    *services.AssignedTask `json:"task"`
}

// GetWithTask returns the project and the task pool entry the caller should work on.
// Repeated calls return the same entry until it has been submitted.
// GET /api/project/:id
func (h *ProjectHandler) GetWithTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := h.assignmentService.AssignNextTask(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, projectWithTask{Project: project, Task: task})
}

// ListAvailable lists the active projects the freelancer may work on.
// GET /api/projects
func (h *ProjectHandler) ListAvailable(c *gin.Context) {
	projects, err := h.projectService.ListForFreelancer(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, projects)
}

// List returns paginated projects
// GET /api/admin/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.projectService.List(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, page)
}

// GetByID
// GET /api/admin/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, project)
}

// Create
// POST /api/admin/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, project)
}

// Update
// PUT /api/admin/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, project)
}

// Deactivate stops new assignments and submissions; pending reviews are unaffected.
// POST /api/admin/projects/:id/deactivate
func (h *ProjectHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.Deactivate(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "project deactivated"})
}

// Delete
// DELETE /api/admin/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "project deleted"})
}

type appendPoolRequest struct {
	Entries []services.TaskPoolInput `json:"entries" binding:"required,min=1,dive"`
}

// AppendTaskPool
// POST /api/admin/projects/:id/task-pool
func (h *ProjectHandler) AppendTaskPool(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req appendPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	added, err := h.projectService.AppendTaskPool(c.Request.Context(), id, req.Entries)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"added": added})
}

// PoolStats
// GET /api/admin/projects/:id/pool-stats
func (h *ProjectHandler) PoolStats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	stats, err := h.assignmentService.PoolStats(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, stats)
}

// Options lists the accepted task and payment types for the admin form.
// GET /api/admin/projects/options
func (h *ProjectHandler) Options(c *gin.Context) {
	response.Success(c, gin.H{
		"task_types":    services.TaskTypes,
		"payment_types": services.PaymentTypes,
	})
}
