package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	TaskTypes    = []string{models.TaskTypeTextAnnotation, models.TaskTypeImageLabeling, models.TaskTypeComparison, models.TaskTypeClassification}
	PaymentTypes = []string{models.PaymentPerTask, models.PaymentHourly}
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectListRequest struct {
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
	Title         string `form:"title"`
	TaskType      string `form:"task_type"`
	ProjectDomain string `form:"project_domain"`
	IsActive      *bool  `form:"is_active"`
}

type TaskPoolInput struct {
	Content  string `json:"content" yaml:"content" binding:"required"`
	ImageURL string `json:"image_url" yaml:"image_url"`
}

type CreateProjectRequest struct {
	Title               string          `json:"title" binding:"required"`
	Description         string          `json:"description"`
	TaskType            string          `json:"task_type" binding:"required"`
	ProjectDomain       string          `json:"project_domain"`
	PaymentType         string          `json:"payment_type"`
	PayRate             decimal.Decimal `json:"pay_rate"`
	IsRepeatable        bool            `json:"is_repeatable"`
	MaxTotalSubmissions *int            `json:"max_total_submissions"`
	TaskContent         string          `json:"task_content"`
	TaskImageURL        string          `json:"task_image_url"`
	TaskPool            []TaskPoolInput `json:"task_pool"`
}

type UpdateProjectRequest struct {
	Title               string           `json:"title"`
	Description         *string          `json:"description"`
	ProjectDomain       string           `json:"project_domain"`
	PayRate             *decimal.Decimal `json:"pay_rate"`
	IsRepeatable        *bool            `json:"is_repeatable"`
	MaxTotalSubmissions *int             `json:"max_total_submissions"`
	ClearMaxSubmissions bool             `json:"clear_max_total_submissions"`
	TaskContent         *string          `json:"task_content"`
	TaskImageURL        *string          `json:"task_image_url"`
	IsActive            *bool            `json:"is_active"`
}

// ProjectSummary is a project plus pool counters, used in listings.
type ProjectSummary struct {
	models.Project
	PoolTotal       int64 `json:"pool_total"`
	PoolAssigned    int64 `json:"pool_assigned"`
	SubmissionCount int64 `json:"submission_count"`
}

func (s *ProjectService) List(ctx context.Context, req *ProjectListRequest) (*response.Page[ProjectSummary], error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Project{})
	if req.Title != "" {
		query = query.Where("title LIKE ?", "%"+req.Title+"%")
	}
	if req.TaskType != "" {
		query = query.Where("task_type = ?", req.TaskType)
	}
	if req.ProjectDomain != "" {
		query = query.Where("project_domain = ?", req.ProjectDomain)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var projects []models.Project
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).
		Find(&projects).Error; err != nil {
		return nil, err
	}

	items, err := s.summarise(ctx, projects)
	if err != nil {
		return nil, err
	}
	return &response.Page[ProjectSummary]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// ListForFreelancer returns the active projects a freelancer can work on: their skill domain plus GENERAL.
func (s *ProjectService) ListForFreelancer(ctx context.Context, userID uint) ([]ProjectSummary, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFound(err)
	}
	if !user.CanSubmit() {
		return nil, ErrNotEligible
	}

	domains := []string{"GENERAL"}
	if user.SkillDomain != "" && user.SkillDomain != "GENERAL" {
		domains = append(domains, user.SkillDomain)
	}

	var projects []models.Project
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND project_domain IN ?", true, domains).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return s.summarise(ctx, projects)
}

func (s *ProjectService) summarise(ctx context.Context, projects []models.Project) ([]ProjectSummary, error) {
	items := make([]ProjectSummary, 0, len(projects))
	if len(projects) == 0 {
		return items, nil
	}

	ids := make([]uint, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	type row struct {
		ProjectID uint
		Total     int64
		Assigned  int64
	}
	var pools []row
	if err := s.db.WithContext(ctx).Model(&models.TaskPoolEntry{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN is_assigned THEN 1 ELSE 0 END) AS assigned").
		Where("project_id IN ?", ids).Group("project_id").Scan(&pools).Error; err != nil {
		return nil, err
	}
	type countRow struct {
		ProjectID uint
		Count     int64
	}
	var subs []countRow
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Select("project_id, COUNT(*) AS count").
		Where("project_id IN ?", ids).Group("project_id").Scan(&subs).Error; err != nil {
		return nil, err
	}

	poolBy := make(map[uint]row, len(pools))
	for _, p := range pools {
		poolBy[p.ProjectID] = p
	}
	subBy := make(map[uint]int64, len(subs))
	for _, c := range subs {
		subBy[c.ProjectID] = c.Count
	}

	for _, p := range projects {
		items = append(items, ProjectSummary{
			Project:         p,
			PoolTotal:       poolBy[p.ID].Total,
			PoolAssigned:    poolBy[p.ID].Assigned,
			SubmissionCount: subBy[p.ID],
		})
	}
	return items, nil
}

func (s *ProjectService) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

func validateProject(taskType, paymentType, domain string, payRate decimal.Decimal, maxTotal *int) error {
	if !contains(TaskTypes, taskType) {
		return &ValidationError{Field: "task_type", Reason: "must be one of " + strings.Join(TaskTypes, ", ")}
	}
	if !contains(PaymentTypes, paymentType) {
		return &ValidationError{Field: "payment_type", Reason: "must be PER_TASK or HOURLY"}
	}
	if !contains(models.ProjectDomains, domain) {
		return &ValidationError{Field: "project_domain", Reason: "unknown domain"}
	}
	if !payRate.IsPositive() {
		return &ValidationError{Field: "pay_rate", Reason: "must be positive"}
	}
	if maxTotal != nil && *maxTotal < 1 {
		return &ValidationError{Field: "max_total_submissions", Reason: "must be at least 1"}
	}
	return nil
}

func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest, userID uint) (*models.Project, error) {
	if req.PaymentType == "" {
		req.PaymentType = models.PaymentPerTask
	}
	if req.ProjectDomain == "" {
		req.ProjectDomain = "GENERAL"
	}
	if err := validateProject(req.TaskType, req.PaymentType, req.ProjectDomain, req.PayRate, req.MaxTotalSubmissions); err != nil {
		return nil, err
	}
	if len(req.TaskPool) == 0 && strings.TrimSpace(req.TaskContent) == "" {
		return nil, &ValidationError{Field: "task_content", Reason: "required when no task pool is given"}
	}

	project := models.Project{
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		TaskType:            req.TaskType,
		ProjectDomain:       req.ProjectDomain,
		PaymentType:         req.PaymentType,
		PayRate:             req.PayRate.Round(2),
		IsRepeatable:        req.IsRepeatable,
		MaxTotalSubmissions: req.MaxTotalSubmissions,
		TaskContent:         req.TaskContent,
		TaskImageURL:        req.TaskImageURL,
		IsActive:            true,
		CreatedBy:           userID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		_, err := appendPool(tx, project.ID, req.TaskPool)
		return err
	})
	if err != nil {
		return nil, err
	}

	LogInfo(LogModuleProject, "Create", "Created project: "+project.Title, &userID, "", "", map[string]interface{}{
		"project_id": project.ID,
		"pool_size":  len(req.TaskPool),
	})
	return &project, nil
}

// Update changes editable fields. Task type and payment type are fixed once created since
// existing submissions and earnings depend on them.
func (s *ProjectService) Update(ctx context.Context, id uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != "" {
		updates["title"] = strings.TrimSpace(req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ProjectDomain != "" {
		if !contains(models.ProjectDomains, req.ProjectDomain) {
			return nil, &ValidationError{Field: "project_domain", Reason: "unknown domain"}
		}
		updates["project_domain"] = req.ProjectDomain
	}
	if req.PayRate != nil {
		if !req.PayRate.IsPositive() {
			return nil, &ValidationError{Field: "pay_rate", Reason: "must be positive"}
		}
		updates["pay_rate"] = req.PayRate.Round(2)
	}
	if req.IsRepeatable != nil {
		updates["is_repeatable"] = *req.IsRepeatable
	}
	if req.ClearMaxSubmissions {
		updates["max_total_submissions"] = nil
	} else if req.MaxTotalSubmissions != nil {
		if *req.MaxTotalSubmissions < 1 {
			return nil, &ValidationError{Field: "max_total_submissions", Reason: "must be at least 1"}
		}
		updates["max_total_submissions"] = *req.MaxTotalSubmissions
	}
	if req.TaskContent != nil {
		updates["task_content"] = *req.TaskContent
	}
	if req.TaskImageURL != nil {
		updates["task_image_url"] = *req.TaskImageURL
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

// Deactivate stops new assignments and submissions; pending reviews continue.
func (s *ProjectService) Deactivate(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete soft-deletes the project. Submissions keep pointing at it.
func (s *ProjectService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Project{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTaskPool adds entries after the current last position and returns how many were added.
func (s *ProjectService) AppendTaskPool(ctx context.Context, projectID uint, entries []TaskPoolInput) (int, error) {
	if len(entries) == 0 {
		return 0, &ValidationError{Field: "entries", Reason: "at least one entry required"}
	}

	var added int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&models.Project{}, projectID).Error; err != nil {
			return notFound(err)
		}
		n, err := appendPool(tx, projectID, entries)
		added = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func appendPool(tx *gorm.DB, projectID uint, entries []TaskPoolInput) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	var next int
	if err := tx.Model(&models.TaskPoolEntry{}).Where("project_id = ?", projectID).
		Select("COALESCE(MAX(position) + 1, 0)").Scan(&next).Error; err != nil {
		return 0, err
	}

	rows := make([]models.TaskPoolEntry, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Content) == "" {
			return 0, &ValidationError{Field: "content", Reason: "empty task pool entry"}
		}
		rows = append(rows, models.TaskPoolEntry{
			ProjectID: projectID,
			Position:  next + i,
			Content:   e.Content,
			ImageURL:  e.ImageURL,
		})
	}
	if err := tx.CreateInBatches(rows, 100).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}
