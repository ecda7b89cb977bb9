package services

import (
	"context"
	"errors"
	"time"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/logger"
	"gorm.io/gorm"
)

// casBatch is how many free entries are fetched per round of compare-and-set attempts.
const casBatch = 8

// AssignedTask is the unit of work handed to a freelancer.
type AssignedTask struct {
	ProjectID uint   `json:"project_id"`
	TaskIndex *int   `json:"task_index"`
	Content   string `json:"content"`
	ImageURL  string `json:"image_url,omitempty"`
	Legacy    bool   `json:"legacy"`
	Resumed   bool   `json:"resumed"` // same entry returned again because it has no submission yet
}

type AssignmentService struct {
	db *gorm.DB
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{db: db}
}

// AssignNextTask reserves the first free pool entry for the user, or returns the
// entry they already hold. Projects without a pool serve their legacy task content.
func (s *AssignmentService) AssignNextTask(ctx context.Context, projectID, userID uint) (*AssignedTask, error) {
	db := s.db.WithContext(ctx)

	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		return nil, notFound(err)
	}
	if !project.IsActive {
		return nil, ErrProjectInactive
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil, notFound(err)
	}
	if !user.CanSubmit() {
		return nil, ErrNotEligible
	}

	var poolSize int64
	if err := db.Model(&models.TaskPoolEntry{}).Where("project_id = ?", projectID).Count(&poolSize).Error; err != nil {
		return nil, err
	}
	if poolSize == 0 {
		return &AssignedTask{
			ProjectID: project.ID,
			Content:   project.TaskContent,
			ImageURL:  project.TaskImageURL,
			Legacy:    true,
		}, nil
	}

	if held, err := s.heldEntry(db, projectID, userID); err != nil {
		return nil, err
	} else if held != nil {
		return entryTask(held, true), nil
	}

	// Do not burn pool entries for someone who could not submit anyway.
	if err := checkSubmissionLimits(db, &project, userID); err != nil {
		return nil, err
	}

	for {
		var candidates []models.TaskPoolEntry
		if err := db.Where("project_id = ? AND is_assigned = ?", projectID, false).
			Order("position ASC").Limit(casBatch).Find(&candidates).Error; err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			logger.Warnf("[Assignment] Project %d pool exhausted (user %d)", projectID, userID)
			return nil, ErrExhaustedPool
		}

		for i := range candidates {
			entry := &candidates[i]
			now := time.Now()
			res := db.Model(&models.TaskPoolEntry{}).
				Where("id = ? AND is_assigned = ?", entry.ID, false).
				Updates(map[string]interface{}{
					"is_assigned": true,
					"assigned_to": userID,
					"assigned_at": now,
				})
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 1 {
				logger.Infof("[Assignment] Project %d entry #%d assigned to user %d", projectID, entry.Position, userID)
				return entryTask(entry, false), nil
			}
			// Lost the race for this entry; try the next one.
		}
	}
}

// heldEntry finds an entry assigned to the user that they have not submitted yet.
func (s *AssignmentService) heldEntry(db *gorm.DB, projectID, userID uint) (*models.TaskPoolEntry, error) {
	submitted := db.Model(&models.Submission{}).Select("task_index").
		Where("project_id = ? AND user_id = ? AND task_index IS NOT NULL", projectID, userID)

	var entry models.TaskPoolEntry
	err := db.Where("project_id = ? AND assigned_to = ? AND is_assigned = ?", projectID, userID, true).
		Where("position NOT IN (?)", submitted).
		Order("position ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func entryTask(entry *models.TaskPoolEntry, resumed bool) *AssignedTask {
	idx := entry.Position
	return &AssignedTask{
		ProjectID: entry.ProjectID,
		TaskIndex: &idx,
		Content:   entry.Content,
		ImageURL:  entry.ImageURL,
		Resumed:   resumed,
	}
}

// PoolStats summarises a project's pool for admins.
type PoolStats struct {
	Total    int64 `json:"total"`
	Assigned int64 `json:"assigned"`
	Free     int64 `json:"free"`
}

func (s *AssignmentService) PoolStats(ctx context.Context, projectID uint) (*PoolStats, error) {
	var stats PoolStats
	db := s.db.WithContext(ctx).Model(&models.TaskPoolEntry{})
	if err := db.Where("project_id = ?", projectID).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.TaskPoolEntry{}).
		Where("project_id = ? AND is_assigned = ?", projectID, true).Count(&stats.Assigned).Error; err != nil {
		return nil, err
	}
	stats.Free = stats.Total - stats.Assigned
	return &stats, nil
}
