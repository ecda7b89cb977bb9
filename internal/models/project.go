package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TaskTypeTextAnnotation = "TEXT_ANNOTATION"
	TaskTypeImageLabeling  = "IMAGE_LABELING"
	TaskTypeComparison     = "COMPARISON"
	TaskTypeClassification = "CLASSIFICATION"
)

const (
	PaymentPerTask = "PER_TASK"
	PaymentHourly  = "HOURLY"
)

var ProjectDomains = []string{"GENERAL", "CODING", "MEDICAL", "LEGAL", "FINANCE", "LANGUAGE"}

// Project is an annotation project published by an admin.
type Project struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	Title               string          `gorm:"size:200;not null" json:"title"`
	Description         string          `gorm:"type:text" json:"description"`
	TaskType            string          `gorm:"size:30;not null" json:"task_type"`
	ProjectDomain       string          `gorm:"size:20;default:GENERAL;index" json:"project_domain"`
	PaymentType         string          `gorm:"size:20;not null;default:PER_TASK" json:"payment_type"`
	PayRate             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"pay_rate"`
	IsRepeatable        bool            `gorm:"default:false" json:"is_repeatable"`
	MaxTotalSubmissions *int            `json:"max_total_submissions"`
	TaskContent         string          `gorm:"type:text" json:"task_content"`   // Legacy single task, used when the pool is empty
	TaskImageURL        string          `gorm:"size:1000" json:"task_image_url"` // Legacy single task image
	IsActive            bool            `gorm:"default:true;index" json:"is_active"`
	CreatedBy           uint            `json:"created_by"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	DeletedAt           gorm.DeletedAt  `gorm:"index" json:"-"`

	TaskPool []TaskPoolEntry `gorm:"foreignKey:ProjectID" json:"task_pool,omitempty"`
}

func (Project) TableName() string { return "projects" }

// PotentialEarning is what a submission would earn once approved.
func (p *Project) PotentialEarning(timeSpentMinutes *int) decimal.Decimal {
	if p.PaymentType == PaymentHourly {
		if timeSpentMinutes == nil || *timeSpentMinutes <= 0 {
			return decimal.Zero
		}
		return p.PayRate.Mul(decimal.NewFromInt(int64(*timeSpentMinutes))).
			Div(decimal.NewFromInt(60)).
			Round(2)
	}
	return p.PayRate
}

// TaskPoolEntry is one unit of work inside a project's pool.
type TaskPoolEntry struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProjectID  uint       `gorm:"uniqueIndex:idx_pool_position;not null" json:"project_id"`
	Position   int        `gorm:"uniqueIndex:idx_pool_position;not null" json:"position"`
	Content    string     `gorm:"type:text" json:"content"`
	ImageURL   string     `gorm:"size:1000" json:"image_url,omitempty"`
	IsAssigned bool       `gorm:"default:false;index" json:"is_assigned"`
	AssignedTo *uint      `gorm:"index" json:"assigned_to,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (TaskPoolEntry) TableName() string { return "task_pool_entries" }
