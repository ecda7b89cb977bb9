package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	SubmissionPending  = "Pending"
	SubmissionApproved = "Approved"
	SubmissionRejected = "Rejected"
)

const (
	TriagePending  = "PENDING"
	TriageApproved = "APPROVED"
	TriageRejected = "REJECTED"
)

// Submission is one freelancer answer to a project task.
type Submission struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	ProjectID          uint            `gorm:"index;not null" json:"project_id"`
	UserID             uint            `gorm:"index;not null" json:"user_id"`
	TaskIndex          *int            `json:"task_index"`
	Content            datatypes.JSON  `json:"content"`
	ContentHash        string          `gorm:"size:64;index" json:"-"`
	Status             string          `gorm:"size:20;default:Pending;index" json:"status"`
	TriageStatus       string          `gorm:"size:20;default:PENDING;index" json:"triage_status"`
	AIScore            *float64        `json:"ai_score"`
	AIFeedback         *string         `gorm:"type:text" json:"ai_feedback"`
	ConsistencyWarning bool            `gorm:"default:false" json:"consistency_warning"`
	TriageAttempts     int             `gorm:"default:0" json:"triage_attempts"`
	TriageError        string          `gorm:"type:text" json:"triage_error,omitempty"`
	TimeSpentMinutes   *int            `json:"time_spent_minutes"`
	PotentialEarning   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"potential_earning"`
	EarnedAmount       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"earned_amount"`
	AdminFeedback      *string         `gorm:"type:text" json:"admin_feedback"`
	ReviewedBy         *uint           `json:"reviewed_by"`
	ReviewedAt         *time.Time      `json:"reviewed_at"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Submission) TableName() string { return "submissions" }

// IsTerminal reports whether the submission reached Approved or Rejected.
func (s *Submission) IsTerminal() bool {
	return s.Status == SubmissionApproved || s.Status == SubmissionRejected
}
