package models

import (
	"time"

	"gorm.io/datatypes"
)

// QualificationAttempt holds an applicant's test answers until an admin decides.
type QualificationAttempt struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	SkillDomain string         `gorm:"size:20" json:"skill_domain"`
	Answers     datatypes.JSON `json:"answers"`
	AIScore     *float64       `json:"ai_score"`
	AIFeedback  *string        `gorm:"type:text" json:"ai_feedback"`
	Status      string         `gorm:"size:20;default:Pending;index" json:"status"` // Pending, Accepted, Rejected
	ReviewedBy  *uint          `json:"reviewed_by"`
	ReviewedAt  *time.Time     `json:"reviewed_at"`
	CreatedAt   time.Time      `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (QualificationAttempt) TableName() string { return "qualification_attempts" }
