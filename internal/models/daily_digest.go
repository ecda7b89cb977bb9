package models

import "time"

// DailyDigest is the stored snapshot sent to admins once per workday.
type DailyDigest struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	DigestDate     time.Time  `gorm:"uniqueIndex;not null" json:"digest_date"`
	NewSubmissions int64      `json:"new_submissions"`
	AutoApproved   int64      `json:"auto_approved"`
	ManualApproved int64      `json:"manual_approved"`
	Rejected       int64      `json:"rejected"`
	WaitingReview  int64      `json:"waiting_review"`
	TriageFailures int64      `json:"triage_failures"`
	PendingPayouts int64      `json:"pending_payouts"`
	PendingAmount  string     `gorm:"size:32" json:"pending_amount"`
	NewApplicants  int64      `json:"new_applicants"`
	NotifiedAt     *time.Time `json:"notified_at"`
	NotifyError    string     `gorm:"type:text" json:"notify_error"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (DailyDigest) TableName() string { return "daily_digests" }
