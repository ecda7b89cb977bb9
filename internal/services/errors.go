package services

import (
	"errors"
	"fmt"
)

var (
	// ErrExhaustedPool means every task pool entry of the project is already assigned.
	ErrExhaustedPool   = errors.New("all tasks in this project have been assigned")
	ErrProjectInactive = errors.New("project is not accepting submissions")
	ErrNotEligible     = errors.New("only accepted freelancers can do this")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidLogin    = errors.New("invalid username or password")
	ErrUserDisabled    = errors.New("user account is disabled")
	ErrUsernameTaken   = errors.New("username already exists")

	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrTriageDisabled sends every submission straight to manual review.
	ErrTriageDisabled = errors.New("AI triage is disabled")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type RepeatSubmissionError struct {
	ProjectID uint
}

func (e *RepeatSubmissionError) Error() string {
	return fmt.Sprintf("project %d does not accept repeat submissions", e.ProjectID)
}

type QuotaExceededError struct {
	ProjectID uint
	Limit     int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("project %d reached its submission limit of %d", e.ProjectID, e.Limit)
}

// AlreadyReviewedError is returned for any action on a record that reached a terminal state.
type AlreadyReviewedError struct {
	Kind   string
	ID     uint
	Status string
}

func (e *AlreadyReviewedError) Error() string {
	return fmt.Sprintf("%s %d is already %s", e.Kind, e.ID, e.Status)
}

type InsufficientBalanceError struct {
	Available string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %s available", e.Available)
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
