package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/response"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &services.ValidationError{Field: "content", Reason: "required"}, http.StatusBadRequest},
		{"repeat", &services.RepeatSubmissionError{ProjectID: 1}, http.StatusBadRequest},
		{"insufficient", &services.InsufficientBalanceError{}, http.StatusBadRequest},
		{"quota", &services.QuotaExceededError{ProjectID: 1, Limit: 3}, http.StatusForbidden},
		{"already reviewed", &services.AlreadyReviewedError{Kind: "submission", ID: 1, Status: "Approved"}, http.StatusConflict},
		{"exhausted pool", services.ErrExhaustedPool, http.StatusConflict},
		{"wrapped exhausted pool", fmt.Errorf("assign: %w", services.ErrExhaustedPool), http.StatusConflict},
		{"not eligible", services.ErrNotEligible, http.StatusForbidden},
		{"inactive project", services.ErrProjectInactive, http.StatusForbidden},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"bad login", services.ErrInvalidLogin, http.StatusUnauthorized},
		{"app error passes through", response.NewTooManyRequests("slow down"), http.StatusTooManyRequests},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toAppError(tt.err).HTTPStatus; got != tt.want {
				t.Errorf("toAppError(%v) status = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestToAppError_HidesInternalMessage(t *testing.T) {
	appErr := toAppError(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	if appErr.Message != "internal server error" {
		t.Errorf("Message = %q, internal details leaked", appErr.Message)
	}
}
