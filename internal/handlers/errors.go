package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/logger"
	"github.com/taskhive/backend/pkg/response"
)

// toAppError maps service errors onto HTTP status codes. Unknown errors become 500.
func toAppError(err error) *response.AppError {
	var (
		appErr       *response.AppError
		validation   *services.ValidationError
		repeat       *services.RepeatSubmissionError
		quota        *services.QuotaExceededError
		reviewed     *services.AlreadyReviewedError
		insufficient *services.InsufficientBalanceError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &validation), errors.As(err, &repeat), errors.As(err, &insufficient):
		return response.NewBadRequest(err.Error())
	case errors.As(err, &quota):
		return response.NewForbidden(err.Error())
	case errors.As(err, &reviewed):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrExhaustedPool), errors.Is(err, services.ErrUsernameTaken):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrNotEligible), errors.Is(err, services.ErrProjectInactive),
		errors.Is(err, services.ErrUserDisabled):
		return response.NewForbidden(err.Error())
	case errors.Is(err, services.ErrNotFound):
		return response.NewNotFound(err.Error())
	case errors.Is(err, services.ErrInvalidLogin), errors.Is(err, services.ErrInvalidRefreshToken):
		return response.NewUnauthorized(err.Error())
	default:
		return response.NewServerError("internal server error")
	}
}

// fail writes err through the response envelope and logs anything that maps to 500.
func fail(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	response.Error(c, appErr)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+param)
		return 0, false
	}
	return uint(id), true
}
