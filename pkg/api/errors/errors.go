// Package errors maps domain errors onto the moderation API's JSON
// envelope without leaking internals to callers.
package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tarqumi/agency-api/pkg/domain"
	"github.com/tarqumi/agency-api/pkg/models"
)

// ValidationError returns a generic validation error without exposing internal details
func ValidationError(c echo.Context, err error) error {
	c.Logger().Warnf("validation error on %s: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	c.Logger().Errorf("internal error on %s: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// NotFoundError returns a generic not found error
func NotFoundError(c echo.Context) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: "The requested resource was not found.",
	})
}

// DomainError translates a domain error into the matching HTTP response.
func DomainError(c echo.Context, err error) error {
	switch {
	case domain.IsNotFound(err):
		return NotFoundError(c)
	case domain.IsValidation(err):
		return ValidationError(c, err)
	case domain.IsRateLimited(err):
		return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:   "rate_limit_exceeded",
			Message: "Too many contact form submissions. Please wait a few minutes and try again.",
		})
	case domain.IsIPBlocked(err):
		return c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:   "forbidden",
			Message: "Submissions from this address are not accepted.",
		})
	case domain.IsInvalidTransition(err):
		return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "invalid_transition",
			Message: domain.GetErrorMessage(err),
		})
	case domain.IsConflict(err):
		return c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: domain.GetErrorMessage(err),
		})
	default:
		return InternalError(c, err)
	}
}
