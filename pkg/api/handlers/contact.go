package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/tarqumi/agency-api/pkg/api/errors"
	"github.com/tarqumi/agency-api/pkg/contact"
	"github.com/tarqumi/agency-api/pkg/models"
)

// ContactHandler handles the public contact endpoint and the staff
// moderation surface.
type ContactHandler struct {
	service   *contact.Service
	validator *validator.Validate
}

// NewContactHandler creates a new contact handler
func NewContactHandler(service *contact.Service) *ContactHandler {
	return &ContactHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Submit handles POST /contact. The response is a uniform acknowledgment:
// spam-classified submissions get the same 201 as clean ones so callers
// learn nothing about the classification.
func (h *ContactHandler) Submit(c echo.Context) error {
	var req models.SubmitContactRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ip := c.RealIP()
	if ip == "" {
		ip = c.Request().RemoteAddr
	}
	userAgent := c.Request().UserAgent()

	sub, err := h.service.Submit(c.Request().Context(), req, ip, userAgent)
	if err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "Thank you for your message. We will get back to you soon.",
		Data: map[string]interface{}{
			"id":           sub.ID,
			"submitted_at": sub.SubmittedAt.Format(time.RFC3339),
		},
	})
}

// List handles GET /admin/contact-submissions
func (h *ContactHandler) List(c echo.Context) error {
	var filters models.SubmissionFilters
	if err := c.Bind(&filters); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(filters); err != nil {
		return errors.ValidationError(c, err)
	}

	list, err := h.service.List(c.Request().Context(), filters)
	if err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    list.Submissions,
		Meta:    &list.Meta,
	})
}

// Get handles GET /admin/contact-submissions/:id. Fetching a new
// submission marks it read.
func (h *ContactHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	var readBy *uint
	if userID, ok := c.Get("user_id").(uint); ok {
		readBy = &userID
	}

	sub, err := h.service.Get(c.Request().Context(), id, readBy)
	if err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    sub,
	})
}

// UpdateStatus handles PATCH /admin/contact-submissions/:id/status
func (h *ContactHandler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	sub, err := h.service.UpdateStatus(c.Request().Context(), id, req.Status, req.AdminNotes)
	if err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    sub,
		Message: "Status updated",
	})
}

// MarkSpam handles POST /admin/contact-submissions/:id/spam
func (h *ContactHandler) MarkSpam(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	sub, err := h.service.MarkSpam(c.Request().Context(), id)
	if err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    sub,
		Message: "Submission marked as spam",
	})
}

// Delete handles DELETE /admin/contact-submissions/:id
func (h *ContactHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Submission deleted",
	})
}

// BulkUpdateStatus handles POST /admin/contact-submissions/bulk/status
func (h *ContactHandler) BulkUpdateStatus(c echo.Context) error {
	var req models.BulkStatusRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	count, err := h.service.BulkUpdateStatus(c.Request().Context(), req.IDs, req.Status)
	if err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    map[string]int64{"updated": count},
		Message: "Statuses updated",
	})
}

// BulkDelete handles POST /admin/contact-submissions/bulk/delete
func (h *ContactHandler) BulkDelete(c echo.Context) error {
	var req models.BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	count, err := h.service.BulkDelete(c.Request().Context(), req.IDs)
	if err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    map[string]int64{"deleted": count},
		Message: "Submissions deleted",
	})
}

// Statistics handles GET /admin/contact-submissions/statistics
func (h *ContactHandler) Statistics(c echo.Context) error {
	stats, err := h.service.Statistics(c.Request().Context())
	if err != nil {
		return errors.DomainError(c, err)
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    stats,
	})
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
