package handlers

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api/response"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
)

// MailboxManager is the mailbox administration used by MailboxHandler
type MailboxManager interface {
	Test(ctx context.Context, in services.ConnectMailboxInput) (mail.MailboxTestResult, error)
	Connect(ctx context.Context, companySlug string, in services.ConnectMailboxInput) (*models.Mailbox, error)
	List(ctx context.Context, companySlug string) ([]models.Mailbox, error)
	Get(ctx context.Context, id uint) (*models.Mailbox, error)
	SetActive(ctx context.Context, id uint, active bool) (*models.Mailbox, error)
	Delete(ctx context.Context, id uint) error
}

// MailboxHandler handles mailbox-related HTTP requests
type MailboxHandler struct {
	mailboxes MailboxManager
}

// NewMailboxHandler creates a new MailboxHandler
func NewMailboxHandler(mailboxes MailboxManager) *MailboxHandler {
	return &MailboxHandler{mailboxes: mailboxes}
}

// UpdateStatusRequest enables or disables a mailbox
type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// connectFailure renders a rejected connection test with its per-protocol result
func connectFailure(c echo.Context, err error) error {
	var connErr *services.ConnectError
	if errors.As(err, &connErr) {
		return response.ErrorWithData(c, err, connErr.Result)
	}
	return response.Error(c, err)
}

// Test handles POST /api/mailboxes/test
func (h *MailboxHandler) Test(c echo.Context) error {
	var req services.ConnectMailboxInput
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	result, err := h.mailboxes.Test(c.Request().Context(), req)
	if err != nil {
		return response.Error(c, err)
	}
	if !result.OK() {
		return connectFailure(c, &services.ConnectError{Result: result})
	}
	return response.SuccessWithMessage(c, result, "connection successful")
}

// Connect handles POST /api/companies/:slug/mailboxes
func (h *MailboxHandler) Connect(c echo.Context) error {
	var req services.ConnectMailboxInput
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	mailbox, err := h.mailboxes.Connect(c.Request().Context(), c.Param("slug"), req)
	if err != nil {
		return connectFailure(c, err)
	}
	return response.Created(c, mailbox)
}

// List handles GET /api/companies/:slug/mailboxes
func (h *MailboxHandler) List(c echo.Context) error {
	mailboxes, err := h.mailboxes.List(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, mailboxes)
}

// Get handles GET /api/mailboxes/:id
func (h *MailboxHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid mailbox ID")
	}

	mailbox, err := h.mailboxes.Get(c.Request().Context(), id)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, mailbox)
}

// UpdateStatus handles PATCH /api/mailboxes/:id/status
func (h *MailboxHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid mailbox ID")
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.IsActive == nil {
		return response.BadRequest(c, "is_active is required")
	}

	mailbox, err := h.mailboxes.SetActive(c.Request().Context(), id, *req.IsActive)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, mailbox)
}

// Delete handles DELETE /api/mailboxes/:id
func (h *MailboxHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid mailbox ID")
	}

	if err := h.mailboxes.Delete(c.Request().Context(), id); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}
