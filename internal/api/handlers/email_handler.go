package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api/response"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
	"github.com/welldanyogia/helpdesk-mailsync/internal/storage"
	"github.com/welldanyogia/helpdesk-mailsync/internal/validator"
)

// TicketActions are the operator actions on an inbound email
type TicketActions interface {
	ConvertEmail(ctx context.Context, companySlug string, emailID uint) (*services.ConvertResult, error)
	ReplyToEmail(ctx context.Context, companySlug string, emailID uint, message string, authorID uint) (*services.ReplyResult, error)
}

// EmailHandler handles inbound email HTTP requests
type EmailHandler struct {
	companies   repository.CompanyRepository
	emails      repository.EmailRepository
	attachments repository.AttachmentRepository
	fileStorage storage.FileStorage
	tickets     TicketActions
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(
	companies repository.CompanyRepository,
	emails repository.EmailRepository,
	attachments repository.AttachmentRepository,
	fileStorage storage.FileStorage,
	tickets TicketActions,
) *EmailHandler {
	return &EmailHandler{
		companies:   companies,
		emails:      emails,
		attachments: attachments,
		fileStorage: fileStorage,
		tickets:     tickets,
	}
}

// ReplyRequest is an operator's reply to the sender of an email
type ReplyRequest struct {
	Message string `json:"message"`
	UserID  uint   `json:"user_id"`
}

func (h *EmailHandler) company(ctx context.Context, slug string) (*models.Company, error) {
	if validator.ValidateSlug(slug) != nil {
		return nil, apperrors.ErrCompanyNotFound
	}
	company, err := h.companies.GetBySlug(ctx, slug)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrCompanyNotFound
		}
		return nil, err
	}
	return company, nil
}

// email loads an email of the company named in the path
func (h *EmailHandler) email(c echo.Context) (*models.Email, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, fmt.Errorf("invalid email ID: %w", apperrors.ErrInvalidInput)
	}

	ctx := c.Request().Context()
	company, err := h.company(ctx, c.Param("slug"))
	if err != nil {
		return nil, err
	}

	email, err := h.emails.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrEmailNotFound
		}
		return nil, err
	}
	if email.CompanyID != company.ID {
		return nil, apperrors.ErrEmailNotFound
	}
	return email, nil
}

// List handles GET /api/companies/:slug/emails
func (h *EmailHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	company, err := h.company(ctx, c.Param("slug"))
	if err != nil {
		return response.Error(c, err)
	}

	var filter repository.EmailFilter
	filter.Limit, filter.Offset = validator.ValidatePagination(
		queryInt(c, "limit", validator.DefaultLimit),
		queryInt(c, "offset", 0),
	)
	if raw := c.QueryParam("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			return response.BadRequest(c, "processed must be true or false")
		}
		filter.Processed = &processed
	}

	items, total, err := h.emails.ListByCompany(ctx, company.ID, filter)
	if err != nil {
		return response.InternalError(c, "failed to list emails")
	}
	return response.Paginated(c, items, total, filter.Limit, filter.Offset)
}

// Get handles GET /api/companies/:slug/emails/:id
func (h *EmailHandler) Get(c echo.Context) error {
	email, err := h.email(c)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, email)
}

// ConvertToTicket handles POST /api/companies/:slug/emails/:id/convert-to-ticket
func (h *EmailHandler) ConvertToTicket(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid email ID")
	}

	result, err := h.tickets.ConvertEmail(c.Request().Context(), c.Param("slug"), id)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, result)
}

// Reply handles POST /api/companies/:slug/emails/:id/reply
func (h *EmailHandler) Reply(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid email ID")
	}

	var req ReplyRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	result, err := h.tickets.ReplyToEmail(c.Request().Context(), c.Param("slug"), id, req.Message, req.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.SuccessWithMessage(c, result, "reply sent")
}

// ListAttachments handles GET /api/companies/:slug/emails/:id/attachments
func (h *EmailHandler) ListAttachments(c echo.Context) error {
	email, err := h.email(c)
	if err != nil {
		return response.Error(c, err)
	}

	attachments, err := h.attachments.ListByEmail(c.Request().Context(), email.ID)
	if err != nil {
		return response.InternalError(c, "failed to list attachments")
	}
	return response.Success(c, attachments)
}

// DownloadAttachment handles GET /api/companies/:slug/emails/:id/attachments/:attachment_id
func (h *EmailHandler) DownloadAttachment(c echo.Context) error {
	email, err := h.email(c)
	if err != nil {
		return response.Error(c, err)
	}

	attachmentID, ok := parseID(c, "attachment_id")
	if !ok {
		return response.BadRequest(c, "invalid attachment ID")
	}

	attachment, err := h.attachments.GetForEmail(c.Request().Context(), email.ID, attachmentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "attachment not found")
		}
		return response.InternalError(c, "failed to get attachment")
	}

	file, err := h.fileStorage.Get(attachment.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return response.NotFound(c, "attachment file not found")
		}
		return response.InternalError(c, "failed to retrieve file")
	}
	defer file.Close()

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	header := c.Response().Header()
	header.Set(echo.HeaderContentType, contentType)
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	if attachment.SizeBytes > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(attachment.SizeBytes, 10))
	}
	c.Response().WriteHeader(http.StatusOK)

	_, err = io.Copy(c.Response(), file)
	return err
}
