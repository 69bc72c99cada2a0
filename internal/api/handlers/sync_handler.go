package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api/response"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
)

// MailboxSyncer syncs a single mailbox on demand
type MailboxSyncer interface {
	SyncMailbox(ctx context.Context, mailboxID uint) services.SyncResult
}

// SyncAllRunner runs a pass over every active mailbox unless one is already
// in flight
type SyncAllRunner interface {
	RunNow(ctx context.Context) (services.SyncAllResult, bool)
}

// SyncHandler triggers mailbox syncs over HTTP
type SyncHandler struct {
	syncer MailboxSyncer
	runner SyncAllRunner
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncer MailboxSyncer, runner SyncAllRunner) *SyncHandler {
	return &SyncHandler{syncer: syncer, runner: runner}
}

// SyncRequest optionally narrows a sync to one mailbox
type SyncRequest struct {
	MailboxID uint `json:"mailboxId"`
}

// Sync handles POST /api/sync
func (h *SyncHandler) Sync(c echo.Context) error {
	var req SyncRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return response.BadRequest(c, "invalid request body")
		}
	}

	if req.MailboxID == 0 {
		return h.syncAll(c)
	}

	result := h.syncer.SyncMailbox(detached(c), req.MailboxID)
	if !result.Success {
		return syncFailure(c, result.Error, result)
	}
	return response.Success(c, result)
}

// Cron handles GET /api/sync/cron
func (h *SyncHandler) Cron(c echo.Context) error {
	return h.syncAll(c)
}

func (h *SyncHandler) syncAll(c echo.Context) error {
	result, ran := h.runner.RunNow(detached(c))
	if !ran {
		return response.Error(c, apperrors.ErrSyncInProgress)
	}
	if !result.Success {
		return syncFailure(c, result.Error, result)
	}
	return response.Success(c, result)
}

// detached keeps the request's values but lets a sync finish after the client
// goes away, so a dropped connection does not abort it halfway.
func detached(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}

func syncFailure(c echo.Context, message string, data interface{}) error {
	if message == "" {
		message = "sync failed"
	}
	return c.JSON(http.StatusInternalServerError, response.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    apperrors.CodeInternalError,
		Data:    data,
	})
}
