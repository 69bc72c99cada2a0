package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers wrap them with fmt.Errorf("...: %w") and the API
// layer maps them to codes with GetErrorCode.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrInvalidInput   = errors.New("invalid input")

	ErrCompanyNotFound  = errors.New("company not found")
	ErrMailboxNotFound  = errors.New("mailbox not found")
	ErrEmailNotFound    = errors.New("email not found")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMailboxInactive means the mailbox exists but is disabled.
	ErrMailboxInactive = errors.New("mailbox is not active")

	// ErrEmailAlreadyProcessed means the email is already linked to a ticket.
	ErrEmailAlreadyProcessed = errors.New("email has already been converted to a ticket")

	ErrTemplatesExist  = errors.New("templates already exist for this company")
	ErrLastTemplate    = errors.New("cannot delete the last template")
	ErrTemplateInvalid = errors.New("invalid template")

	// ErrConnectionFailed means a mail server was unreachable or rejected the credentials.
	ErrConnectionFailed = errors.New("mail server connection failed")

	// ErrDeliveryFailed means an outbound message was not accepted by the SMTP server.
	ErrDeliveryFailed = errors.New("mail delivery failed")

	ErrNoOutboundMailbox = errors.New("no active mailbox found for company")

	// ErrSystemActorUnavailable means neither the system user nor the company owner exists.
	ErrSystemActorUnavailable = errors.New("no system actor available")

	// ErrSyncInProgress means a sync-all pass is already running.
	ErrSyncInProgress = errors.New("a sync pass is already running")

	ErrDatabaseUnavailable = errors.New("database unavailable")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInternal            = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound            = "NOT_FOUND"
	CodeDuplicateEntry      = "DUPLICATE_ENTRY"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeMailboxInactive     = "MAILBOX_INACTIVE"
	CodeAlreadyProcessed    = "ALREADY_PROCESSED"
	CodeTemplatesExist      = "TEMPLATES_EXIST"
	CodeLastTemplate        = "LAST_TEMPLATE"
	CodeTemplateInvalid     = "TEMPLATE_INVALID"
	CodeConnectionFailed    = "CONNECTION_FAILED"
	CodeDeliveryFailed      = "DELIVERY_FAILED"
	CodeNoOutboundMailbox   = "NO_OUTBOUND_MAILBOX"
	CodeSyncInProgress      = "SYNC_IN_PROGRESS"
	CodeDatabaseUnavailable = "DATABASE_UNAVAILABLE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInternalError       = "INTERNAL_ERROR"
)

var notFound = []error{
	ErrNotFound,
	ErrCompanyNotFound,
	ErrMailboxNotFound,
	ErrEmailNotFound,
	ErrTicketNotFound,
	ErrTemplateNotFound,
}

// codes is checked in order, first match wins.
var codes = []struct {
	target error
	code   string
}{
	{ErrDuplicateEntry, CodeDuplicateEntry},
	{ErrTemplateInvalid, CodeTemplateInvalid},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrMailboxInactive, CodeMailboxInactive},
	{ErrEmailAlreadyProcessed, CodeAlreadyProcessed},
	{ErrTemplatesExist, CodeTemplatesExist},
	{ErrLastTemplate, CodeLastTemplate},
	{ErrConnectionFailed, CodeConnectionFailed},
	{ErrDeliveryFailed, CodeDeliveryFailed},
	{ErrNoOutboundMailbox, CodeNoOutboundMailbox},
	{ErrSyncInProgress, CodeSyncInProgress},
	{ErrDatabaseUnavailable, CodeDatabaseUnavailable},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrForbidden, CodeForbidden},
}

// AppError overrides the message and code reported for Err.
type AppError struct {
	Err     error
	Message string
	Code    string
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{Err: err, Message: message, Code: code}
}

// Wrap prefixes err with context, returning nil for a nil err.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound reports whether err means a company, mailbox, email, ticket or
// template lookup came up empty.
func IsNotFound(err error) bool {
	for _, target := range notFound {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict reports errors caused by the current state of a resource
func IsConflict(err error) bool {
	switch GetErrorCode(err) {
	case CodeAlreadyProcessed, CodeTemplatesExist, CodeLastTemplate, CodeSyncInProgress:
		return true
	}
	return false
}

// GetErrorCode returns the API code for err. An AppError code wins over the
// wrapped sentinel.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	if IsNotFound(err) {
		return CodeNotFound
	}
	for _, c := range codes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return CodeInternalError
}
