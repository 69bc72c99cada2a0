package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    Meta        `json:"meta"`
}

// Meta contains pagination metadata
type Meta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// Success writes 200 with data
func Success(c echo.Context, data interface{}) error {
	return SuccessWithMessage(c, data, "")
}

// SuccessWithMessage writes 200 with data and a human readable message
func SuccessWithMessage(c echo.Context, data interface{}, message string) error {
	return c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Message: message})
}

// Created writes 201 with the new resource
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// NoContent writes 204
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Paginated writes one page of a list with its position in the full result
func Paginated(c echo.Context, data interface{}, total int64, limit, offset int) error {
	return c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Meta:    Meta{Total: total, Limit: limit, Offset: offset},
	})
}

// Error writes err with the status matching its code
func Error(c echo.Context, err error) error {
	return ErrorWithData(c, err, nil)
}

// ErrorWithData writes err together with extra context, such as the
// connection test result that rejected a mailbox or a partial sync result
func ErrorWithData(c echo.Context, err error, data interface{}) error {
	code := apperrors.GetErrorCode(err)
	return fail(c, HTTPStatus(code), code, err.Error(), data)
}

func BadRequest(c echo.Context, message string) error {
	return fail(c, http.StatusBadRequest, apperrors.CodeInvalidInput, message, nil)
}

func NotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, apperrors.CodeNotFound, message, nil)
}

func Conflict(c echo.Context, message string) error {
	return fail(c, http.StatusConflict, apperrors.CodeDuplicateEntry, message, nil)
}

func InternalError(c echo.Context, message string) error {
	return fail(c, http.StatusInternalServerError, apperrors.CodeInternalError, message, nil)
}

// ServiceUnavailable is returned while the health monitor reports the
// database down
func ServiceUnavailable(c echo.Context, message string) error {
	return fail(c, http.StatusServiceUnavailable, apperrors.CodeDatabaseUnavailable, message, nil)
}

func fail(c echo.Context, status int, code, message string, data interface{}) error {
	return c.JSON(status, ErrorResponse{Success: false, Error: message, Code: code, Data: data})
}

var statusByCode = map[string]int{
	apperrors.CodeNotFound:            http.StatusNotFound,
	apperrors.CodeDuplicateEntry:      http.StatusConflict,
	apperrors.CodeAlreadyProcessed:    http.StatusConflict,
	apperrors.CodeTemplatesExist:      http.StatusConflict,
	apperrors.CodeLastTemplate:        http.StatusConflict,
	apperrors.CodeSyncInProgress:      http.StatusConflict,
	apperrors.CodeInvalidInput:        http.StatusBadRequest,
	apperrors.CodeTemplateInvalid:     http.StatusBadRequest,
	apperrors.CodeMailboxInactive:     http.StatusBadRequest,
	apperrors.CodeNoOutboundMailbox:   http.StatusBadRequest,
	apperrors.CodeConnectionFailed:    http.StatusBadRequest,
	apperrors.CodeDeliveryFailed:      http.StatusBadGateway,
	apperrors.CodeDatabaseUnavailable: http.StatusServiceUnavailable,
	apperrors.CodeUnauthorized:        http.StatusUnauthorized,
	apperrors.CodeForbidden:           http.StatusForbidden,
}

// HTTPStatus maps an error code to its status; unknown codes are 500
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
