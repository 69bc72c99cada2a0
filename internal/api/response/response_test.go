package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
)

func setupTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp
}

func TestSuccess_Returns200WithData(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, SuccessWithMessage(c, map[string]string{"key": "value"}, "Mailbox synced"))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Mailbox synced", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestCreatedAndNoContent(t *testing.T) {
	c, rec := setupTestContext()
	require.NoError(t, Created(c, map[string]int{"id": 1}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = setupTestContext()
	require.NoError(t, NoContent(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestPaginated_ReturnsDataWithMeta(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, Paginated(c, []string{"a", "b"}, 100, 20, 40))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, Meta{Total: 100, Limit: 20, Offset: 40}, resp.Meta)
}

func TestError_ReturnsCorrectStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.ErrMailboxNotFound, http.StatusNotFound, apperrors.CodeNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", apperrors.ErrCompanyNotFound), http.StatusNotFound, apperrors.CodeNotFound},
		{"invalid input", apperrors.ErrInvalidInput, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"invalid template", apperrors.ErrTemplateInvalid, http.StatusBadRequest, apperrors.CodeTemplateInvalid},
		{"inactive mailbox", apperrors.ErrMailboxInactive, http.StatusBadRequest, apperrors.CodeMailboxInactive},
		{"connection failed", apperrors.ErrConnectionFailed, http.StatusBadRequest, apperrors.CodeConnectionFailed},
		{"already processed", apperrors.ErrEmailAlreadyProcessed, http.StatusConflict, apperrors.CodeAlreadyProcessed},
		{"templates exist", apperrors.ErrTemplatesExist, http.StatusConflict, apperrors.CodeTemplatesExist},
		{"last template", apperrors.ErrLastTemplate, http.StatusConflict, apperrors.CodeLastTemplate},
		{"sync running", apperrors.ErrSyncInProgress, http.StatusConflict, apperrors.CodeSyncInProgress},
		{"reply not delivered", fmt.Errorf("reply: %w", apperrors.ErrDeliveryFailed), http.StatusBadGateway, apperrors.CodeDeliveryFailed},
		{"database down", apperrors.ErrDatabaseUnavailable, http.StatusServiceUnavailable, apperrors.CodeDatabaseUnavailable},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := setupTestContext()

			require.NoError(t, Error(c, tt.err))
			assert.Equal(t, tt.wantStatus, rec.Code)

			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestErrorWithData_IncludesData(t *testing.T) {
	c, rec := setupTestContext()

	require.NoError(t, ErrorWithData(c, apperrors.ErrConnectionFailed, map[string]bool{"inbound": false}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, map[string]interface{}{"inbound": false}, raw["data"])
}

func TestHelpers_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		write  func(echo.Context) error
		status int
		code   string
	}{
		{"bad request", func(c echo.Context) error { return BadRequest(c, "invalid mailbox ID") }, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"not found", func(c echo.Context) error { return NotFound(c, "email not found") }, http.StatusNotFound, apperrors.CodeNotFound},
		{"conflict", func(c echo.Context) error { return Conflict(c, "sync already running") }, http.StatusConflict, apperrors.CodeDuplicateEntry},
		{"internal", func(c echo.Context) error { return InternalError(c, "failed") }, http.StatusInternalServerError, apperrors.CodeInternalError},
		{"unavailable", func(c echo.Context) error { return ServiceUnavailable(c, "database unavailable") }, http.StatusServiceUnavailable, apperrors.CodeDatabaseUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := setupTestContext()
			require.NoError(t, tt.write(c))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestHTTPStatus_UnknownCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus("UNKNOWN_CODE"))
}
