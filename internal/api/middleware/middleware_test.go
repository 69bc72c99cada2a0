package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newLoggedEcho(buf *bytes.Buffer) *echo.Echo {
	log := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := echo.New()
	e.Use(RequestLogger(log))
	return e
}

func TestRequestLogger_LogsRequestDetails(t *testing.T) {
	var buf bytes.Buffer
	e := newLoggedEcho(&buf)
	e.GET("/api/companies/:slug/emails/:id", func(c echo.Context) error {
		return c.String(http.StatusNotFound, "missing")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/companies/acme/emails/7", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"method":"GET"`)
	assert.Contains(t, out, `"path":"/api/companies/acme/emails/7"`)
	assert.Contains(t, out, `"route":"/api/companies/:slug/emails/:id"`)
	assert.Contains(t, out, `"company":"acme"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, "latency")
}

func TestRequestLogger_LogsResolvedErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	e := newLoggedEcho(&buf)
	e.POST("/api/sync", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream down")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, buf.String(), `"status":502`)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestRequestLogger_HealthChecksAreDebug(t *testing.T) {
	var buf bytes.Buffer
	e := newLoggedEcho(&buf)
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.NotContains(t, buf.String(), "company")
}

func TestRecover_CatchesPanicsAndReturns500(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Recover(slog.New(slog.NewJSONHandler(&buf, nil))))
	e.GET("/panic", func(c echo.Context) error {
		panic("mailbox exploded")
	})

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "mailbox exploded")
	assert.Contains(t, buf.String(), `"path":"/panic"`)
}
