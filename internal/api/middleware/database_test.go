package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHealth struct{ healthy atomic.Bool }

func (f *fakeHealth) IsHealthy() bool { return f.healthy.Load() }

func TestRequireDatabase(t *testing.T) {
	monitor := &fakeHealth{}
	monitor.healthy.Store(true)
	mw := RequireDatabase(monitor)

	assert.Equal(t, http.StatusOK, serveWith(mw, httptest.NewRequest(http.MethodGet, "/test", nil)).Code)

	monitor.healthy.Store(false)
	rec := serveWith(mw, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DATABASE_UNAVAILABLE")
}

func TestRequireDatabase_NilMonitor(t *testing.T) {
	rec := serveWith(RequireDatabase(nil), httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
