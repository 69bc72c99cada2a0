package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func requestFrom(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://localhost:3000", "https://desk.acme.test"},
		ParseOrigins("  http://localhost:3000  ,  https://Desk.Acme.test/  "))
	assert.Empty(t, ParseOrigins(",,,"))
	assert.Empty(t, ParseOrigins(""))
}

func TestOriginPolicy_Allows(t *testing.T) {
	policy := NewOriginPolicy([]string{"https://desk.acme.test", "http://localhost:3000"}, "development")

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://desk.acme.test", true},
		{"HTTPS://DESK.ACME.TEST", true},
		{"https://desk.acme.test/", true},
		{"http://localhost:3000", true},
		{"", true},
		{"https://evil.test", false},
		{"https://desk.acme.test.evil.test", false},
		{"http://desk.acme.test", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Allows(requestFrom(tt.origin)))
		})
	}
}

func TestOriginPolicy_DefaultsToLocalDashboard(t *testing.T) {
	policy := NewOriginPolicy(nil, "development")

	assert.True(t, policy.Allows(requestFrom(LocalDashboardOrigin)))
	assert.False(t, policy.Allows(requestFrom("https://desk.acme.test")))
}

func TestOriginPolicy_Wildcard(t *testing.T) {
	dev := NewOriginPolicy([]string{"*"}, "development")
	assert.True(t, dev.Allows(requestFrom("http://anything.test")))

	prod := NewOriginPolicy([]string{"*"}, "production")
	assert.False(t, prod.Allows(requestFrom("http://anything.test")))
	assert.True(t, prod.Allows(requestFrom(LocalDashboardOrigin)))
}

func TestOriginPolicy_Upgrader(t *testing.T) {
	up := NewOriginPolicy([]string{"https://desk.acme.test"}, "production").Upgrader()

	assert.True(t, up.CheckOrigin(requestFrom("https://desk.acme.test")))
	assert.False(t, up.CheckOrigin(requestFrom("https://evil.test")))
	assert.Equal(t, 2*maxMessageSize, up.ReadBufferSize)
}
