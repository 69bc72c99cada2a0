package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// LocalDashboardOrigin is accepted when no origins are configured.
const LocalDashboardOrigin = "http://localhost:3000"

// ParseOrigins splits ALLOWED_ORIGINS into normalized origins.
func ParseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = normalizeOrigin(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// normalizeOrigin lowercases scheme and host and drops a trailing slash, so
// "https://Desk.Acme.test/" and "https://desk.acme.test" compare equal.
func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

// OriginPolicy decides which browser origins may open a dashboard socket.
type OriginPolicy struct {
	allowed  map[string]bool
	wildcard bool
}

// NewOriginPolicy builds a policy from configured origins. The wildcard is
// ignored in production.
func NewOriginPolicy(origins []string, env string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]bool)}
	for _, origin := range origins {
		origin = normalizeOrigin(origin)
		switch {
		case origin == "":
		case origin == "*":
			p.wildcard = env != "production"
		default:
			p.allowed[origin] = true
		}
	}
	if len(p.allowed) == 0 && !p.wildcard {
		p.allowed[LocalDashboardOrigin] = true
	}
	return p
}

// Allows reports whether a request's Origin header passes. A request without
// one comes from the same origin and is accepted.
func (p *OriginPolicy) Allows(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || p.wildcard {
		return true
	}
	return p.allowed[normalizeOrigin(origin)]
}

// Upgrader returns a gorilla upgrader enforcing the policy.
func (p *OriginPolicy) Upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin:     p.Allows,
		ReadBufferSize:  maxMessageSize * 2,
		WriteBufferSize: 4096,
	}
}
