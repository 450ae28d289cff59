package gateway

import (
	"context"
	"strings"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

// Credentials is the slice of the session the gate needs.
type Credentials interface {
	Token(scope domain.Scope) string
	ClearScope(ctx context.Context, scope domain.Scope) (bool, error)
}

const bearerPrefix = "Bearer "

// Bearer formats a token for the Authorization header.
func Bearer(token string) string {
	return bearerPrefix + token
}

// authorization picks the single Authorization value for a request: nothing
// for exempt paths or anonymous requests, then the caller's override, then
// Admin, then User.
func (g *Gateway) authorization(req Request, override string) (string, string) {
	if g.isExempt(req.Path) {
		return "", "exempt"
	}
	if req.Anonymous {
		return "", "anonymous"
	}
	if override != "" {
		return override, "override"
	}
	if t := g.creds.Token(domain.ScopeAdmin); t != "" {
		return Bearer(t), "admin"
	}
	if t := g.creds.Token(domain.ScopeUser); t != "" {
		return Bearer(t), "user"
	}
	return "", "none"
}

func (g *Gateway) isExempt(path string) bool {
	for _, p := range g.exempt {
		if p != "" && strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// redact keeps enough of a token to correlate log lines.
func redact(header string) string {
	token := strings.TrimPrefix(header, bearerPrefix)
	if len(token) > 8 {
		return token[:8] + "..."
	}
	return token
}
