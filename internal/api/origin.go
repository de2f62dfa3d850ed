package api

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var errOriginNotAllowed = errors.New("origin not allowed")

// OriginPolicy decides which browser origins may reach the API. Requests
// without an Origin header (the desktop shell, CLI tools) and loopback
// origins are always accepted; anything else must be listed.
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy creates a policy accepting the given origins in addition
// to loopback ones.
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		p.allowed[normalizeOrigin(o)] = struct{}{}
	}
	return p
}

// Allowed reports whether origin may use the API. A nil policy accepts
// loopback origins only.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	if p != nil {
		if _, ok := p.allowed[normalizeOrigin(origin)]; ok {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// CheckRequest applies the policy to the request's Origin header.
func (p *OriginPolicy) CheckRequest(r *http.Request) bool {
	return p.Allowed(r.Header.Get("Origin"))
}

// Middleware rejects requests from disallowed origins with 403.
func (p *OriginPolicy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.CheckRequest(r) {
			slog.Warn("API: rejected cross-origin request", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			writeError(w, http.StatusForbidden, errOriginNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}
