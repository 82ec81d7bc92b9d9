package auth

import (
	"context"
	"net"
	"net/http"
	"strings"

	"warden/internal/models"
)

const CookieName = "warden_session"

type ctxKey string

const principalKey ctxKey = "principal"

// FromRequest достаёт Principal, положенный middleware Require.
func FromRequest(r *http.Request) (Principal, bool) {
	p, ok := r.Context().Value(principalKey).(Principal)
	return p, ok
}

// ClientIP — адрес клиента с учётом X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if i := strings.IndexByte(xf, ','); i > 0 {
			return strings.TrimSpace(xf[:i])
		}
		return strings.TrimSpace(xf)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Require — сессионная аутентификация по cookie.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err != nil {
			models.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		p, ok := m.Lookup(c.Value)
		if !ok {
			models.WriteError(w, http.StatusUnauthorized, "Session expired or invalid")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

// RequireAdmin — поверх Require, только для role=admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromRequest(r)
		if !ok || p.Role != models.RoleAdmin {
			models.WriteError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
