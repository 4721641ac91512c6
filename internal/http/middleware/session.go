// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file binds each request to a server-side session. The session id lives
// in a cookie; a request without a valid id gets a fresh one. Handlers read
// the bound store with SessionFrom.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-thanks-backend/internal/session"
)

const ctxKeySession = "session"

// SessionOptions configures the session cookie.
type SessionOptions struct {
	// CookieName defaults to "thanks_session".
	CookieName string
	// TTL sets the cookie Max-Age; values <= 0 produce a browser-session cookie.
	TTL time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// Session opens the caller's session on mgr and stashes the store.
func Session(mgr session.Manager, opts SessionOptions) gin.HandlerFunc {
	name := opts.CookieName
	if name == "" {
		name = "thanks_session"
	}
	maxAge := int(opts.TTL / time.Second)

	return func(c *gin.Context) {
		sid, err := c.Cookie(name)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
		}
		// Refresh on every request so Max-Age slides with the server TTL.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(name, sid, maxAge, "/", "", opts.Secure, true)

		c.Set(ctxKeySession, mgr.Open(sid))
		c.Next()
	}
}

// SessionFrom returns the store bound by Session, or nil.
func SessionFrom(c *gin.Context) session.Store {
	if v, ok := c.Get(ctxKeySession); ok {
		if s, ok := v.(session.Store); ok {
			return s
		}
	}
	return nil
}
