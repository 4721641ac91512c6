package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveSecurity(opt SecurityOptions, path string, pre gin.HandlerFunc, mutate func(*http.Request)) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.GET(path, func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := serveSecurity(SecurityOptions{}, "/health", func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-123")
		c.Next()
	}, nil)

	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	if h.Get("Permissions-Policy") != "" || h.Get("Cache-Control") != "" || h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("unexpected optional headers: %#v", h)
	}
	if got := h.Get("Access-Control-Expose-Headers"); got != "X-Request-ID" {
		t.Fatalf("expose header = %q", got)
	}
}

func TestSecurityHeaders_ExposeHeaderMerging(t *testing.T) {
	cases := []struct {
		existing, want string
	}{
		{"ETag", "ETag, X-Request-ID"},
		{"X-Request-ID, ETag", "X-Request-ID, ETag"},
	}
	for _, tc := range cases {
		h := serveSecurity(SecurityOptions{}, "/ok", func(c *gin.Context) {
			c.Header("X-Request-ID", "rid")
			c.Header("Access-Control-Expose-Headers", tc.existing)
			c.Next()
		}, nil)
		if got := h.Get("Access-Control-Expose-Headers"); got != tc.want {
			t.Fatalf("existing %q: got %q want %q", tc.existing, got, tc.want)
		}
	}
}

func TestSecurityHeaders_PrivatePrefix(t *testing.T) {
	opt := SecurityOptions{PrivatePrefix: "/api/v1"}

	h := serveSecurity(opt, "/api/v1/thanked", nil, nil)
	if h.Get("Cache-Control") != "private, no-cache" {
		t.Fatalf("Cache-Control = %q", h.Get("Cache-Control"))
	}
	vary := strings.Join(h.Values("Vary"), ",")
	if !strings.Contains(vary, "Cookie") || !strings.Contains(vary, HeaderActorID) {
		t.Fatalf("Vary = %q", vary)
	}

	h = serveSecurity(opt, "/health", nil, nil)
	if h.Get("Cache-Control") != "" || len(h.Values("Vary")) != 0 {
		t.Fatalf("public route marked private: %#v", h)
	}
}

func TestSecurityHeaders_PolicyAndHSTS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour, EnablePolicy: true}

	h := serveSecurity(opt, "/ok", nil, func(r *http.Request) { r.TLS = &tls.ConnectionState{} })
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("missing policy headers: %#v", h)
	}
	if want := "max-age=86400; includeSubDomains; preload"; h.Get("Strict-Transport-Security") != want {
		t.Fatalf("HSTS = %q want %q", h.Get("Strict-Transport-Security"), want)
	}

	// default max-age when unset, via proxy header
	h = serveSecurity(SecurityOptions{EnableHSTS: true}, "/ok", nil, func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "https")
	})
	if got := h.Get("Strict-Transport-Security"); !strings.HasPrefix(got, "max-age=15552000;") {
		t.Fatalf("default HSTS = %q", got)
	}

	// never on plain HTTP
	h = serveSecurity(opt, "/ok", nil, nil)
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS on plain HTTP: %#v", h)
	}
}

func Test_isHTTPS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if isHTTPS(req) {
		t.Fatalf("plain HTTP should not be https")
	}
	req.TLS = &tls.ConnectionState{}
	if !isHTTPS(req) {
		t.Fatalf("TLS request should be https")
	}
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.Header.Set("X-Forwarded-Proto", "HTTPS")
	if !isHTTPS(req3) {
		t.Fatalf("X-Forwarded-Proto=https should be https")
	}
}
