package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf) // plain JSON lines
	return &buf
}

func TestRedact(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"rev=6&source=diff", "rev=6&source=diff"},
		{"user=a.b+tag@example.com", "user=[REDACTED:email]"},
		{"ip=192.168.0.12", "ip=[REDACTED:ip]"},
		{"sid=123e4567-e89b-12d3-a456-426614174000", "sid=[REDACTED:id]"},
		{"phone=555-123-4567", "phone=[REDACTED:phone]"},
	}
	for _, tc := range cases {
		if got := redact(tc.in); got != tc.want {
			t.Fatalf("redact(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	buf := withCapturedLogger(t)

	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-resp")
		c.Next()
	})
	r.Use(Actor())
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/thank-link", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("handler")
		c.String(http.StatusOK, "ok")
	})

	q := "view=history&rev=6&who=a.b+tag@example.com&ip=10.0.0.7"
	req := httptest.NewRequest(http.MethodGet, "/thank-link?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "thanks_session=123e4567-e89b-12d3-a456-426614174000")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("X-Custom", "email a@b.com phone 555-123-4567")
	req.Header.Set("X-Request-ID", "rid-req")
	req.Header.Set(HeaderActorID, "42")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	for _, want := range []string{
		`"message":"handler"`, // request-scoped logger bound
		`"actor_id":42`,
		`"level":"info"`,
		`"route":"/thank-link"`,
		`"request_id":"rid-resp"`,
		`view=history&rev=6`,
		`[REDACTED:email]`,
		`[REDACTED:ip]`,
		`"Authorization":"[REDACTED]"`,
		`"Cookie":"[REDACTED]"`,
		`"X-Api-Key":"[REDACTED]"`,
		`"X-Forwarded-For":"[REDACTED:ip]"`,
		`"X-Custom":"email [REDACTED:email] phone [REDACTED:phone]"`,
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %s in logs: %s", want, logs)
		}
	}
	if strings.Contains(logs, "426614174000") || strings.Contains(logs, "10.0.0.7") {
		t.Fatalf("secret leaked: %s", logs)
	}
}

func TestRedactingLogger_WarnAndErrorLevels_RequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	buf := withCapturedLogger(t)

	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for path, rid := range map[string]string{"/warn": "rid-warn", "/error": "rid-err"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Request-ID", rid)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"request_id":"rid-warn"`) {
		t.Fatalf("warn log not found or missing request_id fallback: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"request_id":"rid-err"`) {
		t.Fatalf("error log not found or missing request_id fallback: %s", logs)
	}
}
