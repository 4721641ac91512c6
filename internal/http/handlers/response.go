// Package handlers implements the thanks HTTP endpoints and their response
// envelope.
//
// Every error is written as
//
//	{"request_id": "...", "code": "self_thanks", "message": "cannot thank yourself"}
//
// with Code taken from the ErrCode constants.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-thanks-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"a1b2c3d4"`
	// One of the ErrCode constants
	Code string `json:"code" example:"invalid_revision"`
	// Safe to show to users
	Message string `json:"message" example:"revision not found"`
}

// fail aborts with the error envelope. 5xx responses are also logged.
func fail(c *gin.Context, status int, code, msg string) {
	rid := middleware.RequestIDFrom(c)
	if rid == "" {
		rid = c.Writer.Header().Get("X-Request-ID")
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{RequestID: rid, Code: code, Message: msg})
}

// Fail writes the error envelope for callers outside this package, such as
// the router's NoRoute and NoMethod handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
