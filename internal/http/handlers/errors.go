package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-thanks-backend/internal/http/middleware"
	"github.com/tbourn/go-thanks-backend/internal/services"
)

// Error codes carried in ErrorResponse.Code. Clients branch on these, so
// values are stable.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Thanks failures, one per service sentinel.
	ErrCodeInvalidRevision  = "invalid_revision"
	ErrCodeRevisionDeleted  = "revision_deleted"
	ErrCodeInvalidLogID     = "invalid_log_id"
	ErrCodeInvalidLogType   = "invalid_log_type"
	ErrCodeLogDeleted       = "log_deleted"
	ErrCodeBlocked          = "blocked"
	ErrCodeBlockedFromTitle = "blocked_from_title"
	ErrCodeSelfThanks       = "self_thanks"
	ErrCodeInvalidRecipient = "invalid_recipient"
	ErrCodeNotifyFailed     = "notify_failed"
	ErrCodeThanksFailed     = "thanks_failed"
	ErrCodeListFailed       = "list_failed"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// serviceErrors is checked in order with errors.Is.
var serviceErrors = []errorMapping{
	{services.ErrInvalidParams, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNotLoggedIn, http.StatusUnauthorized, ErrCodeUnauthorized},
	{services.ErrInvalidRevision, http.StatusNotFound, ErrCodeInvalidRevision},
	{services.ErrInvalidLogID, http.StatusNotFound, ErrCodeInvalidLogID},
	{services.ErrRevisionDeleted, http.StatusGone, ErrCodeRevisionDeleted},
	{services.ErrLogDeleted, http.StatusGone, ErrCodeLogDeleted},
	{services.ErrInvalidLogType, http.StatusBadRequest, ErrCodeInvalidLogType},
	{services.ErrBlocked, http.StatusForbidden, ErrCodeBlocked},
	{services.ErrBlockedFromTitle, http.StatusForbidden, ErrCodeBlockedFromTitle},
	{services.ErrSelfThanks, http.StatusBadRequest, ErrCodeSelfThanks},
	{services.ErrInvalidRecipient, http.StatusBadRequest, ErrCodeInvalidRecipient},
	{services.ErrNotifyFailed, http.StatusInternalServerError, ErrCodeNotifyFailed},
}

// writeServiceError maps a thanks service error to the error envelope. Only
// the sentinel's text reaches the client; wrapped causes are logged.
// Unknown errors become 500 thanks_failed.
func writeServiceError(c *gin.Context, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				middleware.LoggerFrom(c).Error().Err(err).Msg("thanks failed")
			}
			fail(c, m.status, m.code, m.target.Error())
			return
		}
	}
	middleware.LoggerFrom(c).Error().Err(err).Msg("thanks failed")
	fail(c, http.StatusInternalServerError, ErrCodeThanksFailed, "thanks failed")
}
