package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries a client-chosen key that makes a retried POST
// /thank return the first outcome instead of notifying twice.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether a stored outcome exists for this request's key.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyOptions bounds accepted keys. Zero values select a 200 byte cap
// and the token pattern ^[A-Za-z0-9._~\-:]+$.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether an unexpired outcome is stored for
// (actorID, scope, key). Expiry is the implementation's concern.
type IdempotencyLookup func(ctx context.Context, actorID int64, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator checks the Idempotency-Key header and stashes it for
// the handler. Requests without the header pass untouched; malformed keys get
// 400 bad_idempotency_key. For a logged-in actor with a stored outcome the
// request is flagged as a replay and exempted from rate limiting. Lookup
// failures are logged and the request proceeds as a first attempt.
//
// Serving the stored outcome is left to the handler.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		actorID := ActorID(c)
		if lookup == nil || actorID <= 0 {
			c.Next()
			return
		}

		scope := IdempotencyScope(c)
		exists, err := lookup(c.Request.Context(), actorID, scope, key, time.Now().UTC())
		switch {
		case err != nil:
			LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
		case exists:
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
			LoggerFrom(c).Debug().Str("scope", scope).Msg("idempotent replay")
		}
		c.Next()
	}
}

// IdempotencyScope is the route pattern records are keyed under, so a key
// reused on another endpoint never replays. Unmatched requests use the path.
func IdempotencyScope(c *gin.Context) string {
	return routeOf(c)
}
