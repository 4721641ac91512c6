// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the acting wiki account. Authentication happens upstream
// (the wiki front end or a gateway); the authenticated actor id arrives in the
// X-Actor-ID header and is stashed in the Gin context for handlers, the rate
// limiter and the idempotency validator.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderActorID carries the authenticated actor id.
const HeaderActorID = "X-Actor-ID"

const ctxKeyActorID = "actorID"

// Actor parses X-Actor-ID. A missing header leaves the request anonymous
// (ActorID returns 0); a malformed one is rejected with 400.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "bad_actor_id",
				"message":    "invalid X-Actor-ID",
			})
			return
		}
		c.Set(ctxKeyActorID, id)
		c.Next()
	}
}

// ActorID returns the actor id set by Actor, or 0 for anonymous requests.
func ActorID(c *gin.Context) int64 {
	if v, ok := c.Get(ctxKeyActorID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
