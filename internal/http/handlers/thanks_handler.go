// Thanks HTTP handlers.
//
// This file exposes REST endpoints for thanks:
//   - POST /thank        (thank a revision or log entry)
//   - GET  /thank-link   (link state for one row of a history, diff or log view)
//   - GET  /thanked      (ids the caller has thanked recently, ETag support)
//
// Handlers are transport-thin: they read the acting account and session bound
// by middleware, validate input, call the thanks services and translate
// results into HTTP responses (including idempotent replays and conditional
// responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-thanks-backend/internal/http/middleware"
	"github.com/tbourn/go-thanks-backend/internal/services"
	"github.com/tbourn/go-thanks-backend/internal/session"
	"github.com/tbourn/go-thanks-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ThanksService sends thanks and lists what a sender has thanked.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ThanksService interface {
	// Thank records and notifies one thanks; duplicates succeed silently.
	Thank(ctx context.Context, sess session.Store, actorID int64, req services.ThankRequest) (*services.ThankResult, error)
	// ThankedList returns canonical thanked ids, newest last.
	ThankedList(ctx context.Context, sess session.Store, actorID int64, limit int) ([]string, error)
}

// LinkService renders thank links.
type LinkService interface {
	Describe(ctx context.Context, sess session.Store, actorID int64, req services.DescribeRequest) (*services.LinkState, error)
}

// IdempotencyStore remembers the outcome of keyed POST /thank requests.
type IdempotencyStore interface {
	Lookup(ctx context.Context, actorID int64, scope, key string, now time.Time) (recipient string, found bool, err error)
	Remember(ctx context.Context, actorID int64, scope, key, recipient string, status int) error
}

// StatsFunc reports how many thanks actorID sent since a time and when the
// newest was sent. It backs the durable total on /thanked.
type StatsFunc func(ctx context.Context, actorID int64, since time.Time) (count int64, newest *time.Time, err error)

//
// Handler wiring
//

// Handlers groups the thanks endpoints.
type Handlers struct {
	thanksSvc ThanksService
	linkSvc   LinkService

	// Optional collaborators; nil disables replay and totals respectively.
	idem        IdempotencyStore
	stats       StatsFunc
	statsWindow time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(thanksSvc ThanksService, linkSvc LinkService) *Handlers {
	return &Handlers{thanksSvc: thanksSvc, linkSvc: linkSvc}
}

// WithIdempotency enables Idempotency-Key replay for POST /thank.
func (h *Handlers) WithIdempotency(store IdempotencyStore) *Handlers {
	h.idem = store
	return h
}

// WithStats adds the durable total over window to GET /thanked.
func (h *Handlers) WithStats(fn StatsFunc, window time.Duration) *Handlers {
	h.stats = fn
	h.statsWindow = window
	return h
}

//
// DTOs
//

// ThankRequest is the JSON payload for POST /thank. Exactly one of Rev and
// Log must be given.
type ThankRequest struct {
	// Rev is the revision to thank.
	Rev *int64 `json:"rev,omitempty" example:"12345"`
	// Log is the log entry to thank.
	Log *int64 `json:"log,omitempty" example:"678"`
	// Source names the UI surface the thanks came from.
	Source string `json:"source,omitempty" example:"diff"`
}

// ThankResponse is returned on success, including duplicates.
type ThankResponse struct {
	Success   bool   `json:"success" example:"true"`
	Recipient string `json:"recipient" example:"Bob"`
}

// ThankedResponse lists ids the caller has thanked.
type ThankedResponse struct {
	Thanked []string `json:"thanked"`
	Count   int      `json:"count"`
	// Total counts durable thanks in the window; omitted when unknown.
	Total *int64 `json:"total,omitempty"`
}

//
// Helpers
//

// requireSession returns the bound session or writes a 500.
func requireSession(c *gin.Context) (session.Store, bool) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "session unavailable")
		return nil, false
	}
	return sess, true
}

//
// Handlers
//

// Thank godoc
// @ID          thank
// @Summary     Thank a revision or log entry
// @Description Sends a thank-you notification to the author of a revision or the performer of a log entry.
// @Description Thanking the same target twice succeeds without a second notification.
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Thanks
// @Accept      json
// @Produce     json
//
// @Param       X-Actor-ID       header  int     true  "Acting account"  example(10)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ThankRequest  true  "Target to thank"
//
// @Success     200  {object}  handlers.ThankResponse  "Thanks sent (or already sent)"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request, self thanks or ineligible recipient"
// @Failure     401  {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     403  {object}  handlers.ErrorResponse  "Blocked"
// @Failure     404  {object}  handlers.ErrorResponse  "Revision or log entry not found"
// @Failure     410  {object}  handlers.ErrorResponse  "Revision or log entry deleted"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /thank [post]
func (h *Handlers) Thank(c *gin.Context) {
	ctx := c.Request.Context()

	actorID := middleware.ActorID(c)
	if actorID == 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, services.ErrNotLoggedIn.Error())
		return
	}

	var req ThankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sess, okSess := requireSession(c)
	if !okSess {
		return
	}

	// Idempotency (replay path).
	scope := middleware.IdempotencyScope(c)
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.idem != nil {
		if recipient, found, err := h.idem.Lookup(ctx, actorID, scope, idemKey, time.Now().UTC()); err == nil && found {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, ThankResponse{Success: true, Recipient: recipient})
			return
		}
	}

	res, err := h.thanksSvc.Thank(ctx, sess, actorID, services.ThankRequest{
		RevisionID: req.Rev,
		LogID:      req.Log,
		Source:     req.Source,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && h.idem != nil {
		if err := h.idem.Remember(ctx, actorID, scope, idemKey, res.Recipient, http.StatusOK); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency store failed")
		}
	}

	ok(c, http.StatusOK, ThankResponse{Success: res.Success, Recipient: res.Recipient})
}

// ThankLink godoc
// @ID          thankLink
// @Summary     Describe the thank link for a row
// @Description Returns whether a thank link is offered for a revision or log entry in the given view,
// @Description and if so its target, label and tooltip. Anonymous callers get offered=false.
// @Tags        Thanks
// @Produce     json
//
// @Param       X-Actor-ID       header  int     false "Acting account"  example(10)
// @Param       Accept-Language  header  string  false "Preferred language (en, de)"
// @Param       view   query  string  false "history, diff, mobile-diff, mobile-history, contributions or log"
// @Param       rev    query  int     false "Revision id"
// @Param       log    query  int     false "Log entry id"
// @Param       oldid  query  int     false "Left-hand revision of a diff"
//
// @Success     200  {object}  services.LinkState
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Revision or log entry not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /thank-link [get]
func (h *Handlers) ThankLink(c *gin.Context) {
	rev, errRev := utils.OptionalInt64(c.Query("rev"))
	logID, errLog := utils.OptionalInt64(c.Query("log"))
	if errRev != nil || errLog != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rev and log must be integers")
		return
	}

	sess, okSess := requireSession(c)
	if !okSess {
		return
	}

	lang := services.MatchLanguage(c.GetHeader("Accept-Language"))
	st, err := h.linkSvc.Describe(c.Request.Context(), sess, middleware.ActorID(c), services.DescribeRequest{
		View:          c.Query("view"),
		RevisionID:    rev,
		LogID:         logID,
		OldRevisionID: int64(utils.AtoiDefault(c.Query("oldid"), 0)),
		Lang:          lang,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.Header("Content-Language", lang.String())
	ok(c, http.StatusOK, st)
}

// ListThanked godoc
// @ID          listThanked
// @Summary     List recently thanked ids
// @Description Returns the canonical ids ("revision-<id>" / "log-<id>") the caller has thanked recently, newest last.
// @Tags        Thanks
// @Produce     json
//
// @Param       X-Actor-ID  header  int  true  "Acting account"  example(10)
// @Param       limit       query   int  false "Maximum ids"  minimum(1) maximum(1000) default(100)
//
// @Success     200  {object}  handlers.ThankedResponse
// @Success     304  "Not modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /thanked [get]
func (h *Handlers) ListThanked(c *gin.Context) {
	const (
		defaultLimit = 100
		maxLimit     = 1000
	)
	ctx := c.Request.Context()

	actorID := middleware.ActorID(c)
	if actorID == 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, services.ErrNotLoggedIn.Error())
		return
	}
	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), defaultLimit), 1, maxLimit)

	sess, okSess := requireSession(c)
	if !okSess {
		return
	}

	ids, err := h.thanksSvc.ThankedList(ctx, sess, actorID, limit)
	if err != nil {
		if errors.Is(err, services.ErrNotLoggedIn) {
			writeServiceError(c, err)
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("list thanked")
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list thanked ids")
		return
	}

	// The tag covers exactly the ids returned, so it changes as soon as the
	// session records a thanks.
	etag := thankedETag(ids)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	resp := ThankedResponse{Thanked: ids, Count: len(ids)}
	if h.stats != nil {
		total, _, err := h.stats(ctx, actorID, time.Now().UTC().Add(-h.statsWindow))
		if err == nil {
			resp.Total = &total
		} else {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("thanks stats")
		}
	}
	ok(c, http.StatusOK, resp)
}

func thankedETag(ids []string) string {
	h := fnv.New64a()
	for _, id := range ids {
		_, _ = h.Write([]byte(id))
		_, _ = h.Write([]byte{'\n'})
	}
	return fmt.Sprintf(`W/"thanked:%d:%x"`, len(ids), h.Sum64())
}
