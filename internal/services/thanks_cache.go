// Package services – ThanksCache
//
// ThanksCache answers "has this sender already thanked X?" from the sender's
// session. The list is populated lazily from the durable thanks log (replica
// read path, bounded by MaxLoadPeriod) the first time a session asks, then
// extended in place after every new thanks so the sender sees their own
// writes regardless of replica lag.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-thanks-backend/internal/domain"
	"github.com/tbourn/go-thanks-backend/internal/session"
)

// ThanksLog is the durable store contract needed by the cache and the
// orchestrator.
type ThanksLog interface {
	// QueryThankedIDs returns serialized ids thanked by actorID at or after
	// since, newest first. It may read from a lagging replica.
	QueryThankedIDs(ctx context.Context, actorID int64, since time.Time) ([]string, error)

	// AppendThanks durably records one thanks.
	AppendThanks(ctx context.Context, rec *domain.ThanksLog) error
}

// SessionKey returns the session key holding actorID's thanked list.
func SessionKey(actorID int64) string {
	return fmt.Sprintf("thanks-thanked-ids-%d", actorID)
}

// ThanksCache is the session-scoped dedup cache.
type ThanksCache struct {
	Log           ThanksLog
	MaxLoadPeriod time.Duration
	Now           func() time.Time
}

// NewThanksCache wires a cache over the durable log.
func NewThanksCache(l ThanksLog, maxLoadPeriod time.Duration) *ThanksCache {
	return &ThanksCache{Log: l, MaxLoadPeriod: maxLoadPeriod, Now: func() time.Time { return time.Now().UTC() }}
}

func (c *ThanksCache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// MembershipList returns the sender's thanked list, oldest first, populating
// the session from the durable log on a miss. An empty list is cached like any other.
// Durable read errors propagate and nothing is cached.
func (c *ThanksCache) MembershipList(ctx context.Context, sess session.Store, actorID int64) ([]string, error) {
	if sess == nil {
		return nil, session.ErrNoSession
	}
	key := SessionKey(actorID)
	list, ok, err := sess.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read session cache: %w", err)
	}
	if ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return list, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	ctx, span := otel.Tracer("services/ThanksCache").Start(ctx, "Populate",
		trace.WithAttributes(attribute.Int64("actor.id", actorID)),
	)
	defer span.End()

	since := c.now().Add(-c.MaxLoadPeriod)
	list, err = c.Log.QueryThankedIDs(ctx, actorID, since)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load thanked ids: %w", err)
	}
	// The log answers newest first; the session keeps oldest first so that
	// RecordThanks appends stay in order.
	list = lo.Reverse(append([]string{}, list...))
	span.SetAttributes(attribute.Int("thanks.count", len(list)))
	if err := sess.Set(ctx, key, list); err != nil {
		return nil, fmt.Errorf("write session cache: %w", err)
	}
	return list, nil
}

// IsAlreadyThanked reports whether (kind, id) is in the sender's list.
// "rev" and "revision" are the same kind, both as argument and in stored
// entries.
func (c *ThanksCache) IsAlreadyThanked(ctx context.Context, sess session.Store, actorID, id int64, kind string) (bool, error) {
	k, ok := domain.ParseKind(kind)
	if !ok {
		return false, nil
	}
	list, err := c.MembershipList(ctx, sess, actorID)
	if err != nil {
		return false, err
	}
	return containsThanked(list, domain.ThankedID{Kind: k, ID: id}.String()), nil
}

// RecordThanks appends serialized to the sender's list and writes it back
// without re-reading the durable log. It returns the updated list.
func (c *ThanksCache) RecordThanks(ctx context.Context, sess session.Store, actorID int64, serialized string) ([]string, error) {
	list, err := c.MembershipList(ctx, sess, actorID)
	if err != nil {
		return nil, err
	}
	updated := append(append(make([]string, 0, len(list)+1), list...), serialized)
	if err := sess.Set(ctx, SessionKey(actorID), updated); err != nil {
		return nil, fmt.Errorf("write session cache: %w", err)
	}
	return updated, nil
}

// containsThanked compares canonical forms so legacy "rev-<id>" entries
// match "revision-<id>".
func containsThanked(list []string, canonical string) bool {
	return lo.ContainsBy(list, func(s string) bool {
		return domain.CanonicalThankedID(s) == canonical
	})
}
