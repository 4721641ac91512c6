package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-thanks-backend/internal/domain"
)

const defaultIdempotencyTTL = 24 * time.Hour

// GetIdempotency returns the unexpired record for (actorID, scope, key), or
// ErrNotFound. Anonymous actors and blank scopes never match.
func GetIdempotency(ctx context.Context, db *gorm.DB, actorID int64, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if actorID <= 0 || strings.TrimSpace(scope) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("actor_id = ? AND scope = ? AND key = ? AND expires_at > ?", actorID, scope, key, now).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency stores the outcome for (actorID, scope, key). An expired
// record under the same key is overwritten in place; a live one makes the
// call fail with ErrDuplicate.
func CreateIdempotency(ctx context.Context, db *gorm.DB, actorID int64, scope, key, recipient string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Scope:     scope,
		Key:       key,
		Recipient: recipient,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}, {Name: "scope"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"id", "recipient", "status", "created_at", "expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "idempotency.expires_at <= ?", Vars: []any{now}},
		}},
	}).Create(rec)
	switch {
	case res.Error != nil && isDuplicate(res.Error):
		return nil, ErrDuplicate
	case res.Error != nil:
		return nil, res.Error
	case res.RowsAffected == 0:
		return nil, ErrDuplicate
	}
	return rec, nil
}

// PurgeIdempotency deletes records that expired at or before now and
// reports how many went.
func PurgeIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}

// IdempotencyStore adapts the helpers above to the handler's replay store.
// TTL defaults to one day.
type IdempotencyStore struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Lookup returns the recipient stored for a live key.
func (s *IdempotencyStore) Lookup(ctx context.Context, actorID int64, scope, key string, now time.Time) (string, bool, error) {
	rec, err := GetIdempotency(ctx, s.DB, actorID, scope, key, now)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return rec.Recipient, true, nil
}

// Remember stores a completed outcome. Losing a race to a concurrent
// request with the same key is not an error.
func (s *IdempotencyStore) Remember(ctx context.Context, actorID int64, scope, key, recipient string, status int) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	_, err := CreateIdempotency(ctx, s.DB, actorID, scope, key, recipient, status, ttl)
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}
