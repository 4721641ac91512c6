// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the durable thanks log: an append-only
// table of thanks records and the windowed "recently thanked by" read used to
// populate the per-session dedup cache.
//
// Error semantics:
//   - Reads return an empty slice (never ErrNotFound) when nothing matches.
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/tbourn/go-thanks-backend/internal/domain"
)

// ListThankedIDs returns the serialized identifiers thanked by actorID at or
// after since, newest first. Duplicate rows collapse to their newest
// occurrence.
func ListThankedIDs(ctx context.Context, db *gorm.DB, actorID int64, since time.Time) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.ThanksLog{}).
		Where("actor_id = ? AND created_at >= ?", actorID, since).
		Order("created_at DESC").
		Order("id DESC").
		Pluck("thank_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return lo.Uniq(ids), nil
}

// CreateThanksLog appends rec. ID and CreatedAt are filled in when empty.
func CreateThanksLog(ctx context.Context, db *gorm.DB, rec *domain.ThanksLog) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Source == "" {
		rec.Source = "undefined"
	}
	return db.WithContext(ctx).Create(rec).Error
}

// ThanksLogStore exposes the thanks log over the primary/replica pair:
// appends go to the primary, windowed reads to the replica.
type ThanksLogStore struct {
	Primary *gorm.DB
	Replica *gorm.DB
}

// NewThanksLogStore wires a store from opened handles.
func NewThanksLogStore(h *Handles) *ThanksLogStore {
	return &ThanksLogStore{Primary: h.Primary, Replica: h.Replica}
}

// QueryThankedIDs reads from the replica (falling back to the primary).
func (s *ThanksLogStore) QueryThankedIDs(ctx context.Context, actorID int64, since time.Time) ([]string, error) {
	db := s.Replica
	if db == nil {
		db = s.Primary
	}
	return ListThankedIDs(ctx, db, actorID, since)
}

// AppendThanks writes rec to the primary.
func (s *ThanksLogStore) AppendThanks(ctx context.Context, rec *domain.ThanksLog) error {
	return CreateThanksLog(ctx, s.Primary, rec)
}
