// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to the wiki host tables the
// thanks flow resolves targets against: users, revisions, log entries and
// blocks.
//
// All lookups return ErrNotFound when the row does not exist.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/tbourn/go-thanks-backend/internal/domain"
)

// ErrLogTypeNotAllowed is returned by GetAllowedLogEntry when the entry's type
// is not in the thankable allow-list. LogTypeError carries the offending type.
var ErrLogTypeNotAllowed = errors.New("log type not allowed")

// ErrLogPerformerDeleted is returned when the performer of a log entry has
// been suppressed.
var ErrLogPerformerDeleted = errors.New("log performer deleted")

// LogTypeError wraps ErrLogTypeNotAllowed with the rejected type.
type LogTypeError struct{ Type string }

func (e *LogTypeError) Error() string { return "log type not allowed: " + e.Type }

// Unwrap lets errors.Is match ErrLogTypeNotAllowed.
func (e *LogTypeError) Unwrap() error { return ErrLogTypeNotAllowed }

// GetUserByActor fetches the user owning actorID.
func GetUserByActor(ctx context.Context, db *gorm.DB, actorID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("actor_id = ?", actorID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetRevision fetches a revision with its page.
func GetRevision(ctx context.Context, db *gorm.DB, id int64) (*domain.Revision, error) {
	var r domain.Revision
	if err := db.WithContext(ctx).Preload("Page").First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// HasPreviousRevision reports whether rev has an older revision on its page.
func HasPreviousRevision(ctx context.Context, db *gorm.DB, rev *domain.Revision) (bool, error) {
	if rev.ParentID != nil && *rev.ParentID > 0 {
		return true, nil
	}
	var n int64
	err := db.WithContext(ctx).Model(&domain.Revision{}).
		Where("page_id = ? AND id < ?", rev.PageID, rev.ID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// GetLogEntry fetches a log entry by id.
func GetLogEntry(ctx context.Context, db *gorm.DB, id int64) (*domain.LogEntry, error) {
	var e domain.LogEntry
	if err := db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// GetAllowedLogEntry fetches a log entry and rejects it when its type is not
// allowed (a *LogTypeError) or its performer was suppressed
// (ErrLogPerformerDeleted). An allow-list entry matches either "type" or
// "type/subtype".
func GetAllowedLogEntry(ctx context.Context, db *gorm.DB, id int64, allowed []string) (*domain.LogEntry, error) {
	e, err := GetLogEntry(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if !LogTypeAllowed(e, allowed) {
		return nil, &LogTypeError{Type: e.Type}
	}
	if e.DeletedUser {
		return nil, ErrLogPerformerDeleted
	}
	return e, nil
}

// LogTypeAllowed reports whether e matches the allow-list.
func LogTypeAllowed(e *domain.LogEntry, allowed []string) bool {
	full := e.Type + "/" + e.Subtype
	for _, a := range allowed {
		if a == e.Type || a == full {
			return true
		}
	}
	return false
}

// ActiveBlocks returns the blocks on actorID in force at now.
func ActiveBlocks(ctx context.Context, db *gorm.DB, actorID int64, now time.Time) ([]domain.Block, error) {
	var out []domain.Block
	if err := db.WithContext(ctx).Where("actor_id = ?", actorID).Find(&out).Error; err != nil {
		return nil, err
	}
	return lo.Filter(out, func(b domain.Block, _ int) bool { return b.Active(now) }), nil
}

// HostStore binds the host lookups to a handle and satisfies the service
// layer's target and permission interfaces.
type HostStore struct {
	DB              *gorm.DB
	AllowedLogTypes []string
	Now             func() time.Time
}

func (s *HostStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// UserByActor implements the user lookup.
func (s *HostStore) UserByActor(ctx context.Context, actorID int64) (*domain.User, error) {
	return GetUserByActor(ctx, s.DB, actorID)
}

// Revision implements the revision lookup.
func (s *HostStore) Revision(ctx context.Context, id int64) (*domain.Revision, error) {
	return GetRevision(ctx, s.DB, id)
}

// HasPreviousRevision implements the page-creation check.
func (s *HostStore) HasPreviousRevision(ctx context.Context, rev *domain.Revision) (bool, error) {
	return HasPreviousRevision(ctx, s.DB, rev)
}

// LogEntry implements the thankable log entry lookup.
func (s *HostStore) LogEntry(ctx context.Context, id int64) (*domain.LogEntry, error) {
	return GetAllowedLogEntry(ctx, s.DB, id, s.AllowedLogTypes)
}

// IsBlockedFromThanking reports a sitewide block or one restricting "thanks".
func (s *HostStore) IsBlockedFromThanking(ctx context.Context, actorID int64) (bool, error) {
	blocks, err := ActiveBlocks(ctx, s.DB, actorID, s.now())
	if err != nil {
		return false, err
	}
	for i := range blocks {
		if blocks[i].Sitewide || blocks[i].Restricts("thanks") {
			return true, nil
		}
	}
	return false, nil
}

// IsBlockedFromTitle reports a block covering title.
func (s *HostStore) IsBlockedFromTitle(ctx context.Context, actorID int64, title string) (bool, error) {
	blocks, err := ActiveBlocks(ctx, s.DB, actorID, s.now())
	if err != nil {
		return false, err
	}
	for i := range blocks {
		if blocks[i].CoversTitle(title) {
			return true, nil
		}
	}
	return false, nil
}
