// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-thanks-backend/internal/domain"
)

// ThanksStats returns aggregate metadata for the thanks sent by actorID
// since the given time: the number of rows and the newest CreatedAt.
//
// When there are no rows the returned count is 0 and newest is nil.
func ThanksStats(ctx context.Context, db *gorm.DB, actorID int64, since time.Time) (count int64, newest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ThanksLog{}).Where("actor_id = ? AND created_at >= ?", actorID, since)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
