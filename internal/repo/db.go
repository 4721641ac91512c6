// Package repo is the GORM persistence layer: the host wiki's users, pages,
// revisions, log entries and blocks, the thanks log, and idempotency records.
package repo

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-thanks-backend/internal/config"
	"github.com/tbourn/go-thanks-backend/internal/domain"
)

const slowQueryThreshold = 200 * time.Millisecond

// sqlitePragmas are applied to every pooled connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"busy_timeout(5000)",
}

// Handles pairs the write connection with the one used for lag-tolerant
// reads. Replica is Primary unless a postgres replica is configured.
type Handles struct {
	Primary *gorm.DB
	Replica *gorm.DB
}

// Open connects per cfg. With trace set, every handle gets the OTel plugin.
func Open(cfg config.DBConfig, trace bool) (*Handles, error) {
	var (
		primary *gorm.DB
		err     error
	)
	switch cfg.Driver {
	case "", "sqlite":
		primary, err = OpenSQLite(cfg.Path)
	case "postgres":
		primary, err = OpenPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported DB_DRIVER: " + cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	h := &Handles{Primary: primary, Replica: primary}
	if cfg.Driver == "postgres" && cfg.ReplicaDSN != "" {
		if h.Replica, err = OpenPostgres(cfg.ReplicaDSN); err != nil {
			return nil, fmt.Errorf("replica: %w", err)
		}
	}

	if !trace {
		return h, nil
	}
	for _, db := range h.distinct() {
		if err := Instrument(db); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Close releases every distinct pool.
func (h *Handles) Close() error {
	var errs []error
	for _, db := range h.distinct() {
		if sqlDB, err := db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

func (h *Handles) distinct() []*gorm.DB {
	if h.Replica == nil || h.Replica == h.Primary {
		return []*gorm.DB{h.Primary}
	}
	return []*gorm.DB{h.Primary, h.Replica}
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	q := url.Values{"_pragma": sqlitePragmas}
	db, err := gorm.Open(sqlite.Open(path+"?"+q.Encode()), gormConfig())
	if err != nil {
		return nil, err
	}
	tunePool(db, 10)
	return db, nil
}

// OpenPostgres opens a PostgreSQL connection from a DSN.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	tunePool(db, 25)
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logger.Warn),
	}
}

// newGormLogger routes GORM's slow-query and error lines through zerolog.
func newGormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(gormWriter{}, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		Colorful:                  false,
	})
}

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

// Instrument adds OTel spans to db. Metrics come from Prometheus instead.
func Instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

func tunePool(db *gorm.DB, maxOpen int) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
}

// AutoMigrate creates or updates every table the service reads or writes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Block{},
		&domain.Page{},
		&domain.Revision{},
		&domain.LogEntry{},
		&domain.ThanksLog{},
		&domain.Idempotency{},
	)
}
