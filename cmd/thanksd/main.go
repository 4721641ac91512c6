// Command thanksd serves the thanks API.
//
// Configuration is read from the environment (and an optional .env file);
// see internal/config for the variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-thanks-backend/internal/config"
	httpapi "github.com/tbourn/go-thanks-backend/internal/http"
	"github.com/tbourn/go-thanks-backend/internal/notify"
	"github.com/tbourn/go-thanks-backend/internal/observability"
	"github.com/tbourn/go-thanks-backend/internal/repo"
	"github.com/tbourn/go-thanks-backend/internal/services"
	"github.com/tbourn/go-thanks-backend/internal/session"
	"github.com/tbourn/go-thanks-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stdout)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("thanksd exited")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}

	db, err := repo.Open(cfg.DB, cfg.OTEL.Enabled)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer closeQuietly("db", db.Close)
	if err := repo.AutoMigrate(db.Primary); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if n, err := repo.PurgeIdempotency(ctx, db.Primary, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Msg("purge expired idempotency keys")
	} else if n > 0 {
		log.Info().Int64("purged", n).Msg("expired idempotency keys removed")
	}

	sessions, err := newSessions(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	defer closeQuietly("sessions", sessions.Close)

	notifier, closeNotifier, err := newNotifier(cfg.Notify)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	defer closeQuietly("notifier", closeNotifier)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:       db,
		Sessions: sessions,
		Notifier: notifier,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("db", cfg.DB.Driver).
			Str("sessions", cfg.Session.Backend).
			Str("notify", cfg.Notify.Backend).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	return nil
}

// newSessions builds the configured session backend.
func newSessions(ctx context.Context, cfg config.SessionConfig) (session.Manager, error) {
	switch cfg.Backend {
	case "", "memory":
		return session.NewMemoryManager(cfg.TTL, cfg.MaxEntries), nil
	case "redis":
		return session.NewRedisManager(ctx, session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// newNotifier builds the configured notification transport and its closer.
func newNotifier(cfg config.NotifyConfig) (services.Notifier, func() error, error) {
	switch cfg.Backend {
	case "", "log":
		return &notify.LogEmitter{}, func() error { return nil }, nil
	case "nats":
		em, err := notify.NewNATSEmitter(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		return em, em.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify backend %q", cfg.Backend)
	}
}

func closeQuietly(what string, fn func() error) {
	if err := fn(); err != nil {
		log.Warn().Err(err).Str("component", what).Msg("close failed")
	}
}
