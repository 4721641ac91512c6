// Package httpapi assembles the Gin engine: middleware, operational
// endpoints and the versioned thanks API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-thanks-backend/docs"
	"github.com/tbourn/go-thanks-backend/internal/config"
	"github.com/tbourn/go-thanks-backend/internal/http/handlers"
	"github.com/tbourn/go-thanks-backend/internal/http/middleware"
	"github.com/tbourn/go-thanks-backend/internal/repo"
	"github.com/tbourn/go-thanks-backend/internal/services"
	"github.com/tbourn/go-thanks-backend/internal/session"
)

// Deps are the long-lived resources the routes are built on. The caller owns
// them and closes them on shutdown.
type Deps struct {
	DB       *repo.Handles
	Sessions session.Manager
	Notifier services.Notifier
}

// corsAllowHeaders lists request headers browsers may send cross-origin.
var corsAllowHeaders = []string{
	"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization",
	middleware.HeaderActorID, middleware.HeaderIdempotencyKey, "If-None-Match",
}

// corsExposeHeaders lists response headers readable cross-origin.
var corsExposeHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}

// RegisterRoutes installs the middleware chain and every route on r.
//
// Order: tracing, request id, actor, access log, recovery, body limit, gzip,
// metrics, idempotency, rate limit, CORS, security headers. Idempotency runs
// before the limiter so replays are not charged. Sessions are bound on the
// API group only.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Actor())
	if cfg.LogPretty {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}))
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.Metrics())

	idem := &repo.IdempotencyStore{DB: deps.DB.Primary, TTL: cfg.IdempotencyTTL}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, actorID int64, scope, key string, now time.Time) (bool, error) {
			_, found, err := idem.Lookup(ctx, actorID, scope, key, now)
			return found, err
		}))
	r.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByActorOrIP()).
		WithWriteCost(cfg.RateWriteCost).
		Handler())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		EnablePolicy:  true,
		PrivatePrefix: cfg.APIBasePath,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := newHandlers(deps, cfg, idem)
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.Session(deps.Sessions, middleware.SessionOptions{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Security.EnableHSTS,
	}))
	api.POST("/thank", h.Thank)
	api.GET("/thank-link", h.ThankLink)
	api.GET("/thanked", h.ListThanked)
}

// corsMiddleware allows any origin without credentials when origins is
// empty. Otherwise listed origins are echoed and may send the session cookie.
// ACAO is set before gin-contrib/cors runs so it is present even on requests
// without an Origin header.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  corsAllowHeaders,
		ExposeHeaders: corsExposeHeaders,
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Header("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := lo.SliceToMap(origins, func(o string) (string, struct{}) { return o, struct{}{} })
	base.AllowOrigins = origins
	base.AllowCredentials = true
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Writer.Header().Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// newHandlers builds the services over deps and binds them to handlers.
func newHandlers(deps Deps, cfg config.Config, idem *repo.IdempotencyStore) *handlers.Handlers {
	host := &repo.HostStore{DB: deps.DB.Primary, AllowedLogTypes: cfg.Thanks.AllowedLogTypes}
	thanksLog := repo.NewThanksLogStore(deps.DB)
	cache := services.NewThanksCache(thanksLog, cfg.Thanks.MaxLoadThankedPeriod)

	thanksSvc := &services.ThanksService{
		Cache:       cache,
		Log:         thanksLog,
		Targets:     host,
		Permissions: host,
		Notifier:    deps.Notifier,
		SendToBots:  cfg.Thanks.SendToBots,
	}
	linkSvc := &services.LinkService{
		Cache:                cache,
		Targets:              host,
		Permissions:          host,
		AllowedLogTypes:      cfg.Thanks.AllowedLogTypes,
		PrivilegedGroups:     cfg.Thanks.PrivilegedGroups,
		SendToBots:           cfg.Thanks.SendToBots,
		ConfirmationRequired: cfg.Thanks.ConfirmationRequired,
	}

	stats := func(ctx context.Context, actorID int64, since time.Time) (int64, *time.Time, error) {
		return repo.ThanksStats(ctx, deps.DB.Primary, actorID, since)
	}

	return handlers.New(thanksSvc, linkSvc).
		WithIdempotency(idem).
		WithStats(stats, cfg.Thanks.MaxLoadThankedPeriod)
}

// limitBody caps request bodies at maxBytes; reads past it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
