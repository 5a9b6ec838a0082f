// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/carebook/go-booking-backend/internal/config"
	"github.com/carebook/go-booking-backend/internal/feature"
	"github.com/carebook/go-booking-backend/internal/http/handlers"
	"github.com/carebook/go-booking-backend/internal/http/middleware"
	"github.com/carebook/go-booking-backend/internal/model"
	"github.com/carebook/go-booking-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, models *model.Registry, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/registry
	catalog := services.NewSlotCatalog(db)
	catalog.WindowDays = cfg.Reco.WindowDays
	catalog.MaxCandidates = cfg.Reco.MaxCandidates

	recoSvc := services.NewRecommenderService(db, catalog, models)
	recoSvc.BlendWeight = cfg.Reco.BlendWeight
	recoSvc.Extractor = &feature.Extractor{RecentWindowDays: cfg.Reco.RecentWindowDays}

	bookingSvc := &services.BookingService{DB: db}
	reminderSvc := &services.ReminderService{DB: db}

	retrainSvc := services.NewRetrainService(db, models)
	retrainSvc.MinRows = cfg.Retrain.MinRows
	retrainSvc.RegressionMargin = cfg.Retrain.RegressionMargin
	retrainSvc.HoldoutRatio = cfg.Retrain.HoldoutRatio
	retrainSvc.Seed = cfg.Retrain.Seed

	h := handlers.New(&topKRecommender{svc: recoSvc, topK: cfg.Reco.TopK}, bookingSvc, reminderSvc, retrainSvc, models)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Recommendations
		api.POST("/recommendations", h.Recommend)
		api.POST("/reminder-slots", h.ReminderSlot)

		// Bookings
		api.POST("/bookings", h.ConfirmBooking)
		api.GET("/bookings", h.ListBookings)
		api.DELETE("/bookings/:id", h.CancelBooking)

		// Reminders
		api.PUT("/reminders", h.SetReminder)
		api.DELETE("/reminders", h.DeleteReminder)
		api.GET("/reminders/due", h.DueReminders)

		// Model administration
		api.POST("/admin/retrain", h.Retrain)
		api.GET("/admin/model", h.ModelInfo)
	}
}

// topKRecommender applies the configured default page size when the client
// does not ask for a specific k.
type topKRecommender struct {
	svc  *services.RecommenderService
	topK int
}

func (t *topKRecommender) Recommend(ctx context.Context, primaryID, secondaryID string, now time.Time, k int) (string, []services.RecommendedSlot, error) {
	if k <= 0 {
		k = t.topK
	}
	return t.svc.Recommend(ctx, primaryID, secondaryID, now, k)
}

func (t *topKRecommender) PreferredSlot(ctx context.Context, primaryID, secondaryID string) (*time.Time, error) {
	return t.svc.PreferredSlot(ctx, primaryID, secondaryID)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
