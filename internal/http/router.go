// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
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
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/trueai/go-detect-backend/internal/config"
	"github.com/trueai/go-detect-backend/internal/domain"
	"github.com/trueai/go-detect-backend/internal/http/handlers"
	"github.com/trueai/go-detect-backend/internal/http/middleware"
	"github.com/trueai/go-detect-backend/internal/repo"
	"github.com/trueai/go-detect-backend/internal/services"
	"github.com/trueai/go-detect-backend/internal/staging"
)

// chatRepoShim adapts the repository free functions to the services.ChatRepo
// interface expected by the services layer. It binds the chats collection so
// services stay decoupled from the concrete repo package while reusing
// existing functions.
type chatRepoShim struct {
	col *mongo.Collection
}

// CreateChat proxies repo.CreateChat.
func (s chatRepoShim) CreateChat(ctx context.Context, identity, email, title string, msgs []domain.Message) (*domain.Chat, error) {
	return repo.CreateChat(ctx, s.col, identity, email, title, msgs)
}

// AppendMessages proxies repo.AppendMessages.
func (s chatRepoShim) AppendMessages(ctx context.Context, chatID string, msgs []domain.Message) error {
	return repo.AppendMessages(ctx, s.col, chatID, msgs)
}

// GetChat proxies repo.GetChat.
func (s chatRepoShim) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, s.col, chatID)
}

// ListChatsByEmail proxies repo.ListChatsByEmail.
func (s chatRepoShim) ListChatsByEmail(ctx context.Context, email string) ([]domain.Chat, error) {
	return repo.ListChatsByEmail(ctx, s.col, email)
}

// ListChatsByIdentity proxies repo.ListChatsByIdentity.
func (s chatRepoShim) ListChatsByIdentity(ctx context.Context, identity string) ([]domain.Chat, error) {
	return repo.ListChatsByIdentity(ctx, s.col, identity)
}

// DeleteChat proxies repo.DeleteChat.
func (s chatRepoShim) DeleteChat(ctx context.Context, chatID, ownerEmail string) (int64, error) {
	return repo.DeleteChat(ctx, s.col, chatID, ownerEmail)
}

// DeleteChatsByEmail proxies repo.DeleteChatsByEmail.
func (s chatRepoShim) DeleteChatsByEmail(ctx context.Context, email string) (int64, error) {
	return repo.DeleteChatsByEmail(ctx, s.col, email)
}

// DeleteChatsByIdentity proxies repo.DeleteChatsByIdentity.
func (s chatRepoShim) DeleteChatsByIdentity(ctx context.Context, identity string) (int64, error) {
	return repo.DeleteChatsByIdentity(ctx, s.col, identity)
}

// Deps carries the externally constructed dependencies the router needs.
// All fields are required.
type Deps struct {
	DB         *mongo.Database
	Store      services.ObjectStore
	Classifier services.MediaClassifier
	Staging    *staging.Store
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (upload ceiling plus form overhead)
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
//
// It returns an error when a dependency cannot be constructed, e.g. a
// malformed webhook signing secret.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) error {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit: the media ceiling plus slack for the
	// multipart framing and form fields.
	r.Use(limitBody(cfg.MaxUploadBytes + (1 << 20)))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true,
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

	// Dependency injection: services ← repo/storage/inference
	chatRepo := chatRepoShim{col: deps.DB.Collection(repo.ChatsCollection)}
	analysisSvc := &services.AnalysisService{
		Repo:       chatRepo,
		Store:      deps.Store,
		Classifier: deps.Classifier,
		Staging:    deps.Staging,
	}
	chatSvc := services.NewChatService(chatRepo, deps.Store)
	webhookSvc, err := services.NewWebhookService(cfg.Clerk.WebhookSecret, chatSvc)
	if err != nil {
		return err
	}
	h := handlers.New(analysisSvc, chatSvc, webhookSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Media analysis
		api.POST("/analysis", h.Analyze)

		// Chat history
		api.GET("/chats", h.ListChats)
		api.GET("/chats/:id", h.GetChat)
		api.DELETE("/chats/:id", h.DeleteChat)
		api.DELETE("/chats", h.DeleteAllChats)

		// Identity-provider webhooks
		api.POST("/webhooks/clerk", h.ClerkWebhook)
	}

	return nil
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
