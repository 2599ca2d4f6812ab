// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stroomalert/stroomalert/app/dto"
	"github.com/stroomalert/stroomalert/app/handlers"
	"github.com/stroomalert/stroomalert/app/middleware"
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app           *fiber.App
	engineHandler handlers.EngineHandlerInterface
	cfg           *config.ProductionConfig
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(engineHandler handlers.EngineHandlerInterface, cfg *config.ProductionConfig) Router {
	app := fiber.New(fiber.Config{
		AppName:      "StroomAlert API",
		ServerHeader: "StroomAlert",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:           app,
		engineHandler: engineHandler,
		cfg:           cfg,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.PrometheusPath
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.engineHandler.Health)

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Read-only observability endpoints
	api.Get("/status", r.engineHandler.GetStatus)
	api.Get("/incidents", r.engineHandler.ListIncidents)
	api.Get("/campaigns", r.engineHandler.ListCampaigns)
	api.Get("/events", r.engineHandler.ListEvents)
	api.Get("/report.xlsx", r.engineHandler.ExportReport)

	// Control endpoints behind the API key gate
	apiKey := middleware.NewAPIKeyMiddleware(r.cfg.Security)
	api.Post("/poll", r.engineHandler.TriggerPoll, apiKey.Require())

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000, // 1 year
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: r.cfg.Security.AllowedMethods,
		AllowHeaders: r.cfg.Security.AllowedHeaders,
		ExposeHeaders: []string{
			"X-Request-ID",
		},
		MaxAge: utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Structured request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Prometheus HTTP metrics
	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start begins listening for HTTP requests
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "Endpoint not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":   c.Path(),
				"method": c.Method(),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// generateRequestID creates a random request identifier
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
