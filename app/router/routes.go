// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/handlers"
	"github.com/amirphl/Susanoo/app/middleware"
	"github.com/amirphl/Susanoo/config"
	"github.com/amirphl/Susanoo/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/swaggo/swag"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handlers groups the endpoint implementations the router mounts.
type Handlers struct {
	Redirect handlers.RedirectHandlerInterface
	Links    handlers.LinkHandlerInterface
	APIKeys  handlers.APIKeyHandlerInterface
	Auth     *middleware.AuthMiddleware
}

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ProductionConfig
	handlers Handlers
	checks   map[string]HealthCheck
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, checks map[string]HealthCheck) *FiberRouter {
	fc := fiber.Config{
		AppName:      "Susanoo Link Shortener",
		ServerHeader: "Susanoo",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	}
	if cfg.Server.ProxyHeader != "" {
		fc.ProxyHeader = cfg.Server.ProxyHeader
		fc.TrustProxy = len(cfg.Server.TrustedProxies) > 0
		fc.TrustProxyConfig = fiber.TrustProxyConfig{Proxies: cfg.Server.TrustedProxies}
	}

	return &FiberRouter{
		app:      fiber.New(fc),
		cfg:      cfg,
		handlers: h,
		checks:   checks,
	}
}

// SetupRoutes configures all application routes. The short code catch-all is
// registered last so it never shadows a fixed path.
func (r *FiberRouter) SetupRoutes() {
	logrus.Info("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")
	api.Get("/health", r.healthCheck)
	api.Get("/swagger.json", r.serveSwaggerJSON)

	api.Use(limiter.New(limiter.Config{
		Max:          r.cfg.Security.GlobalRateLimit,
		Expiration:   r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string { return c.IP() },
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	auth := r.handlers.Auth

	links := api.Group("/links")
	links.Post("/", auth.OptionalAuth(), r.handlers.Links.CreateLink)
	links.Get("/", auth.Authenticate(), r.handlers.Links.ListLinks)
	links.Delete("/:shortCode", auth.Authenticate(), r.handlers.Links.DeleteLink)
	links.Get("/:shortCode/stats", auth.Authenticate(), r.handlers.Links.GetStats)
	links.Get("/:shortCode/clicks/export", auth.Authenticate(), r.handlers.Links.ExportClicks)
	links.Get("/:shortCode/qr", auth.Authenticate(), r.handlers.Links.GetQRCode)

	api.Get("/stats", auth.Authenticate(), r.handlers.Links.GetWorkspaceStats)

	keys := api.Group("/user/api-keys", auth.Authenticate())
	keys.Get("/", r.handlers.APIKeys.ListAPIKeys)
	keys.Post("/", r.handlers.APIKeys.CreateAPIKey)
	keys.Delete("/:id", r.handlers.APIKeys.RevokeAPIKey)

	redirectLimiter := limiter.New(limiter.Config{
		Max:          r.cfg.Security.RedirectRateLimit,
		Expiration:   r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string { return c.IP() },
		LimitReached: rateLimitReached,
	})
	r.app.Get(r.cfg.Shortener.InterstitialPath, r.handlers.Redirect.Interstitial)
	r.app.Get("/r/:shortCode", redirectLimiter, r.handlers.Redirect.Redirect)
	r.app.Get("/:shortCode", redirectLimiter, r.handlers.Redirect.Redirect)

	r.app.Use(r.notFoundHandler)

	logrus.Info("Routes configured successfully")
}

func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header:    utils.HeaderRequestID,
		Generator: uuid.NewString,
	}))

	r.app.Use(middleware.Metrics())

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                r.cfg.Security.HSTSMaxAge,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{utils.HeaderRequestID},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				return strings.Contains(c.Get(fiber.HeaderContentType), "spreadsheetml")
			},
		}))
	}

	// Only the health endpoint is cached; redirects must always hit the resolver.
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != "/api/v1/health"
		},
		Expiration: utils.HealthCacheTTL,
	}))

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health" || c.Path() == r.cfg.Metrics.Path
			},
		}))
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			logrus.WithFields(logrus.Fields{
				"request_id": c.Get(utils.HeaderRequestID),
				"path":       c.Path(),
				"method":     c.Method(),
				"ip":         c.IP(),
				"panic":      e,
			}).Error("panic recovered")
		},
	}))
}

func (r *FiberRouter) Start(address string) error {
	logrus.WithField("address", address).Info("Starting server")
	return r.app.Listen(address)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := dto.HealthResponse{
		Status:    "ok",
		Version:   r.cfg.Deployment.Version,
		Timestamp: utils.UTCNow().Format(time.RFC3339),
		Checks:    make(map[string]string, len(r.checks)),
	}
	status := fiber.StatusOK
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			res.Checks[name] = err.Error()
			res.Status = "degraded"
			status = fiber.StatusServiceUnavailable
			continue
		}
		res.Checks[name] = "ok"
	}

	return c.Status(status).JSON(dto.APIResponse{
		Success: status == fiber.StatusOK,
		Message: "Service health",
		Data:    res,
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error:   dto.ErrorDetail{Code: "SWAGGER_LOAD_ERROR"},
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Get(utils.HeaderRequestID),
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
	})
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	logrus.WithError(err).WithField("status", code).Error("request failed")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Get(utils.HeaderRequestID),
			},
		},
	})
}
