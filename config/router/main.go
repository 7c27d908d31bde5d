package router

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/akeren/cv99x-waitlist/internal/log"
	apperrors "github.com/akeren/cv99x-waitlist/pkg/errors"
	"github.com/akeren/cv99x-waitlist/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	// DefaultTimeoutDuration is the default request timeout
	DefaultTimeoutDuration = 30 * time.Second

	// DefaultMaxBodyBytes caps request bodies unless MAX_REQUEST_BODY_BYTES says otherwise.
	DefaultMaxBodyBytes = 1 << 20
)

type MiddlewareConfig struct {
	TimeoutDuration time.Duration
	MaxBodyBytes    int64
	CORS            corsPolicy
	HSTS            hstsPolicy
}

type RouterService struct {
	engine           *gin.Engine
	server           *http.Server
	logger           *log.Logger
	middlewareConfig *MiddlewareConfig
	metricsRegistry  *prometheus.Registry

	handlerToControllerMap map[string]*RESTController
}

type RouterConfig struct {
	RequestTimeout time.Duration
}

// newMiddlewareConfig resolves every env-driven middleware setting once, at construction.
func newMiddlewareConfig(routerConfig *RouterConfig) *MiddlewareConfig {
	timeout := DefaultTimeoutDuration
	if routerConfig != nil && routerConfig.RequestTimeout > 0 {
		timeout = routerConfig.RequestTimeout
	}

	return &MiddlewareConfig{
		TimeoutDuration: timeout,
		MaxBodyBytes:    int64(utils.GetEnvPositiveIntOrDefault("MAX_REQUEST_BODY_BYTES", DefaultMaxBodyBytes)),
		CORS:            newCORSPolicy(os.Getenv("CORS_ALLOWED_ORIGIN")),
		HSTS:            newHSTSPolicy(),
	}
}

func CreateRouterService(logger *log.Logger, routerConfig *RouterConfig) *RouterService {
	if mode := utils.GetEnvTrimmed("GIN_MODE"); mode != "" {
		logger.Info("Setting Gin mode", "mode", mode)
		gin.SetMode(mode)
	}

	ginRouter := gin.New()
	ginRouter.HandleMethodNotAllowed = true
	ginRouter.RedirectTrailingSlash = true

	rs := &RouterService{
		engine:                 ginRouter,
		logger:                 logger,
		middlewareConfig:       newMiddlewareConfig(routerConfig),
		handlerToControllerMap: make(map[string]*RESTController),
	}

	ginRouter.Use(rs.recoveryMiddleware())

	if utils.IsTracingEnabled() {
		ginRouter.Use(otelgin.Middleware(utils.OTelServiceName()))
		logger.Info("Tracing middleware enabled")
	}

	rs.configureTrustedProxies(os.Getenv("TRUSTED_PROXIES"))

	rs.mountMetrics()

	ginRouter.Use(
		rs.securityHeadersMiddleware(),
		rs.maxBodySizeMiddleware(),
		rs.corsMiddleware(),
		rs.timeoutMiddleware(),
		rs.correlationIDMiddleware(),
		rs.loggerInjectionMiddleware(),
		rs.requestLoggingMiddleware(),
	)

	ginRouter.NoRoute(func(c *gin.Context) {
		rs.GetLogger(c).Warn("Route not found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, NotFoundResult("Route not found").ToJSON())
	})

	ginRouter.NoMethod(func(c *gin.Context) {
		rs.GetLogger(c).Warn("Method not allowed", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.JSON(http.StatusMethodNotAllowed, ErrorResult(apperrors.StatusMethodNotAllowed, "Method not allowed").ToJSON())
	})

	timeout := rs.middlewareConfig.TimeoutDuration
	rs.server = &http.Server{
		Addr:    ":8080",
		Handler: ginRouter,

		// Handlers run on the server goroutine; these bound a slow client or handler.
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized", "request_timeout", timeout.String(), "max_body_bytes", rs.middlewareConfig.MaxBodyBytes)
	return rs
}

// configureTrustedProxies trusts nothing unless TRUSTED_PROXIES lists CIDRs/IPs,
// so ClientIP() cannot be spoofed through X-Forwarded-For. "*" trusts everyone.
func (routerService *RouterService) configureTrustedProxies(raw string) {
	proxies := parseTrustedProxies(raw)

	if err := routerService.engine.SetTrustedProxies(proxies); err != nil {
		routerService.logger.Error("Invalid TRUSTED_PROXIES; disabling trusted proxies", "error", err)
		_ = routerService.engine.SetTrustedProxies(nil)
		return
	}

	if proxies == nil {
		routerService.logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}
}

func parseTrustedProxies(raw string) []string {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return nil
	case "*":
		return []string{"0.0.0.0/0", "::/0"}
	}

	return splitList(raw)
}

// splitList splits a comma separated env value, dropping blanks. It returns nil for no entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithCorrelationID(c.Request.Context())
}

// MetricsRegisterer lets domains register their own collectors next to the HTTP ones.
// It returns nil when metrics are disabled.
func (routerService *RouterService) MetricsRegisterer() prometheus.Registerer {
	if routerService.metricsRegistry == nil {
		return nil
	}
	return routerService.metricsRegistry
}

func (routerService *RouterService) Cleanup() {
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	addr := ":" + utils.GetEnvTrimmedOrDefault("APP_PORT", "8080")
	routerService.server.Addr = addr

	routerService.logger.Info("Starting HTTP server", "addr", addr)

	if err := routerService.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		routerService.logger.Error("Failed to start HTTP server", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully")
	return routerService.server.Shutdown(ctx)
}
