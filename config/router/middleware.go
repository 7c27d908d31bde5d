package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/akeren/cv99x-waitlist/internal/log"
	apperrors "github.com/akeren/cv99x-waitlist/pkg/errors"
	"github.com/akeren/cv99x-waitlist/pkg/utils"
	"github.com/gin-gonic/gin"
)

const (
	correlationIDHeader = "X-Correlation-ID"
	maxCorrelationIDLen = 128

	MessagePayloadTooLarge = "Request payload too large"
)

type corsPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

func newCORSPolicy(raw string) corsPolicy {
	policy := corsPolicy{origins: make(map[string]struct{})}
	for _, origin := range splitList(raw) {
		if origin == "*" {
			policy.allowAll = true
			continue
		}
		policy.origins[origin] = struct{}{}
	}
	return policy
}

func (p corsPolicy) configured() bool {
	return p.allowAll || len(p.origins) > 0
}

func (p corsPolicy) allows(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// hstsPolicy defaults to on in production; HSTS_ENABLED overrides either way.
type hstsPolicy struct {
	enabled bool
	value   string
}

func newHSTSPolicy() hstsPolicy {
	appEnv := strings.ToLower(utils.GetEnvTrimmed("APP_ENV"))
	enabled := utils.GetEnvBoolOrDefault("HSTS_ENABLED", appEnv == "production" || appEnv == "prod")

	value := fmt.Sprintf("max-age=%d", utils.GetEnvPositiveIntOrDefault("HSTS_MAX_AGE", 31536000))
	if utils.GetEnvBoolOrDefault("HSTS_INCLUDE_SUBDOMAINS", true) {
		value += "; includeSubDomains"
	}

	return hstsPolicy{enabled: enabled, value: value}
}

// applies is true only for requests that reached us over HTTPS, directly or via a TLS-terminating proxy.
func (p hstsPolicy) applies(r *http.Request) bool {
	if !p.enabled {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

// recoveryMiddleware turns any panic below it into the generic 500 body.
func (routerService *RouterService) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		routerService.GetLogger(c).Error("Recovered from panic while handling request",
			"panic", fmt.Sprint(recovered),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, InternalServerErrorResult().ToJSON())
	})
}

// validCorrelationID accepts short printable ids; anything else is replaced with a fresh one.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLen {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(correlationIDHeader))
		if !validCorrelationID(id) {
			id = log.GenerateCorrelationID()
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), log.CorrelatedIDKey, id))
		c.Header(correlationIDHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlatedLogger := routerService.GetLogger(c)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), log.LoggerKeyForContext, correlatedLogger))
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		routerService.GetLogger(c).Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	hsts := routerService.middlewareConfig.HSTS

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if hsts.applies(c.Request) {
			h.Set("Strict-Transport-Security", hsts.value)
		}
		c.Next()
	}
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.middlewareConfig.MaxBodyBytes

	return func(c *gin.Context) {
		// Declared sizes are rejected up front; chunked bodies fail on read with *http.MaxBytesError.
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				ErrorResult(http.StatusRequestEntityTooLarge, MessagePayloadTooLarge).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware only adds headers for allow-listed origins. Other origins get no CORS
// headers, which makes the browser refuse the response.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	policy := routerService.middlewareConfig.CORS
	if !policy.configured() {
		routerService.logger.Warn("CORS_ALLOWED_ORIGIN not set; cross-origin requests will be denied")
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if !policy.allows(origin) {
			routerService.GetLogger(c).Warn("CORS origin not allowed", "origin", origin)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, X-Correlation-ID, X-Requested-With")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(apperrors.StatusNoContent)
			return
		}

		c.Next()
	}
}

// timeoutMiddleware puts a deadline on the request context. Handlers stay on the
// request goroutine because gin.Context is not safe for concurrent use.
func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	timeout := routerService.middlewareConfig.TimeoutDuration

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			routerService.GetLogger(c).Warn("Request timeout detected")
			c.AbortWithStatusJSON(http.StatusRequestTimeout,
				ErrorResult(apperrors.StatusRequestTimeout, "Request timeout").ToJSON())
		}
	}
}
