package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/nephra/internal/logger"
)

// AdminSecretHeader carries the shared admin credential.
const AdminSecretHeader = "X-Admin-Secret"

var (
	errMissingSecret = errors.New("missing admin secret")
	errBadSecret     = errors.New("invalid admin secret")
	errNoSecret      = errors.New("admin endpoints are disabled: no admin secret configured")
)

// requireAdmin rejects requests whose admin secret is absent or wrong.
// With no configured secret every admin request is rejected.
func requireAdmin(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if secret == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", errNoSecret)
			return
		}
		got := c.GetHeader(AdminSecretHeader)
		if got == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", errMissingSecret)
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			logger.Warn("Rejected admin request %s %s from %s", c.Request.Method, c.FullPath(), c.ClientIP())
			respondError(c, http.StatusUnauthorized, "unauthorized", errBadSecret)
			return
		}
		c.Next()
	}
}

// corsMiddleware allows the configured origins. No origins means
// same-origin only.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", AdminSecretHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(cfg)
}

// requestLogger logs every request at a level matching its status.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		method := strings.ToUpper(c.Request.Method)
		elapsed := time.Since(start).Milliseconds()

		switch {
		case status >= 500:
			logger.Error("HTTP %s %s %d (%dms)", method, path, status, elapsed)
		case status >= 400:
			logger.Warn("HTTP %s %s %d (%dms)", method, path, status, elapsed)
		default:
			logger.Debug("HTTP %s %s %d (%dms)", method, path, status, elapsed)
		}
	}
}
