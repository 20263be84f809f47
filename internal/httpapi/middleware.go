package httpapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devbox-run/agent/internal/apierr"
)

// requestIDMiddleware stamps every request with a correlation ID, reusing
// an inbound X-Request-Id if the caller already supplied one. This is the
// one place the module uses google/uuid — idgen's short alphabet exists
// for process/session IDs, not request correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

// bypassPaths lists routes exempt from bearer-token auth (SPEC_FULL.md
// §6.1/§6.3; /health/live is a supplemental addition carried over from
// original_source's bypass list).
var bypassPaths = map[string]bool{
	"/health":        true,
	"/health/ready":  true,
	"/health/live":   true,
}

// authMiddleware rejects requests missing or mismatching
// "Authorization: Bearer <token>", except for the bypass paths above.
func authMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bypassPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) || strings.TrimPrefix(header, prefix) != token {
			apierr.Unauthorized401(c, "Invalid or missing bearer token")
			c.Abort()
			return
		}
		c.Next()
	}
}

// recoveryMiddleware converts a panic into the envelope's status:500 case
// instead of gin's default plain-text 500, grounded on
// original_source/error.rs's AppError::Panic arm.
func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		msg, ok := recovered.(string)
		if !ok {
			msg = "internal error"
		}
		apierr.Respond(c, apierr.New(apierr.StatusPanic, msg))
		c.Abort()
	})
}

// loggingMiddleware logs method/path/status/duration per request via
// logrus, matching the donor's logrusMiddleware idiom.
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path += "?" + c.Request.URL.RawQuery
		}

		c.Next()

		logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"status":    c.Writer.Status(),
			"duration":  time.Since(start).String(),
			"requestId": c.GetString("requestId"),
		}).Info("request")
	}
}

// corsMiddleware allows cross-origin requests from any client, matching
// the donor's permissive CORS posture for this kind of agent API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, HEAD, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
