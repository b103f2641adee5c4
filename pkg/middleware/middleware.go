package middleware

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dwikikusuma/cartflow/pkg/apperr"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserIDHeader    = "X-Auth-User-Id"
	RequestIDHeader = "X-Request-Id"

	userIDKey = "user_id"
)

// Logging attaches a request-scoped logger and logs one line per request.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(RequestIDHeader, reqID)

		l := base.With("request_id", reqID)
		c.Request = c.Request.WithContext(logger.WithCtx(c.Request.Context(), l))

		c.Next()

		l.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}
}

func Metrics(rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.ObserveRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
			float64(time.Since(start).Milliseconds()))
	}
}

// RequireUser rejects requests without the caller identity header.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(401, gin.H{"code": "UNAUTHENTICATED", "error": "missing " + UserIDHeader})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// Fail writes err as a JSON error body with the status derived from its kind.
func Fail(c *gin.Context, err error) {
	status, code, msg := apperr.HTTPStatus(err)
	if status >= 500 {
		logger.FromCtx(c.Request.Context(), nil).Error("request failed", slog.Any("err", err))
	}
	c.JSON(status, gin.H{"code": code, "error": msg})
}
