package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldnet/nmsportal/pkg/logger"
)

// Logger writes a concise structured access log for each request. When the
// tenant is already resolved its name is included so multi-tenant traffic can
// be filtered per organization.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if org, ok := OrganizationFromContext(c); ok {
			fields = append(fields, zap.String("organization", org.Name))
		}

		logger.WithModule("http").Info("request", fields...)
	}
}
