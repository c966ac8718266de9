package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoiceflow/internal/logger"
	"go.uber.org/zap"
)

// requestLogger logs one line per request with trace correlation when an
// active span is on the request context.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.FromContext(c.Request.Context()).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
