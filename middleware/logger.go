package middleware

import (
	"time"

	"social_network/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLogMiddleware 访问日志
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if userID, ok := GetUserID(c); ok {
			fields = append(fields, zap.String("user_id", userID.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			utils.Error("request", fields...)
		case status >= 400:
			utils.Warn("request", fields...)
		default:
			utils.Info("request", fields...)
		}
	}
}
