package middleware

import (
	"fmt"

	"social_network/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware 统一错误处理中间件
// 捕获 panic 和未处理的错误，返回统一格式的错误响应
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// 记录 panic 信息
				utils.Error("panic recovered",
					zap.Any("panic", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				utils.CaptureError(fmt.Errorf("panic: %v", err))

				// 返回统一错误响应
				if !c.Writer.Written() {
					utils.InternalServerError(c, "internal server error")
				}

				// 终止后续处理
				c.Abort()
			}
		}()

		// 继续处理请求
		c.Next()

		// 检查是否有错误（通过 c.Errors）
		if len(c.Errors) > 0 {
			// 获取最后一个错误
			err := c.Errors.Last()
			utils.Error("request error", zap.Error(err.Err), zap.String("path", c.Request.URL.Path))
			utils.CaptureError(err.Err)

			// 如果响应还没有写入，返回错误
			if !c.Writer.Written() {
				utils.InternalServerError(c, "internal server error")
			}
		}
	}
}
