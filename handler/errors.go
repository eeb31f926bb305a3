package handler

import (
	"errors"

	"social_network/service"
	"social_network/utils"

	"github.com/gin-gonic/gin"
)

// respondServiceError 业务错误映射为 HTTP 状态码；未知错误交给 ErrorHandlerMiddleware 返回 500
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRequestNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrEmailTaken):
		utils.Conflict(c, err.Error())
	case errors.Is(err, service.ErrRateLimitExceeded):
		utils.TooManyRequests(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrSelfRequest):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		utils.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrBusy):
		utils.ServiceUnavailable(c, err.Error())
	default:
		_ = c.Error(err)
	}
}
