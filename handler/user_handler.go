package handler

import (
	"strconv"

	"social_network/middleware"
	"social_network/service"
	"social_network/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userSvc *service.UserService
}

func NewUserHandler(userSvc *service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Me 当前登录用户
func (h *UserHandler) Me(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"user": user})
}

// SearchUsers 搜索用户（含 @ 按邮箱精确匹配，否则按姓名模糊匹配），每页 10 条
func (h *UserHandler) SearchUsers(c *gin.Context) {
	keyword := c.Query("search")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	users, total, err := h.userSvc.Search(c.Request.Context(), keyword, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"users":     users,
		"total":     total,
		"page":      page,
		"page_size": service.SearchPageSize,
	})
}
