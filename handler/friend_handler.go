package handler

import (
	"context"
	"strconv"

	"social_network/middleware"
	"social_network/model"
	"social_network/service"
	"social_network/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FriendHandler struct {
	requestSvc *service.FriendRequestService
	friends    *service.FriendsQuery
}

func NewFriendHandler(requestSvc *service.FriendRequestService, friends *service.FriendsQuery) *FriendHandler {
	return &FriendHandler{requestSvc: requestSvc, friends: friends}
}

// SendFriendRequest 发送好友请求
func (h *FriendHandler) SendFriendRequest(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req struct {
		ToUserID uuid.UUID `json:"to_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	friendRequest, err := h.requestSvc.Send(c.Request.Context(), userID, req.ToUserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Created(c, gin.H{"friend_request": friendRequest})
}

// AcceptFriendRequest 同意好友请求（仅接收方）
func (h *FriendHandler) AcceptFriendRequest(c *gin.Context) {
	h.respond(c, h.requestSvc.Accept)
}

// RejectFriendRequest 拒绝好友请求（仅接收方）
func (h *FriendHandler) RejectFriendRequest(c *gin.Context) {
	h.respond(c, h.requestSvc.Reject)
}

func (h *FriendHandler) respond(c *gin.Context, action func(ctx context.Context, requestID, actingUserID uuid.UUID) (*model.FriendRequest, error)) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "invalid friend request id")
		return
	}

	friendRequest, err := action(c.Request.Context(), requestID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"friend_request": friendRequest})
}

// ListPendingRequests 收到的待处理请求
func (h *FriendHandler) ListPendingRequests(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	page, pageSize := pageParams(c)
	requests, total, err := h.requestSvc.ListPending(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"friend_requests": requests,
		"total":           total,
		"page":            page,
		"page_size":       pageSize,
	})
}

// ListFriends 好友列表
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	page, pageSize := pageParams(c)
	friends, total, err := h.friends.ListFriends(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"friends":   friends,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(service.DefaultPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = service.DefaultPageSize
	}
	if pageSize > service.MaxPageSize {
		pageSize = service.MaxPageSize
	}
	return page, pageSize
}
