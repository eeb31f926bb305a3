package handler

import (
	"time"

	"social_network/middleware"
	"social_network/service"
	"social_network/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userSvc   *service.UserService
	blacklist *service.TokenBlacklist
}

// NewAuthHandler blacklist 为 nil 时登出不做服务端吊销
func NewAuthHandler(userSvc *service.UserService, blacklist *service.TokenBlacklist) *AuthHandler {
	return &AuthHandler{userSvc: userSvc, blacklist: blacklist}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,password,max=128"`
	FirstName string `json:"first_name" binding:"required,notblank,max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

// Register 注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.userSvc.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Created(c, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录，签发 access + refresh token
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.userSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	access, refresh, err := middleware.GenerateTokenPair(user.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	utils.SuccessWithMessage(c, "Login successful", gin.H{
		"access":  access,
		"refresh": refresh,
		"user":    user,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// Refresh 用 refresh token 换新的 access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	claims, err := middleware.ParseToken(req.Refresh, middleware.TokenTypeRefresh)
	if err != nil {
		utils.Unauthorized(c, "invalid refresh token")
		return
	}

	if h.blacklist != nil {
		revoked, err := h.blacklist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		if revoked {
			utils.Unauthorized(c, "refresh token has been revoked")
			return
		}
	}

	// 用户可能已被删除
	if _, err := h.userSvc.GetByID(c.Request.Context(), claims.UserID); err != nil {
		utils.Unauthorized(c, "invalid refresh token")
		return
	}

	access, _, err := middleware.GenerateToken(claims.UserID, middleware.TokenTypeAccess)
	if err != nil {
		_ = c.Error(err)
		return
	}

	utils.SuccessResponse(c, gin.H{"access": access})
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

// Logout 吊销当前 access token（可选同时吊销 refresh token）
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		utils.Unauthorized(c, "unauthorized")
		return
	}

	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	if h.blacklist != nil {
		ctx := c.Request.Context()
		if err := h.blacklist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			_ = c.Error(err)
			return
		}

		if req.Refresh != "" {
			refreshClaims, err := middleware.ParseToken(req.Refresh, middleware.TokenTypeRefresh)
			if err == nil && refreshClaims.UserID == claims.UserID {
				if err := h.blacklist.Revoke(ctx, refreshClaims.ID, time.Until(refreshClaims.ExpiresAt.Time)); err != nil {
					_ = c.Error(err)
					return
				}
			}
		}
	}

	utils.Info("user logged out", zap.String("user_id", claims.UserID.String()))
	utils.SuccessWithMessage(c, "Successfully logged out", nil)
}
