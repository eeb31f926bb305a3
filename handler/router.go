package handler

import (
	"social_network/middleware"
	"social_network/service"
	"social_network/utils"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	UserSvc       *service.UserService
	FriendReqSvc  *service.FriendRequestService
	FriendsQuery  *service.FriendsQuery
	Blacklist     *service.TokenBlacklist // 可为 nil
	AuthLimiter   *middleware.IPRateLimiter
	CORSOrigins   []string
	ServiceName   string
	EnableSentry  bool
	EnableTracing bool
}

// NewRouter 注册中间件与全部路由
func NewRouter(d RouterDeps) *gin.Engine {
	RegisterValidators()

	r := gin.New()

	// 注册统一错误处理中间件（最外层，兜住 sentry 重新抛出的 panic）
	r.Use(middleware.ErrorHandlerMiddleware())
	if d.EnableSentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if d.EnableTracing {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middleware.AccessLogMiddleware())
	r.Use(middleware.CORSMiddleware(d.CORSOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := NewAuthHandler(d.UserSvc, d.Blacklist)
	userHandler := NewUserHandler(d.UserSvc)
	friendHandler := NewFriendHandler(d.FriendReqSvc, d.FriendsQuery)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	// 认证（无需登录，按 IP 限流）
	auth := api.Group("/auth")
	if d.AuthLimiter != nil {
		auth.Use(d.AuthLimiter.Middleware())
	}
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// 需要认证的接口
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/auth/logout", authHandler.Logout)

		// 用户
		protected.GET("/users/me", userHandler.Me)
		protected.GET("/users/search", userHandler.SearchUsers)

		// 好友请求
		protected.POST("/friend-requests", friendHandler.SendFriendRequest)
		protected.GET("/friend-requests/pending", friendHandler.ListPendingRequests)
		protected.POST("/friend-requests/:id/accept", friendHandler.AcceptFriendRequest)
		protected.POST("/friend-requests/:id/reject", friendHandler.RejectFriendRequest)

		// 好友
		protected.GET("/friends", friendHandler.ListFriends)
	}

	return r
}
