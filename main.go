package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social_network/config"
	"social_network/handler"
	"social_network/middleware"
	"social_network/service"
	"social_network/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	// 设置时区为 UTC（推荐服务端统一使用 UTC）
	time.Local = time.UTC
}

func main() {
	// 加载配置
	cfg := config.Load()

	if err := utils.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer utils.SyncLogger()

	if cfg.JWTSecret == "" {
		utils.Logger().Fatal("JWT_SECRET is required")
	}

	gin.SetMode(cfg.GinMode)

	if err := utils.InitSentry(cfg.SentryDSN, cfg.GinMode); err != nil {
		utils.Warn("sentry init failed", zap.Error(err))
	}
	defer utils.FlushSentry()

	shutdownTracing, err := utils.InitTracing(context.Background(), cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		utils.Warn("tracing init failed", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// 初始化数据库
	dsn := cfg.DatabaseURL
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	if err := utils.InitDB(cfg.DBDriver, dsn); err != nil {
		utils.Logger().Fatal("failed to connect to database", zap.Error(err))
	}
	defer utils.CloseDB()

	// 初始化 Redis
	if err := utils.InitRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
		utils.Logger().Fatal("failed to connect to redis", zap.Error(err))
	}
	defer utils.CloseRedis()

	db := utils.GetDB()
	rdb := utils.GetRedis()

	blacklist := service.NewTokenBlacklist(rdb)

	// 初始化认证中间件
	middleware.InitAuth(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, blacklist)

	// 创建服务
	userSvc := service.NewUserService(db)
	store := service.NewFriendRequestStore(db)
	limiter := service.NewRateLimiter(cfg.FriendRequestLimit, cfg.FriendRequestWindow)
	friends := service.NewFriendsQueryWithRedis(store, userSvc, rdb, cfg.FriendsCacheTTL)
	friendReqSvc := service.NewFriendRequestServiceWithRedis(store, userSvc, limiter, friends, rdb)

	r := handler.NewRouter(handler.RouterDeps{
		UserSvc:       userSvc,
		FriendReqSvc:  friendReqSvc,
		FriendsQuery:  friends,
		Blacklist:     blacklist,
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst),
		CORSOrigins:   cfg.CORSAllowOrigins,
		ServiceName:   cfg.ServiceName,
		EnableSentry:  utils.SentryEnabled(),
		EnableTracing: cfg.OTLPEndpoint != "",
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务
	go func() {
		utils.Info("social_network service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger().Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		utils.Error("tracing shutdown failed", zap.Error(err))
	}
}
