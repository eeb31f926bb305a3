package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver    string // postgres | sqlite
	DatabaseURL string
	SQLitePath  string

	RedisURL      string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	FriendRequestLimit  int           // 窗口内最多发送的好友请求数
	FriendRequestWindow time.Duration // 滑动窗口长度
	FriendsCacheTTL     time.Duration

	AuthRatePerSecond float64 // /auth 接口每个 IP 的令牌桶速率
	AuthRateBurst     int

	CORSAllowOrigins []string

	LogLevel  string
	LogFormat string // json | console

	SentryDSN    string
	OTLPEndpoint string
	ServiceName  string
}

func Load() *Config {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "release"),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "social.db"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 168)) * time.Hour,

		FriendRequestLimit:  getEnvInt("FRIEND_REQUEST_LIMIT", 3),
		FriendRequestWindow: time.Duration(getEnvInt("FRIEND_REQUEST_WINDOW_SECONDS", 60)) * time.Second,
		FriendsCacheTTL:     time.Duration(getEnvInt("FRIENDS_CACHE_TTL_SECONDS", 300)) * time.Second,

		AuthRatePerSecond: getEnvFloat("AUTH_RATE_PER_SECOND", 5),
		AuthRateBurst:     getEnvInt("AUTH_RATE_BURST", 10),

		CORSAllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		SentryDSN:    os.Getenv("SENTRY_DSN"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getEnv("SERVICE_NAME", "social_network"),
	}

	if cfg.JWTSecret == "" {
		log.Println("JWT_SECRET is empty, tokens will be signed with an empty key")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
