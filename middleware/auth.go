package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"social_network/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	jwtSecret   []byte
	accessTTL   = time.Hour
	refreshTTL  = 7 * 24 * time.Hour
	revocations RevocationChecker

	ErrInvalidToken = errors.New("invalid token")
)

// RevocationChecker 查询 token 是否已登出
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// InitAuth 初始化认证中间件（checker 为 nil 时不检查登出）
func InitAuth(secret string, access, refresh time.Duration, checker RevocationChecker) {
	jwtSecret = []byte(secret)
	if access > 0 {
		accessTTL = access
	}
	if refresh > 0 {
		refreshTTL = refresh
	}
	revocations = checker
}

// Claims JWT 声明
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateToken 签发指定类型的 token
func GenerateToken(userID uuid.UUID, tokenType string) (string, *Claims, error) {
	ttl := accessTTL
	if tokenType == TokenTypeRefresh {
		ttl = refreshTTL
	}

	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// GenerateTokenPair 登录时签发 access + refresh
func GenerateTokenPair(userID uuid.UUID) (access, refresh string, err error) {
	access, _, err = GenerateToken(userID, TokenTypeAccess)
	if err != nil {
		return "", "", err
	}
	refresh, _, err = GenerateToken(userID, TokenTypeRefresh)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseToken 校验签名、有效期和 token 类型
func ParseToken(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken 验证 access token，返回用户 ID
func ValidateToken(tokenString string) (uuid.UUID, error) {
	claims, err := ParseToken(tokenString, TokenTypeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// AuthMiddleware HTTP API 认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		// Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1], TokenTypeAccess)
		if err != nil {
			utils.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				utils.Error("token revocation check failed", zap.Error(err))
				utils.InternalServerError(c, "failed to verify token")
				c.Abort()
				return
			}
			if revoked {
				utils.Unauthorized(c, "token has been revoked")
				c.Abort()
				return
			}
		}

		// 将 userID 存入上下文
		c.Set("user_id", claims.UserID)
		c.Set("claims", claims)
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	return id, ok
}

// GetClaims 从上下文获取当前 token 的声明
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
