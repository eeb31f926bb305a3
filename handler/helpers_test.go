package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"social_network/middleware"
	"social_network/service"
	"social_network/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	mr     *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := utils.OpenDB("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	blacklist := service.NewTokenBlacklist(rdb)
	middleware.InitAuth(testJWTSecret, time.Hour, 24*time.Hour, blacklist)

	userSvc := service.NewUserService(db)
	userSvc.SetBcryptCost(bcrypt.MinCost)
	store := service.NewFriendRequestStore(db)
	friends := service.NewFriendsQueryWithRedis(store, userSvc, rdb, time.Minute)
	friendReqSvc := service.NewFriendRequestServiceWithRedis(store, userSvc, service.NewRateLimiter(3, time.Minute), friends, rdb)

	router := NewRouter(RouterDeps{
		UserSvc:      userSvc,
		FriendReqSvc: friendReqSvc,
		FriendsQuery: friends,
		Blacklist:    blacklist,
		CORSOrigins:  []string{"*"},
		ServiceName:  "social_network_test",
	})

	return &testServer{router: router, mr: mr}
}

// apiResponse 统一响应格式，data 保持原始 JSON 便于按需解析
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w.Code, resp
}

func decodeData(t *testing.T, resp apiResponse, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

type testUser struct {
	ID      string
	Email   string
	Access  string
	Refresh string
}

// registerAndLogin 注册并登录，返回 token
func (s *testServer) registerAndLogin(t *testing.T, email, firstName, lastName string) testUser {
	t.Helper()

	code, resp := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":      email,
		"password":   "password1",
		"first_name": firstName,
		"last_name":  lastName,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)

	code, resp = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "password1",
	})
	require.Equal(t, http.StatusOK, code, resp.Message)

	var data struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		User    struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeData(t, resp, &data)
	return testUser{ID: data.User.ID, Email: data.User.Email, Access: data.Access, Refresh: data.Refresh}
}

type friendRequestDTO struct {
	ID         string `json:"id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Status     string `json:"status"`
}

func (s *testServer) sendFriendRequest(t *testing.T, from testUser, toID string) (int, friendRequestDTO) {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/api/v1/friend-requests", from.Access, map[string]string{"to_user_id": toID})
	var data struct {
		FriendRequest friendRequestDTO `json:"friend_request"`
	}
	if code == http.StatusCreated {
		decodeData(t, resp, &data)
	}
	return code, data.FriendRequest
}
