package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"social_network/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestErrorHandlerMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandlerMiddleware())
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	r.GET("/error", func(c *gin.Context) {
		_ = c.Error(errors.New("database exploded"))
	})
	r.GET("/handled", func(c *gin.Context) {
		_ = c.Error(errors.New("already answered"))
		utils.Conflict(c, "conflict")
	})

	for _, path := range []string{"/panic", "/error"} {
		w := serve(r, http.MethodGet, path)
		require.Equal(t, http.StatusInternalServerError, w.Code, path)

		var resp utils.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		// 不向客户端泄露内部错误
		assert.Equal(t, "internal server error", resp.Message)
	}

	w := serve(r, http.MethodGet, "/handled")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
