package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/api/middleware"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/config"
)

func setupTestEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(rateLimiter.Limit())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

func doFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiterMiddleware_Limit(t *testing.T) {
	cfg := &config.Config{
		RateLimitRefillRate: 1, // 1 token per second
		RateLimitBucketSize: 1,
	}
	router := setupTestEngine(cfg)

	// First request should pass
	w := doFrom(router, "1.2.3.4:12345")
	assert.Equal(t, http.StatusOK, w.Code)

	// Second request immediately should fail
	w2 := doFrom(router, "1.2.3.4:12345")
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	assert.Contains(t, w2.Body.String(), "Rate limit exceeded")
}

func TestRateLimiterMiddleware_LimitsAreNotShared(t *testing.T) {
	cfg := &config.Config{
		RateLimitRefillRate: 1,
		RateLimitBucketSize: 1,
	}
	router := setupTestEngine(cfg)

	w := doFrom(router, "1.2.3.4:12345")
	assert.Equal(t, http.StatusOK, w.Code)

	// A different client keeps its own bucket
	w2 := doFrom(router, "5.6.7.8:12345")
	assert.Equal(t, http.StatusOK, w2.Code)
}
