package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	handlershared "github.com/freightbid/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func TestKeyByUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/shipments/1/bids", nil)
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := KeyByUserID(c); key != "1.2.3.4" {
		t.Fatalf("anonymous key want 1.2.3.4 got %s", key)
	}
	c.Set(handlershared.ContextUserIDKey, uint(42))
	if key := KeyByUserID(c); key != "user:42" {
		t.Fatalf("user key want user:42 got %s", key)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByUserID))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitMiddlewareRedisDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	cases := []struct {
		name     string
		failOpen bool
		wantOK   bool
	}{
		{name: "fail open", failOpen: true, wantOK: true},
		{name: "fail closed", failOpen: false, wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			rule := RateLimitRule{Prefix: "rate:test", WindowSeconds: 10, MaxRequests: 1, FailOpen: tc.failOpen}
			r.POST("/bids", RateLimitMiddleware(client, rule, KeyByUserID), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bids", nil))
			gotOK := strings.Contains(w.Body.String(), `"ok":true`)
			if gotOK != tc.wantOK {
				t.Fatalf("want handler reached=%v, body=%s", tc.wantOK, w.Body.String())
			}
			if !tc.wantOK && !strings.Contains(w.Body.String(), `"status_code":500`) {
				t.Fatalf("expected internal error envelope, got %s", w.Body.String())
			}
		})
	}
}
