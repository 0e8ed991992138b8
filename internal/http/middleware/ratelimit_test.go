package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func limiterRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	for _, h := range pre {
		r.Use(h)
	}
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func doGet(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(0, 2, KeyByUserOrIP())
	r := limiterRouter(rl)

	for i := 0; i < 2; i++ {
		if w := doGet(r, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	w := doGet(r, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_KeysAreIsolated(t *testing.T) {
	byHeader := func(c *gin.Context) string { return c.GetHeader("X-Client") }
	rl := NewRateLimiter(0, 1, byHeader)
	r := limiterRouter(rl)

	if w := doGet(r, map[string]string{"X-Client": "a"}); w.Code != http.StatusOK {
		t.Fatalf("client a: %d", w.Code)
	}
	if w := doGet(r, map[string]string{"X-Client": "a"}); w.Code != http.StatusTooManyRequests {
		t.Fatalf("client a second: %d", w.Code)
	}
	// A different key has its own bucket.
	if w := doGet(r, map[string]string{"X-Client": "b"}); w.Code != http.StatusOK {
		t.Fatalf("client b: %d", w.Code)
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	markReplay := func(c *gin.Context) { c.Set(ctxKeyRateBypass, true) }
	r := limiterRouter(rl, markReplay)

	for i := 0; i < 5; i++ {
		if w := doGet(r, nil); w.Code != http.StatusOK {
			t.Fatalf("replay %d rate limited: %d", i, w.Code)
		}
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	keyFn := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := keyFn(c); got != "ip:"+c.ClientIP() {
		t.Fatalf("anonymous key = %q", got)
	}

	c.Set("userID", "u1")
	if got := keyFn(c); got != "user:u1" {
		t.Fatalf("user key = %q", got)
	}
}
