package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogs swaps the global logger for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func redactRouter(opts RedactOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RedactingLogger(opts))
	r.GET("/search", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRedactingLogger_ScrubsQuery(t *testing.T) {
	buf := captureLogs(t)
	r := redactRouter(RedactOptions{})

	req := httptest.NewRequest(http.MethodGet,
		"/search?email=alice@example.com&ref=7c9e6679-7425-40de-944b-e07fc1f90ae7", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "alice@example.com") {
		t.Fatalf("email leaked: %s", out)
	}
	if strings.Contains(out, "7c9e6679-7425-40de-944b-e07fc1f90ae7") {
		t.Fatalf("uuid leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED:email]") || !strings.Contains(out, "[REDACTED:id]") {
		t.Fatalf("placeholders missing: %s", out)
	}
}

func TestRedactingLogger_MasksHeaders(t *testing.T) {
	buf := captureLogs(t)
	r := redactRouter(RedactOptions{MaskHeaders: []string{"X-API-Key"}})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("X-API-Key", "k-123456")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "secret-token") || strings.Contains(out, "k-123456") {
		t.Fatalf("credentials leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("mask placeholder missing: %s", out)
	}
}

func TestRedactingLogger_LevelFollowsStatus(t *testing.T) {
	buf := captureLogs(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("5xx not logged at error level: %s", buf.String())
	}
}
