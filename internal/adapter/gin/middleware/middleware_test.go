package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	return r
}

func doGet(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:4242"
	r.ServeHTTP(w, req)
	return w
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery(zaptest.NewLogger(t)))

	w := doGet(r, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newEngine(Logger(zap.New(core)))

	doGet(r, "/ok?x=1")
	doGet(r, "/missing")

	require.Equal(t, 2, logs.Len())

	first := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, first.Level)
	assert.Equal(t, "/ok", first.ContextMap()["path"])
	assert.Equal(t, "x=1", first.ContextMap()["query"])
	assert.EqualValues(t, http.StatusOK, first.ContextMap()["status"])

	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 10,
		BurstCapacity:     10,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	r := newEngine(rl.Middleware())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/ok").Code)
	}
}

func TestRateLimiter_ExceedLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstCapacity:     3,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	frozen := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return frozen }
	r := newEngine(rl.Middleware())

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doGet(r, "/ok").Code)
	}

	w := doGet(r, "/ok")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")

	// Two seconds later two tokens have been refilled
	frozen = frozen.Add(2 * time.Second)
	assert.Equal(t, http.StatusOK, doGet(r, "/ok").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/ok").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "/ok").Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, mr := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstCapacity:     1,
		Enabled:           false,
	}, zaptest.NewLogger(t))
	r := newEngine(rl.Middleware())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/ok").Code)
	}
	assert.Empty(t, mr.Keys())
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	rl := NewRateLimiter(client, RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstCapacity:     1,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	r := newEngine(rl.Middleware())

	assert.Equal(t, http.StatusOK, doGet(r, "/ok").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/ok").Code)
}

func TestRateLimiter_NilIsNoop(t *testing.T) {
	var rl *RateLimiter
	r := newEngine(rl.Middleware())

	assert.Equal(t, http.StatusOK, doGet(r, "/ok").Code)
}

func TestLoggerRecordsRecoveredPanic(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	r := newEngine(Logger(log), Recovery(log))

	w := doGet(r, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	access := logs.FilterMessage("http request").All()
	require.Len(t, access, 1)
	assert.Equal(t, zapcore.ErrorLevel, access[0].Level)
	assert.EqualValues(t, http.StatusInternalServerError, access[0].ContextMap()["status"])
	assert.Equal(t, 1, logs.FilterMessage("panic recovered in handler").Len())
}

func TestCORS(t *testing.T) {
	t.Run("Preflight", func(t *testing.T) {
		r := newEngine(CORS())

		req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	})

	t.Run("Simple Request", func(t *testing.T) {
		r := newEngine(CORS())

		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("No Origin", func(t *testing.T) {
		r := newEngine(CORS())

		w := doGet(r, "/ok")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestNoCache(t *testing.T) {
	r := newEngine(NoCache())

	w := doGet(r, "/ok")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "-1", w.Header().Get("Expires"))
}
