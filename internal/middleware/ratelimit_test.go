package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	keys   []string
}

func (m *memCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	m.keys = append(m.keys, key)
	return m.counts[key], window, nil
}

func newLimitedApp(rl *RateLimiter, max int) *fiber.App {
	app := fiber.New()
	app.Post("/api/imports", rl.ImportLimit(max), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})
	return app
}

func hit(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/imports", nil), -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	counter := &memCounter{}
	app := newLimitedApp(NewRateLimiter(counter), 2)

	first := hit(t, app)
	assert.Equal(t, http.StatusAccepted, first.StatusCode)
	assert.Equal(t, "2", first.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header.Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusAccepted, hit(t, app).StatusCode)

	blocked := hit(t, app)
	assert.Equal(t, http.StatusTooManyRequests, blocked.StatusCode)
	assert.Equal(t, "3600", blocked.Header.Get("Retry-After"))

	require.NotEmpty(t, counter.keys)
	assert.True(t, strings.HasPrefix(counter.keys[0], "ratelimit:import:"), counter.keys[0])
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	counter := &memCounter{}
	app := newLimitedApp(NewRateLimiter(counter), 0)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusAccepted, hit(t, app).StatusCode)
	}
	assert.Empty(t, counter.keys)
}

func TestRateLimiter_FailsOpenWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	app := newLimitedApp(NewRateLimiter(NewRedisCounter(client)), 1)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusAccepted, hit(t, app).StatusCode)
	}
}

func TestQueueHit_WindowOpensWithExpiry(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	ctx := context.Background()
	pipe := client.TxPipeline()
	open, incr, ttl := queueHit(ctx, pipe, "ratelimit:import:10.0.0.1", time.Hour)

	assert.Equal(t, 3, pipe.Len())
	assert.Equal(t, []interface{}{"set", "ratelimit:import:10.0.0.1", 0, "ex", int64(3600), "nx"}, open.Args())
	assert.Equal(t, []interface{}{"incr", "ratelimit:import:10.0.0.1"}, incr.Args())
	assert.Equal(t, []interface{}{"ttl", "ratelimit:import:10.0.0.1"}, ttl.Args())
}
