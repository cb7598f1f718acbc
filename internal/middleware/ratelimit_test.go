package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLimiter_EnvironmentBypass(t *testing.T) {
	for _, env := range []string{"", "test", "development"} {
		t.Run(env, func(t *testing.T) {
			l := NewLimiter(nil, env)
			allowed, _, err := l.Allow(context.Background(), Rule{Name: "search", Limit: 1, Window: time.Minute}, "ip:1")
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestLimiter_NilRedis(t *testing.T) {
	l := NewLimiter(nil, "production")

	allowed, _, err := l.Allow(context.Background(), Rule{Name: "search", Limit: 1, Window: time.Minute}, "ip:1")
	assert.ErrorIs(t, err, ErrNoRedis)
	assert.False(t, allowed)
}

func TestLimiter_WindowExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLimiter(rdb, "production")
	rule := Rule{Name: "register", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(ctx, rule, "ip:1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, retryAfter, err := l.Allow(ctx, rule, "ip:1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)

	// Other callers have their own bucket
	allowed, _, err = l.Allow(ctx, rule, "ip:2")
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(2 * time.Minute)

	allowed, _, err = l.Allow(ctx, rule, "ip:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_RestoresMissingExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLimiter(rdb, "production")
	rule := Rule{Name: "search", Limit: 1, Window: time.Minute}

	require.NoError(t, mr.Set("rl:search:ip:9", "5"))
	allowed, retryAfter, err := l.Allow(context.Background(), rule, "ip:9")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)
	assert.Equal(t, time.Minute, mr.TTL("rl:search:ip:9"))
}

func TestLimiterHandler(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewLimiter(rdb, "production")

	app := fiber.New()
	app.Post("/reset_password", l.Handler(Rule{Name: "reset_password", Limit: 1, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/reset_password", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/reset_password", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))

	var body struct {
		Error string `json:"error"`
		Flash struct {
			Category string `json:"category"`
		} `json:"flash"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "rate limit exceeded", body.Error)
	assert.Equal(t, "danger", body.Flash.Category)
}

func TestLimiterHandler_FailPolicy(t *testing.T) {
	l := NewLimiter(nil, "production")

	app := fiber.New()
	app.Get("/closed", l.Handler(Rule{Name: "closed", Limit: 1, Window: time.Minute, Policy: FailClosed}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/open", l.Handler(Rule{Name: "open", Limit: 1, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/closed", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
