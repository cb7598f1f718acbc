package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// ErrNoRedis is returned by Allow when no Redis client is configured.
var ErrNoRedis = errors.New("redis client is nil")

// Rule throttles one named form endpoint.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
	Policy FailPolicy
}

// Limiter counts requests per caller in fixed Redis windows keyed
// "rl:<rule>:<caller>". A logged-in caller is counted by user id, anyone
// else by remote IP.
type Limiter struct {
	rdb     *redis.Client
	enabled bool
}

// NewLimiter returns a Limiter for the given APP_ENV. The test and
// development environments are never throttled.
func NewLimiter(rdb *redis.Client, env string) *Limiter {
	switch env {
	case "", "test", "development":
		return &Limiter{rdb: rdb}
	}
	return &Limiter{rdb: rdb, enabled: true}
}

// Allow records one hit for caller under rule. When the hit is over the
// limit it also returns how long until the window resets.
func (l *Limiter) Allow(ctx context.Context, rule Rule, caller string) (bool, time.Duration, error) {
	if !l.enabled {
		return true, 0, nil
	}
	if l.rdb == nil {
		return false, 0, ErrNoRedis
	}

	key := fmt.Sprintf("rl:%s:%s", rule.Name, caller)
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, rule.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	if cnt <= int64(rule.Limit) {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		// A key left without expiry would lock the caller out for good.
		_ = l.rdb.Expire(ctx, key, rule.Window).Err()
		ttl = rule.Window
	}
	return false, ttl, nil
}

// Handler enforces rule in front of a route.
func (l *Limiter) Handler(rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			caller = fmt.Sprintf("user:%v", uid)
		}

		allowed, retryAfter, err := l.Allow(c.UserContext(), rule, caller)
		if err != nil {
			if rule.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
					slog.String("rule", rule.Name),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			RateLimitRejections.WithLabelValues(rule.Name).Inc()
			secs := int((retryAfter + time.Second - 1) / time.Second)
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
				"flash": fiber.Map{
					"category": "danger",
					"message":  "Too many attempts. Please try again later.",
				},
			})
		}
		return c.Next()
	}
}
