package middleware

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis/v3"
	"go.uber.org/zap"
)

// RateLimitConfig bounds how often one client may hit stock-mutation routes.
// A nil Storage keeps counters in process memory.
type RateLimitConfig struct {
	Max     int
	Window  time.Duration
	Storage fiber.Storage
	Logger  *zap.Logger
}

// RateLimit returns a fiber limiter keyed by client IP. Max <= 0 disables it.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		Storage:    cfg.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "ratelimit:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			cfg.Logger.Warn("rate limit reached",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests, try again later"})
		},
	})
}

// NewRedisStorage connects limiter storage to Redis at addr (host:port).
// The storage driver panics on an unreachable server, so reachability is
// checked first.
func NewRedisStorage(addr string) (fiber.Storage, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis port %q: %w", portStr, err)
	}

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("redis not reachable at %s: %w", addr, err)
	}
	conn.Close()

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		PoolSize: 10,
	}), nil
}
