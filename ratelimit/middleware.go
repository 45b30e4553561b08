package ratelimit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// Logger mirrors the auth logger without importing it
type Logger interface {
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type Config struct {
	// Next skips the middleware when it returns true
	Next func(c *fiber.Ctx) bool

	// Limiter is required
	Limiter Limiter

	// Policy defaults to PolicyGeneral
	Policy Policy

	// KeyGenerator defaults to the client IP
	KeyGenerator func(c *fiber.Ctx) string

	// Scope prefixes generated keys so routes sharing a policy keep
	// separate buckets
	Scope string

	// FailOpen lets requests through when the limiter errors
	FailOpen bool

	// LimitReached renders the rejection, defaults to a JSON 429
	LimitReached func(c *fiber.Ctx, err *errors.Error) error

	Logger Logger
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Limiter == nil {
		cfg.Limiter = NoopLimiter{}
	}

	if cfg.Policy.Name == "" {
		cfg.Policy = PolicyGeneral
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP()
		}
	}

	if cfg.LimitReached == nil {
		cfg.LimitReached = func(c *fiber.Ctx, err *errors.Error) error {
			return c.Status(err.Code).JSON(fiber.Map{
				"detail": err.Message,
				"code":   err.TextCode,
			})
		}
	}

	return cfg
}

// New returns fiber middleware enforcing cfg.Policy per key
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		key := cfg.KeyGenerator(c)
		if cfg.Scope != "" {
			key = cfg.Scope + ":" + key
		}

		res, err := cfg.Limiter.Allow(c.UserContext(), key, cfg.Policy)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Error("rate limiter unavailable", "policy", cfg.Policy.Name, "error", err)
			}
			if cfg.FailOpen {
				return c.Next()
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"detail": "Rate limiting is temporarily unavailable",
				"code":   ErrRedisUnavailable.TextCode,
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded", "policy", cfg.Policy.Name, "scope", cfg.Scope, "ip", c.IP())
			}
			limited := RateLimitedError(cfg.Policy, res)
			if retry, ok := limited.Metadata["retry_after"].(int); ok {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			}
			return cfg.LimitReached(c, limited)
		}

		return c.Next()
	}
}
