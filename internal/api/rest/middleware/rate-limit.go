package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/SundayYogurt/identity_service/internal/helper/utils"
	"github.com/SundayYogurt/identity_service/internal/interfaces"
	"github.com/SundayYogurt/identity_service/internal/services"
	"github.com/gofiber/fiber/v2"
)

type RateLimitConfig struct {
	Counter interfaces.Counter
	Max     int64
	Window  time.Duration
	// Key picks the bucket for a request; defaults to the client IP.
	Key    func(*fiber.Ctx) string
	Logger *slog.Logger
}

// RateLimit rejects requests past Max per Window with 429. It fails open:
// a counter error lets the request through.
func RateLimit(name string, cfg RateLimitConfig) fiber.Handler {
	if cfg.Counter == nil || cfg.Max <= 0 || cfg.Window <= 0 {
		return func(ctx *fiber.Ctx) error { return ctx.Next() }
	}
	if cfg.Key == nil {
		cfg.Key = func(ctx *fiber.Ctx) string { return ctx.IP() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(ctx *fiber.Ctx) error {
		key := "ratelimit:" + name + ":" + cfg.Key(ctx)

		n, err := cfg.Counter.Incr(ctx.UserContext(), key, cfg.Window)
		if err != nil {
			cfg.Logger.WarnContext(ctx.UserContext(), "rate limit counter unavailable", "limiter", name, "err", err)
			return ctx.Next()
		}
		if n > cfg.Max {
			ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(cfg.Window.Seconds())))
			return utils.ResponseError(ctx, fiber.StatusTooManyRequests, services.CodeRateLimited)
		}
		return ctx.Next()
	}
}

// UserOrIP keys authenticated requests by account id.
func UserOrIP(ctx *fiber.Ctx) string {
	if id, ok := ctx.Locals("userID").(string); ok && id != "" {
		return "user:" + id
	}
	return "ip:" + ctx.IP()
}
