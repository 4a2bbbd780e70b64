package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func limitedApp(counter *fakeCounter, max int64) *fiber.App {
	app := fiber.New()
	app.Post("/login", RateLimit("login", RateLimitConfig{
		Counter: counter,
		Max:     max,
		Window:  time.Minute,
	}), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRateLimit_RejectsPastMax(t *testing.T) {
	app := limitedApp(&fakeCounter{}, 2)

	for i := 0; i < 2; i++ {
		res, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	}

	res, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "60", res.Header.Get(fiber.HeaderRetryAfter))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	app := limitedApp(&fakeCounter{err: errors.New("redis down")}, 1)

	for i := 0; i < 3; i++ {
		res, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	}
}

func TestRateLimit_DisabledWithoutCounter(t *testing.T) {
	app := fiber.New()
	app.Get("/", RateLimit("x", RateLimitConfig{Max: 1, Window: time.Minute}), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		res, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, res.StatusCode)
	}
}
