package middleware

import (
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/zawadi-pay/zawadi_pay/internal/logging"
)

func newIdempotencyApp(t *testing.T) (*fiber.App, *atomic.Int64) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls atomic.Int64
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/transfer", func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"seq": calls.Load()})
	})

	return app, &calls
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, calls := newIdempotencyApp(t)

	first := httptest.NewRequest(fiber.MethodPost, "/transfer", nil)
	first.Header.Set("Idempotency-Key", "abc-123")
	resp1, err := app.Test(first)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	body1, _ := io.ReadAll(resp1.Body)

	second := httptest.NewRequest(fiber.MethodPost, "/transfer", nil)
	second.Header.Set("Idempotency-Key", "abc-123")
	resp2, err := app.Test(second)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	body2, _ := io.ReadAll(resp2.Body)

	if calls.Load() != 1 {
		t.Fatalf("handler executed %d times, want 1", calls.Load())
	}
	if resp1.StatusCode != fiber.StatusCreated || resp2.StatusCode != fiber.StatusCreated {
		t.Fatalf("statuses = %d, %d; want both 201", resp1.StatusCode, resp2.StatusCode)
	}
	if string(body1) != string(body2) {
		t.Fatalf("replayed body %q differs from original %q", body2, body1)
	}
}

func TestIdempotencyRequiresKeyOnUnsafeMethods(t *testing.T) {
	app, calls := newIdempotencyApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/transfer", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if calls.Load() != 0 {
		t.Fatalf("handler should not run without a key")
	}
}

func TestIdempotencySkipsSafeMethods(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Get("/balance", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/balance", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	}
}

func TestIdempotencyDistinctKeysExecuteIndependently(t *testing.T) {
	app, calls := newIdempotencyApp(t)

	for _, key := range []string{"key-a", "key-b"} {
		req := httptest.NewRequest(fiber.MethodPost, "/transfer", nil)
		req.Header.Set("Idempotency-Key", key)
		if _, err := app.Test(req); err != nil {
			t.Fatalf("request %s: %v", key, err)
		}
	}

	if calls.Load() != 2 {
		t.Fatalf("handler executed %d times, want 2", calls.Load())
	}
}
