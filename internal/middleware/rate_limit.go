package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit applies a fixed-window per-client limit backed by Redis. The key
// function extracts the client identity (phone, user id, IP). Used on login
// and on reward draw endpoints.
func RateLimit(cache *redis.Client, scope string, maxPerMin int, keyFn func(c *fiber.Ctx) string) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		client := keyFn(c)
		if client == "" {
			client = c.IP()
		}
		key := "rl:" + scope + ":" + client
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}

// PhoneKey extracts the phone field from a JSON login body for rate limiting.
func PhoneKey(c *fiber.Ctx) string {
	var req struct {
		Phone string `json:"phone"`
	}
	_ = c.BodyParser(&req)
	return req.Phone
}

// UserKey extracts the authenticated user id for rate limiting.
func UserKey(c *fiber.Ctx) string {
	uid, _ := c.Locals("user_id").(string)
	return uid
}
