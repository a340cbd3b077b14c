package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zawadi-pay/zawadi_pay/internal/rewards"
)

// RegisterRewardRoutes wires reward draws, the daily claim and reward lookups.
// Draw endpoints carry a per-user rate limit.
func RegisterRewardRoutes(r fiber.Router, h *rewards.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/rewards")
	if rateLimiter != nil {
		group.Post("/spin", rateLimiter, h.Spin)
		group.Post("/scratch", rateLimiter, h.Scratch)
	} else {
		group.Post("/spin", h.Spin)
		group.Post("/scratch", h.Scratch)
	}
	group.Post("/claim-daily", h.ClaimDaily)
	group.Get("/streak", h.Streak)
	group.Get("/history", h.History)
}
