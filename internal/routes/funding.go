package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zawadi-pay/zawadi_pay/internal/funding"
)

// RegisterFundingRoutes wires bank deposit and withdrawal endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	group := r.Group("/funding")
	group.Post("/deposit", h.Deposit)
	group.Post("/withdraw", h.Withdraw)
}
