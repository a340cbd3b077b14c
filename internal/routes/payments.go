package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zawadi-pay/zawadi_pay/internal/transfer"
)

// RegisterPaymentRoutes wires the transfer endpoint.
func RegisterPaymentRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/payments/transfer", h.Transfer)
}
