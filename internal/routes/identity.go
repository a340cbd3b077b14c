package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zawadi-pay/zawadi_pay/internal/identity"
)

// RegisterIdentityRoutes wires user registration.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
}
