package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/zawadi-pay/zawadi_pay/internal/chain"
)

// RegisterLedgerRoutes wires read-only chain audit endpoints.
func RegisterLedgerRoutes(r fiber.Router, ledger chain.Ledger) {
	group := r.Group("/ledger")

	group.Get("", func(c *fiber.Ctx) error {
		blocks, err := ledger.Blocks(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "ledger unavailable")
		}
		return c.JSON(fiber.Map{"blocks": blocks, "length": len(blocks)})
	})

	group.Get("/pending", func(c *fiber.Ctx) error {
		pending, err := ledger.Pending(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "ledger unavailable")
		}
		return c.JSON(fiber.Map{"pending": pending, "count": len(pending)})
	})

	group.Get("/verify", func(c *fiber.Ctx) error {
		if err := ledger.Verify(c.UserContext()); err != nil {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"valid": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"valid": true})
	})
}
