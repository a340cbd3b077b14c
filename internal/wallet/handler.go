package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Me returns the authenticated user's wallet pair, provisioning lazily.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing user")
	}
	wallets, err := h.service.EnsureUserWallets(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"bank": walletResponse(wallets.Bank),
		"coin": walletResponse(wallets.Coin),
	})
}

// Balance returns the wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	balance, err := h.service.Balance(c.UserContext(), walletID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id": balance.WalletID,
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// History returns the wallet's ordered transaction history.
func (h *Handler) History(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	entries, err := h.service.History(c.UserContext(), walletID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"id":           e.ID,
			"direction":    e.Direction,
			"amount":       e.Amount,
			"counterparty": e.Counterparty,
			"block_hash":   e.BlockHash,
			"created_at":   e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"wallet_id": walletID, "entries": out})
}

func walletResponse(w Wallet) fiber.Map {
	return fiber.Map{
		"id":      w.ID,
		"kind":    w.Kind,
		"balance": w.Balance,
	}
}
