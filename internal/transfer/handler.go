package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler constructs a transfer handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

type transferRequest struct {
	FromWalletID string `json:"from_wallet_id"`
	ToWalletID   string `json:"to_wallet_id"`
	Amount       int64  `json:"amount"`
}

// Transfer processes a wallet-to-wallet transfer for the authenticated user.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.coordinator.Transfer(c.UserContext(), Input{
		FromWalletID:    req.FromWalletID,
		ToWalletID:      req.ToWalletID,
		Amount:          req.Amount,
		RequestorUserID: uid,
	})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, ErrSameWallet):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, wallet.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, wallet.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, ErrNotOwner):
			return fiber.NewError(http.StatusForbidden, "not owner of source wallet")
		case errors.Is(err, wallet.ErrConflict):
			return fiber.NewError(http.StatusConflict, "conflicting concurrent transfer, retry")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"from_balance": res.FromBalance,
		"to_balance":   res.ToBalance,
		"tx_hash":      res.TxHash,
		"completed_at": res.CompletedAt,
	})
}
