package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

// Handler exposes HTTP endpoints for bank funding flows.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// DepositRequest captures user-provided data to fund a wallet from the bank.
type DepositRequest struct {
	Amount        int64  `json:"amount"`
	AccountNumber string `json:"account_number"`
}

// WithdrawRequest captures withdrawal details to push funds to the bank.
type WithdrawRequest struct {
	Amount        int64  `json:"amount"`
	AccountNumber string `json:"account_number"`
}

// Response represents the API response for funding actions.
type Response struct {
	WalletID      string `json:"wallet_id"`
	WalletBalance int64  `json:"wallet_balance"`
	BankReference string `json:"bank_reference"`
	TxHash        string `json:"tx_hash,omitempty"`
}

// Deposit processes wallet top-ups funded by the linked bank account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Deposit(c.UserContext(), DepositInput{
		OwnerID:       ownerID,
		Amount:        req.Amount,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

// Withdraw processes wallet withdrawals back to the linked bank account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		OwnerID:       ownerID,
		Amount:        req.Amount,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "funding operation failed")
	}
}

func toResponse(result Result) Response {
	return Response{
		WalletID:      result.WalletID,
		WalletBalance: result.WalletBalance,
		BankReference: result.BankReference,
		TxHash:        result.TxHash,
	}
}
