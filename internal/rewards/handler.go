package rewards

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the reward endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a reward handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Spin draws a spin-wheel outcome for the authenticated user.
func (h *Handler) Spin(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing user")
	}
	outcome, err := h.engine.Spin(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrNoSpins) {
			return fiber.NewError(http.StatusBadRequest, "no spins available")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"kind":        outcome.Kind,
		"amount":      outcome.Amount,
		"description": outcome.Description,
		"angle":       outcome.Angle,
	})
}

// Scratch draws a scratch-card outcome for the authenticated user.
func (h *Handler) Scratch(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing user")
	}
	outcome, err := h.engine.Scratch(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrNoCards) {
			return fiber.NewError(http.StatusBadRequest, "no scratch cards available")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"kind":        outcome.Kind,
		"amount":      outcome.Amount,
		"description": outcome.Description,
	})
}

// ClaimDaily claims the once-per-day free spin.
func (h *Handler) ClaimDaily(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing user")
	}
	res, err := h.engine.ClaimDaily(c.UserContext(), uid)
	if err != nil {
		var claimed *AlreadyClaimedError
		if errors.As(err, &claimed) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{
				"error":         "already claimed today",
				"next_eligible": claimed.NextEligible,
			})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"claimed_at":      res.ClaimedAt,
		"spins_available": res.SpinsAvailable,
	})
}

// Streak returns the user's reward state (streak, counters).
func (h *Handler) Streak(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing user")
	}
	state, err := h.engine.StreakInfo(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"streak_length":   state.Streak.Length,
		"streak_start":    state.Streak.StartDate,
		"last_payment":    state.Streak.LastPaymentDate,
		"spins":           state.Spins,
		"scratch_cards":   state.ScratchCards,
		"transfer_count":  state.TransferCount,
	})
}

// History returns the user's reward history.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing user")
	}
	records, err := h.engine.History(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]fiber.Map, 0, len(records))
	for _, rec := range records {
		out = append(out, fiber.Map{
			"kind":        rec.Kind,
			"amount":      rec.Amount,
			"description": rec.Description,
			"created_at":  rec.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"rewards": out})
}
