package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/tipmasterapp/tipmaster/internal/pkg/calc"
	"github.com/tipmasterapp/tipmaster/internal/pkg/entitlements"
	"github.com/tipmasterapp/tipmaster/internal/pkg/metrics/counter"
	"github.com/tipmasterapp/tipmaster/internal/pkg/usercontext"
)

// HandleCalculate runs one tip calculation. Anonymous callers get the
// free-plan limits; advanced mode and large parties require pro.
func HandleCalculate(c *fiber.Ctx) error {
	var in calc.Input
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed request body"})
	}

	userCtx := usercontext.GetUserContext(c)
	plan := entitlements.Normalize(usercontext.GetPlan(c))

	if in.AdvancedMode && !entitlements.CanUseAdvancedMode(plan) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   "payment_required",
			"message": "Advanced mode requires a Pro plan",
		})
	}
	if in.People > entitlements.MaxPartySize(plan) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   "payment_required",
			"message": "Party size exceeds the limit of your plan",
		})
	}

	result, err := calc.Compute(in)
	if err != nil {
		if errors.Is(err, calc.ErrTipCountMismatch) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid calculation input"})
	}

	if userCtx.IsLoggedIn {
		if err := counter.AddCalcRun(userCtx.UserID); err != nil {
			log.Warnf("[Calc] run counter for user %d failed: %v", userCtx.UserID, err)
		}
	}

	return c.JSON(result)
}

// HandleCalcLimits tells the client what the current plan allows, so the
// UI can disable controls instead of round-tripping a rejected request.
func HandleCalcLimits(c *fiber.Ctx) error {
	plan := entitlements.Normalize(usercontext.GetPlan(c))

	return c.JSON(fiber.Map{
		"plan":           string(plan),
		"advanced_mode":  entitlements.CanUseAdvancedMode(plan),
		"max_party_size": entitlements.MaxPartySize(plan),
		"history_limit":  entitlements.HistoryLimit(plan),
		"logged_in":      usercontext.GetUserContext(c).IsLoggedIn,
	})
}
