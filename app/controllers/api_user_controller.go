package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tipmasterapp/tipmaster/app/models"
	"github.com/tipmasterapp/tipmaster/app/repository"
	"github.com/tipmasterapp/tipmaster/internal/pkg/billing"
	"github.com/tipmasterapp/tipmaster/internal/pkg/database"
	"github.com/tipmasterapp/tipmaster/internal/pkg/entitlements"
	"github.com/tipmasterapp/tipmaster/internal/pkg/usercontext"
	"github.com/tipmasterapp/tipmaster/internal/pkg/utils"
)

// HandleGetUserAccount returns account information for the authenticated user.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	status, err := svc.ProStatusForUser(c.Context(), account.ID, account.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load billing status"})
	}

	plan := entitlements.PlanFree
	if status.IsPro {
		plan = entitlements.PlanPro
	}

	response := fiber.Map{
		"id":            account.ID,
		"username":      account.Name,
		"email":         account.Email,
		"status":        account.Status,
		"avatar_url":    accountAvatar(account),
		"is_admin":      account.Role == models.ROLE_ADMIN,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
		"billing": fiber.Map{
			"plan":      string(plan),
			"plan_type": planTypeOrNone(status.PlanType),
			"pro_since": formatTimePtr(status.ProSince),
		},
		"stats": fiber.Map{
			"calc_count": account.CalcCount,
		},
		"limits": fiber.Map{
			"advanced_mode":  entitlements.CanUseAdvancedMode(plan),
			"max_party_size": entitlements.MaxPartySize(plan),
			"history_limit":  entitlements.HistoryLimit(plan),
		},
	}

	return c.JSON(response)
}

func accountAvatar(account *models.User) string {
	if account.AvatarURL != "" {
		return account.AvatarURL
	}
	return utils.GetGravatarURL(account.Email, 80)
}

func planTypeOrNone(planType *string) string {
	if planType == nil || *planType == "" {
		return models.PlanNone
	}
	return *planType
}
