package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/tipmasterapp/tipmaster/app/models"
	"github.com/tipmasterapp/tipmaster/internal/pkg/env"
	"github.com/tipmasterapp/tipmaster/internal/pkg/usercontext"
)

// HandleHome is the SPA fallback for non-API requests. The built frontend
// is served as static files; this endpoint carries the bootstrap state.
func HandleHome(c *fiber.Ctx) error {
	settings := models.GetAppSettings()
	userCtx := usercontext.GetUserContext(c)

	payload := fiber.Map{
		"app": fiber.Map{
			"name":             settings.SiteTitle,
			"description":      settings.SiteDescription,
			"env":              env.GetEnv("APP_ENV", "prod"),
			"checkout_enabled": settings.IsCheckoutEnabled(),
		},
		"user": fiber.Map{
			"logged_in": userCtx.IsLoggedIn,
			"username":  userCtx.Username,
			"plan":      userCtx.Plan,
		},
	}

	if fm := flash.Get(c); len(fm) > 0 {
		payload["flash"] = fm
	}

	return c.JSON(payload)
}

// HandleHealth is the load balancer health probe.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
