package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/tipmasterapp/tipmaster/app/controllers"
	"github.com/tipmasterapp/tipmaster/internal/pkg/constants"
	"github.com/tipmasterapp/tipmaster/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/health", controllers.HandleHealth)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post(constants.WebhookRoute, controllers.HandleCreemWebhook)
	app.Get(constants.WebhookRoute, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "method_not_allowed"})
	})

	// Checkout redirect target, signed via query parameters
	app.Get(constants.CallbackRoute, controllers.HandlePaymentCallback)
}
