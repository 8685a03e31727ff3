package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tipmasterapp/tipmaster/app/controllers"
	"github.com/tipmasterapp/tipmaster/app/repository"
	"github.com/tipmasterapp/tipmaster/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	ac := controllers.NewAdminController(repository.GetGlobalRepositories())

	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", ac.HandleDashboard)
	adminGroup.Get("/users", ac.HandleUsers)
	adminGroup.Post("/users/update/:id", ac.HandleUserUpdate)
	adminGroup.Post("/users/delete/:id", ac.HandleUserDelete)
	adminGroup.Get("/search", ac.HandleSearch)

	// Billing operations
	adminGroup.Get("/billing/webhook-events", ac.HandleWebhookEvents)
	adminGroup.Post("/billing/reconcile", ac.HandleReconcileNow)

	// Job queue monitor
	adminGroup.Get("/queues/stats", ac.HandleQueueStats)

	// Settings
	adminGroup.Get("/settings", ac.HandleSettings)
	adminGroup.Post("/settings", ac.HandleSettingsUpdate)
}
