package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router is a self-contained route group that knows how to attach itself.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires all route groups onto the app. The HTTP router must go
// first: it initializes the session store, the OAuth providers and the global
// user context middleware that the JSON API routes rely on.
func InstallRouter(app *fiber.App) {
	setup(app, NewHttpRouter(), NewApiRouter())
}

func setup(app *fiber.App, routers ...Router) {
	for _, r := range routers {
		r.InstallRouter(app)
	}
}
