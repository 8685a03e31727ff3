package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/tipmasterapp/tipmaster/app/controllers"
	"github.com/tipmasterapp/tipmaster/internal/pkg/middleware"
)

// Pong is the ping response body
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer implements the public v1 API
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// PostCalculate runs one tip calculation
func (s *APIServer) PostCalculate(c *fiber.Ctx) error {
	return controllers.HandleCalculate(c)
}

// GetCalcLimits returns the plan limits of the current caller
func (s *APIServer) GetCalcLimits(c *fiber.Ctx) error {
	return controllers.HandleCalcLimits(c)
}

// GetUserAccount returns account information for the authenticated user.
// Security is enforced via session middleware attached in RegisterHandlers.
func (s *APIServer) GetUserAccount(c *fiber.Ctx) error {
	return controllers.HandleGetUserAccount(c)
}

// PostBillingCheckout creates a Creem checkout session
func (s *APIServer) PostBillingCheckout(c *fiber.Ctx) error {
	return controllers.HandleCreateCheckout(c)
}

// GetBillingStatus returns the caller's pro status
func (s *APIServer) GetBillingStatus(c *fiber.Ctx) error {
	return controllers.HandleProStatus(c)
}

// RegisterHandlers attaches the v1 endpoints to the given router group
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)

	// Calculation endpoints work for anonymous callers with free limits
	router.Post("/calc", s.PostCalculate)
	router.Get("/calc/limits", s.GetCalcLimits)

	router.Get("/user/account", middleware.RequireAPISessionAuth, s.GetUserAccount)

	router.Post("/billing/checkout", middleware.RequireAPISessionAuth, s.PostBillingCheckout)
	router.Get("/billing/status", middleware.RequireAPISessionAuth, s.GetBillingStatus)
}
