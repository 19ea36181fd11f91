package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/store-management/internal/api/http/handlers"
	"github.com/spec-kit/store-management/internal/auth"
	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	BasePath       string
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Products       *handlers.ProductsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// NewApp builds a fiber app whose fallback error handler renders the same
// error body as the middleware chain.
func NewApp(name string, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, metrics),
	})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	root := app.Group(cfg.BasePath)

	root.Get("/health/live", cfg.Health.Live)
	root.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		root.Get("/metrics", cfg.Metrics.Get)
	}

	authenticated := cfg.AuthMiddleware.Handle
	managers := auth.RequireAnyRole(domain.RoleManager, domain.RoleAdmin)
	admins := auth.RequireAnyRole(domain.RoleAdmin)

	products := root.Group("/products")
	products.Get("/", cfg.Products.List)
	products.Get("/:id", cfg.Products.Get)
	products.Post("/", authenticated, managers, cfg.Products.Create)
	products.Patch("/:id", authenticated, managers, cfg.Products.Update)
	products.Delete("/:id", authenticated, managers, cfg.Products.Delete)

	users := root.Group("/users")
	users.Post("/", cfg.Users.Register)
	users.Patch("/assign-role", authenticated, admins, cfg.Users.AssignRole)
}
