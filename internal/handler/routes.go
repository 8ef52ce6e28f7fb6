package handler

import (
	"go-productguard/internal/middleware"
	"go-productguard/internal/scope"
	"go-productguard/internal/service"
	"go-productguard/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Services bundles everything the HTTP surface calls into.
type Services struct {
	Auth         service.AuthService
	Verification service.VerificationService
	Bulk         service.BulkService
	Registry     service.RegistryService
	Hotspots     service.HotspotService
	Hub          *ws.Hub
}

// Register mounts the /api/v1 routes on app, plus /ws when a hub is set.
func Register(app *fiber.App, s Services) {
	authHandler := NewAuthHandler(s.Auth)
	scanHandler := NewScanHandler(s.Verification)
	bulkHandler := NewBulkHandler(s.Bulk)
	registryHandler := NewRegistryHandler(s.Registry)
	dashHandler := NewDashboardHandler(s.Hotspots)

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Post("/scans/verify", scanHandler.Verify)

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/validate-token", authHandler.ValidateToken)

	// ============ PROTECTED ROUTES ============
	requireAuth := middleware.RequireAuth(s.Auth)
	requireAdmin := middleware.RequireAdmin()

	auth.Post("/change-password", requireAuth, authHandler.ChangePassword)

	api.Post("/bulk/upload", requireAuth, bulkHandler.Upload)
	api.Get("/bulk-requests", requireAuth, bulkHandler.List)
	api.Get("/bulk-requests/:id", requireAuth, bulkHandler.Get)
	api.Post("/bulk-requests/:id/decision", requireAuth, requireAdmin, bulkHandler.Decide)

	api.Post("/products", requireAuth, registryHandler.CreateProduct)
	api.Get("/products", requireAuth, registryHandler.ListProducts)
	api.Patch("/qrcodes/:code/status", requireAuth, registryHandler.SetCodeStatus)

	api.Get("/hotspots", requireAuth, dashHandler.GetHotspots)
	api.Get("/overview-stats", requireAuth, dashHandler.GetOverviewStats)

	api.Get("/companies", requireAuth, registryHandler.ListCompanies)
	api.Post("/companies", requireAuth, requireAdmin, registryHandler.CreateCompany)
	api.Post("/users", requireAuth, requireAdmin, registryHandler.CreateUser)

	// WebSocket Route: queue events, filtered by the session's scope
	if s.Hub != nil {
		app.Get("/ws", middleware.RequireSocketAuth(s.Auth), websocket.New(func(c *websocket.Conn) {
			sc, ok := c.Locals(middleware.ScopeKey).(scope.Scope)
			if !ok {
				c.Close()
				return
			}
			s.Hub.Serve(c, sc)
		}))
	}
}
