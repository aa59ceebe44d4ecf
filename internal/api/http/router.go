package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/procon/attendance-service/internal/api/http/handlers"
	"github.com/procon/attendance-service/internal/auth"
	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	Queue          *handlers.QueueHandler
	Operations     *handlers.OperationsHandler
	Panel          *handlers.PanelHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)

	api := app.Group("/api")
	api.Get("/panel/last-called", cfg.Panel.LastCalled)

	// Internal read APIs answer unauthenticated calls with a bare error string.
	api.Get("/tickets", cfg.AuthMiddleware.HandlePlain, cfg.Tickets.ListTickets)
	api.Get("/clients", cfg.AuthMiddleware.HandlePlain, cfg.Tickets.ListClients)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	reception := auth.RequireStaffRole(domain.StaffRoleReception, domain.StaffRoleAdmin)
	attendant := auth.RequireStaffRole(domain.StaffRoleAttendant, domain.StaffRoleAdmin)

	protected.Post("/tickets", reception, cfg.Tickets.IssueTicket)
	protected.Post("/tickets/:id/cancel", cfg.Tickets.CancelTicket)
	protected.Post("/clients", reception, cfg.Tickets.RegisterClient)

	protected.Get("/service-points", cfg.Operations.ListServicePoints)
	protected.Post("/operations", attendant, cfg.Operations.Start)
	protected.Get("/operations/active", attendant, cfg.Operations.Active)
	protected.Post("/operations/:id/finish", attendant, cfg.Operations.Finish)
	protected.Post("/operations/:id/pauses", attendant, cfg.Operations.RecordPause)
	protected.Get("/operations/:id/pauses", attendant, cfg.Operations.ListPauses)

	protected.Post("/queue/call-next", attendant, cfg.Queue.CallNext)
	protected.Get("/queue/current", attendant, cfg.Queue.Current)

	protected.Get("/treatments/:id", attendant, cfg.Queue.GetTreatment)
	protected.Post("/treatments/:id/finish", attendant, cfg.Queue.FinishTreatment)
	protected.Post("/treatments/:id/cancel", attendant, cfg.Queue.CancelTreatment)
}
