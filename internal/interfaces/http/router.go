package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	DTE       dteService
	Log       *logger.Logger
	JWTSecret string
	// Metrics registro expuesto en /metrics; nil = deshabilitado.
	Metrics prometheus.Gatherer
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	dteHandler := NewDTEHandler(deps.DTE, deps.Log)

	// Transmisión por factura
	invoices := protected.Group("/invoices/:id/dte")
	invoices.Get("/", RequireRole(RoleAdmin, RoleFacturador, RoleAuditor), dteHandler.Status)
	invoices.Get("/events", RequireRole(RoleAdmin, RoleFacturador, RoleAuditor), dteHandler.Events)
	invoices.Post("/", RequireRole(RoleAdmin, RoleFacturador), dteHandler.Start)
	invoices.Post("/retry", RequireRole(RoleAdmin, RoleFacturador), dteHandler.Retry)
	invoices.Delete("/", RequireRole(RoleAdmin, RoleFacturador), dteHandler.Close)
	invoices.Post("/invalidation", RequireRole(RoleAdmin), dteHandler.Invalidate)

	// Eventos y cuenta del emisor
	dteGroup := protected.Group("/dte")
	dteGroup.Post("/contingency", RequireRole(RoleAdmin, RoleFacturador), dteHandler.ReportContingency)
	dteGroup.Post("/credentials/validate", RequireRole(RoleAdmin), dteHandler.ValidateCredentials)
	dteGroup.Post("/account/deactivate", RequireRole(RoleAdmin), dteHandler.DeactivateAccount)
	dteGroup.Delete("/account", RequireRole(RoleAdmin), dteHandler.DeleteAccount)
}
