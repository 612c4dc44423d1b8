package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Traslados-api/internal/application/financial"
	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LocationUC       *usecase.LocationUseCase
	Transfers        *transfer.Service
	Financial        *financial.Service
	RegisterMovement *inventory.RegisterMovementUseCase
	Balance          *inventory.BalanceQuery
	JWTSecret        string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(RoleAdmin, RoleBodeguero, RoleAuditor)
	clerk := RequireRole(RoleAdmin, RoleBodeguero)
	reviewer := RequireRole(RoleAdmin, RoleAuditor)
	admin := RequireRole(RoleAdmin)

	// Locations
	locations := protected.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC)
	locations.Post("/", admin, locationHandler.Create)
	locations.Get("/", anyRole, locationHandler.List)
	locations.Get("/:id", anyRole, locationHandler.GetByID)

	// Transfers
	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Transfers)
	discrepancyHandler := NewDiscrepancyHandler(deps.Transfers)
	transfers.Post("/", clerk, transferHandler.Create)
	transfers.Get("/", anyRole, transferHandler.List)
	transfers.Get("/:id", anyRole, transferHandler.GetByID)
	transfers.Get("/:id/status", anyRole, transferHandler.Status)
	transfers.Post("/:id/approve", admin, transferHandler.Approve)
	transfers.Post("/:id/dispatch", clerk, transferHandler.Dispatch)
	transfers.Post("/:id/deliver", clerk, transferHandler.Deliver)
	transfers.Post("/:id/receive", clerk, transferHandler.Receive)
	transfers.Post("/:id/cancel", admin, transferHandler.Cancel)
	transfers.Post("/:id/reconcile", reviewer, transferHandler.Reconcile)
	transfers.Get("/:id/shipment", anyRole, transferHandler.Shipment)
	transfers.Get("/:id/receipt", anyRole, transferHandler.Receipt)
	transfers.Get("/:id/conservation", anyRole, transferHandler.Conservation)
	transfers.Get("/:id/dispatch-note", anyRole, transferHandler.DispatchNote)
	transfers.Post("/:id/discrepancies", clerk, discrepancyHandler.Raise)
	transfers.Get("/:id/discrepancies", anyRole, discrepancyHandler.ListByTransfer)

	// Discrepancies
	discrepancies := protected.Group("/discrepancies")
	discrepancies.Get("/", anyRole, discrepancyHandler.ListOpen)
	discrepancies.Get("/:id", anyRole, discrepancyHandler.GetByID)
	discrepancies.Post("/:id/review", reviewer, discrepancyHandler.Review)
	discrepancies.Post("/:id/lines/:lineId/resolve", reviewer, discrepancyHandler.ResolveLine)
	discrepancies.Post("/:id/reopen", reviewer, discrepancyHandler.Reopen)
	discrepancies.Post("/:id/escalate", reviewer, discrepancyHandler.Escalate)

	// Financial impacts
	impacts := protected.Group("/financial-impacts", reviewer)
	financialHandler := NewFinancialHandler(deps.Financial)
	impacts.Post("/", financialHandler.Record)
	impacts.Get("/", financialHandler.ListByCause)
	impacts.Get("/:id", financialHandler.GetByID)
	impacts.Post("/:id/recoveries", financialHandler.RecordRecovery)

	// Inventory
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.RegisterMovement, deps.Balance)
	invGroup.Post("/movements", clerk, inventoryHandler.RegisterMovement)
	invGroup.Get("/balance", anyRole, inventoryHandler.Balance)
	invGroup.Get("/entries", anyRole, inventoryHandler.Entries)
}
