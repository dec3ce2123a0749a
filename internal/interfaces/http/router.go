package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-sectores/internal/application/count"
	"github.com/jhoicas/stock-sectores/internal/application/sector"
	"github.com/jhoicas/stock-sectores/internal/application/stock"
	"github.com/jhoicas/stock-sectores/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	TransferUC *stock.TransferUseCase
	QueryUC    *stock.QueryUseCase
	CountUC    *count.CountUseCase
	SectorUC   *sector.UseCase
	JWTSecret  string
	JWTIssuer  string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	managers := RequireRole(jwt.RoleAdmin, jwt.RoleSupervisor)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleSupervisor, jwt.RoleOperator)

	// Sectors
	sectors := api.Group("/sectors")
	sectorHandler := NewSectorHandler(deps.SectorUC)
	sectors.Get("/", anyRole, sectorHandler.List)
	sectors.Get("/:id", anyRole, sectorHandler.GetByID)
	sectors.Post("/", managers, sectorHandler.Create)
	sectors.Patch("/:id/deactivate", managers, sectorHandler.Deactivate)

	// Stock ledger
	stockGroup := api.Group("/stock")
	stockHandler := NewStockHandler(deps.TransferUC, deps.QueryUC)
	stockGroup.Post("/transfers", anyRole, stockHandler.Transfer)
	stockGroup.Post("/assignments", anyRole, stockHandler.Assign)
	stockGroup.Post("/receipts", managers, stockHandler.Receive)
	stockGroup.Delete("/entries", managers, stockHandler.Remove)
	stockGroup.Delete("/sectors/:id/zero-rows", managers, stockHandler.ClearZeroStock)
	stockGroup.Get("/consolidated", anyRole, stockHandler.Consolidated)
	stockGroup.Get("/sectors/:id", anyRole, stockHandler.SectorStock)
	stockGroup.Get("/movements", anyRole, stockHandler.Movements)

	// Expressions
	api.Post("/expressions/evaluate", anyRole, EvaluateExpression)

	// Count sessions
	sessions := api.Group("/count-sessions")
	countHandler := NewCountHandler(deps.CountUC)
	sessions.Post("/", managers, countHandler.Start)
	sessions.Get("/", anyRole, countHandler.List)
	sessions.Get("/:id", anyRole, countHandler.Get)
	sessions.Post("/:id/subcounts", anyRole, countHandler.SubmitSubCount)
	sessions.Delete("/:id/subcounts/:subcount_id", anyRole, countHandler.DeleteSubCount)
	sessions.Put("/:id/products/:product_id/action", managers, countHandler.SetAction)
	sessions.Put("/:id/products/:product_id/resolved", managers, countHandler.SetResolvedQuantity)
	sessions.Post("/:id/close", managers, countHandler.Close)
	sessions.Get("/:id/comparison", anyRole, countHandler.Comparison)
	sessions.Get("/:id/comparison/export", managers, countHandler.ExportComparison)
	sessions.Post("/:id/finalize", managers, countHandler.Finalize)
	sessions.Get("/:id/registry", anyRole, countHandler.Registry)
	sessions.Get("/:id/registry/pdf", anyRole, countHandler.RegistryPDF)
}
