package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/packaging"
	"github.com/jhoicas/Farmacia-api/internal/application/sales"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	StockUC       *inventory.StockUseCase
	Replenishment *inventory.ReplenishmentUseCase
	Packaging     *packaging.EffectivePackagingResolver
	OrderUC       *sales.OrderUseCase
	Receipts      *sales.ReceiptUseCase
	// RequireActor exige la cabecera X-Cashier-ID en las rutas de órdenes.
	RequireActor bool
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Stock por tienda
	shops := api.Group("/shops/:shopId")
	stockHandler := NewStockHandler(deps.StockUC, deps.Replenishment, deps.Packaging)
	shops.Post("/stock/restock", stockHandler.Restock)
	shops.Post("/stock/reconcile-expired", stockHandler.ReconcileExpired)
	shops.Get("/stock/:drugId", stockHandler.Snapshot)
	shops.Put("/stock/:drugId", stockHandler.Configure)
	shops.Post("/stock/:drugId/quarantine", stockHandler.Quarantine)
	shops.Post("/stock/:drugId/unquarantine", stockHandler.Unquarantine)
	shops.Post("/stock/:drugId/batches/:batchNumber/recall", stockHandler.Recall)
	shops.Get("/stock/:drugId/low", stockHandler.LowStock)
	shops.Get("/stock/:drugId/expiring", stockHandler.ExpiringBatches)
	shops.Get("/expiring", stockHandler.ExpiringInShop)
	shops.Get("/replenishment-list", stockHandler.GetReplenishmentList)
	shops.Get("/drugs/:drugId/packaging", stockHandler.Packaging)

	// Órdenes de venta
	actor := ActorMiddleware(deps.RequireActor)
	orderHandler := NewOrderHandler(deps.OrderUC, deps.Receipts)
	shops.Post("/orders", actor, orderHandler.StartSale)

	orders := api.Group("/orders", actor)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Get("/:id/margin", orderHandler.ProfitMargin)
	orders.Get("/:id/receipt", orderHandler.Receipt)
	orders.Post("/:id/items", orderHandler.AddItem)
	orders.Delete("/:id/items/:itemId", orderHandler.RemoveItem)
	orders.Post("/:id/discount", orderHandler.ApplyDiscount)
	orders.Post("/:id/prescription", orderHandler.SetPrescription)
	orders.Post("/:id/pay", orderHandler.Pay)
	orders.Post("/:id/complete", orderHandler.Complete)
	orders.Post("/:id/cancel", orderHandler.Cancel)
}
