package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/packaging"
	"github.com/jhoicas/Farmacia-api/internal/domain"
)

// StockHandler maneja las peticiones HTTP de stock por tienda (lotes, cuarentena, consultas).
type StockHandler struct {
	stock         *inventory.StockUseCase
	replenishment *inventory.ReplenishmentUseCase
	packaging     *packaging.EffectivePackagingResolver
}

// NewStockHandler construye el handler.
func NewStockHandler(
	stock *inventory.StockUseCase,
	replenishment *inventory.ReplenishmentUseCase,
	resolver *packaging.EffectivePackagingResolver,
) *StockHandler {
	return &StockHandler{stock: stock, replenishment: replenishment, packaging: resolver}
}

// Restock godoc
// @Summary      Recibir lote
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        shopId  path  string               true  "Tienda"
// @Param        body    body  dto.RestockRequest   true  "drug_id, batch_number, quantity, expiry_date, precios"
// @Success      201     {object}  dto.StockLevelResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/shops/{shopId}/stock/restock [post]
func (h *StockHandler) Restock(c *fiber.Ctx) error {
	var in dto.RestockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.stock.Restock(c.Context(), shopID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Snapshot godoc
// @Summary      Estado del libro de stock
// @Tags         stock
// @Produce      json
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/shops/{shopId}/stock/{drugId} [get]
func (h *StockHandler) Snapshot(c *fiber.Ctx) error {
	out, err := h.stock.Snapshot(c.Context(), shopID(c), c.Params("drugId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Configure godoc
// @Summary      Configurar punto de reorden, disponibilidad y precios de la tienda
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConfigureStockRequest  true  "Configuración"
// @Success      200   {object}  dto.StockLevelResponse
// @Router       /api/shops/{shopId}/stock/{drugId} [put]
func (h *StockHandler) Configure(c *fiber.Ctx) error {
	var in dto.ConfigureStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.stock.Configure(c.Context(), shopID(c), c.Params("drugId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Quarantine mueve unidades de un lote a cuarentena.
func (h *StockHandler) Quarantine(c *fiber.Ctx) error {
	var in dto.BatchQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.stock.Quarantine(c.Context(), shopID(c), c.Params("drugId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Unquarantine devuelve unidades de cuarentena a la ubicación del lote.
func (h *StockHandler) Unquarantine(c *fiber.Ctx) error {
	var in dto.BatchQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.stock.Unquarantine(c.Context(), shopID(c), c.Params("drugId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Recall godoc
// @Summary      Retirar lote (recall)
// @Description  Marca el lote como retirado y pasa sus unidades libres a cuarentena.
// @Tags         stock
// @Produce      json
// @Success      200  {object}  dto.AffectedResponse
// @Router       /api/shops/{shopId}/stock/{drugId}/batches/{batchNumber}/recall [post]
func (h *StockHandler) Recall(c *fiber.Ctx) error {
	n, err := h.stock.Recall(c.Context(), shopID(c), c.Params("drugId"), c.Params("batchNumber"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: n})
}

// ReconcileExpired marca como vencidos los lotes activos con fecha pasada.
func (h *StockHandler) ReconcileExpired(c *fiber.Ctx) error {
	n, err := h.stock.ReconcileExpired(c.Context(), shopID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AffectedResponse{Affected: n})
}

// LowStock indica si el medicamento está en o bajo su punto de reorden.
func (h *StockHandler) LowStock(c *fiber.Ctx) error {
	low, err := h.stock.IsLowStock(c.Context(), shopID(c), c.Params("drugId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"drug_id": c.Params("drugId"), "is_low_stock": low})
}

// ExpiringBatches godoc
// @Summary      Lotes por vencer de un medicamento
// @Tags         stock
// @Produce      json
// @Param        days  query  int  false  "Ventana en días (por defecto la configurada)"
// @Success      200   {array}  dto.BatchResponse
// @Router       /api/shops/{shopId}/stock/{drugId}/expiring [get]
func (h *StockHandler) ExpiringBatches(c *fiber.Ctx) error {
	out, err := h.stock.ExpiringBatches(c.Context(), shopID(c), c.Params("drugId"), c.QueryInt("days", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ExpiringInShop lotes por vencer de toda la tienda, más próximos primero.
func (h *StockHandler) ExpiringInShop(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return writeError(c, domain.Invalid("page", "limit y offset deben ser enteros"))
	}
	out, err := h.stock.ExpiringInShop(c.Context(), shopID(c), c.QueryInt("days", 0))
	if err != nil {
		return writeError(c, err)
	}
	batches, meta := dto.Paginate(out, page)
	return c.JSON(fiber.Map{
		"total":   len(out),
		"batches": batches,
		"page":    meta,
	})
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Medicamentos en o bajo el punto de reorden con la cantidad sugerida de pedido,
//
//	ordenados por déficit.
//
// @Tags         stock
// @Produce      json
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/shops/{shopId}/replenishment-list [get]
func (h *StockHandler) GetReplenishmentList(c *fiber.Ctx) error {
	list, err := h.replenishment.GenerateReplenishmentList(c.Context(), shopID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}

// Packaging empaque efectivo del medicamento en la tienda.
func (h *StockHandler) Packaging(c *fiber.Ctx) error {
	out, err := h.packaging.Effective(c.Context(), shopID(c), c.Params("drugId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
