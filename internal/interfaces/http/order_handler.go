package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/sales"
)

// OrderHandler maneja el ciclo de vida de las órdenes de venta.
type OrderHandler struct {
	uc       *sales.OrderUseCase
	receipts *sales.ReceiptUseCase
}

// NewOrderHandler construye el handler. receipts puede ser nil si no se sirven tiquetes.
func NewOrderHandler(uc *sales.OrderUseCase, receipts *sales.ReceiptUseCase) *OrderHandler {
	return &OrderHandler{uc: uc, receipts: receipts}
}

// StartSale godoc
// @Summary      Iniciar venta
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        shopId  path  string                true   "Tienda"
// @Param        body    body  dto.StartSaleRequest  false  "cashier_id (o cabecera X-Cashier-ID), customer_id, notes"
// @Success      201     {object}  dto.SalesOrderResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/shops/{shopId}/orders [post]
func (h *OrderHandler) StartSale(c *fiber.Ctx) error {
	var in dto.StartSaleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	if in.CashierID == "" {
		in.CashierID = GetActorID(c)
	}
	out, err := h.uc.StartSale(c.Context(), shopID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener orden
// @Tags         orders
// @Produce      json
// @Success      200  {object}  dto.SalesOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AddItem godoc
// @Summary      Agregar línea (reserva stock FEFO)
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AddItemRequest  true  "drug_id, quantity, precio opcional"
// @Success      201   {object}  dto.SalesOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items [post]
func (h *OrderHandler) AddItem(c *fiber.Ctx) error {
	var in dto.AddItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AddItem(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// RemoveItem quita la línea y libera su reserva.
func (h *OrderHandler) RemoveItem(c *fiber.Ctx) error {
	out, err := h.uc.RemoveItem(c.Context(), c.Params("id"), c.Params("itemId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ApplyDiscount descuento a nivel orden.
func (h *OrderHandler) ApplyDiscount(c *fiber.Ctx) error {
	var in dto.DiscountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.ApplyDiscount(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetPrescription receta de la orden.
func (h *OrderHandler) SetPrescription(c *fiber.Ctx) error {
	var in dto.PrescriptionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SetPrescription(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Pay godoc
// @Summary      Pagar orden
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PayRequest  true  "amount_paid, payment_method"
// @Success      200   {object}  dto.SalesOrderResponse
// @Failure      402   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/pay [post]
func (h *OrderHandler) Pay(c *fiber.Ctx) error {
	var in dto.PayRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Pay(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Complete godoc
// @Summary      Completar orden (consume las reservas)
// @Description  Si alguna línea no se puede confirmar responde 409 con el detalle por línea;
//
//	la orden sigue en Paid y un reintento procesa solo las pendientes.
//
// @Tags         orders
// @Produce      json
// @Success      200  {object}  dto.SalesOrderResponse
// @Failure      409  {object}  dto.PartialCompletionResponse
// @Router       /api/orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *fiber.Ctx) error {
	out, err := h.uc.Complete(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel libera las reservas y cancela la orden.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.CancelledBy == "" {
		in.CancelledBy = GetActorID(c)
	}
	out, err := h.uc.Cancel(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ProfitMargin margen de la orden con el costo de los lotes asignados.
func (h *OrderHandler) ProfitMargin(c *fiber.Ctx) error {
	margin, err := h.uc.ProfitMargin(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"order_id": c.Params("id"), "profit_margin": margin})
}

// Receipt godoc
// @Summary      Descargar tiquete de venta en PDF
// @Tags         orders
// @Produce      application/pdf
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/receipt [get]
func (h *OrderHandler) Receipt(c *fiber.Ctx) error {
	if h.receipts == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{
			Code: "NOT_IMPLEMENTED", Message: "tiquetes no configurados",
		})
	}
	pdf, filename, err := h.receipts.DownloadReceipt(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
