package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartSaleRequest body para POST /api/shops/:shopId/orders.
type StartSaleRequest struct {
	CashierID  string `json:"cashier_id"`
	CustomerID string `json:"customer_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// AddItemRequest body para POST /api/orders/:id/items.
// Sin unit_price se usa el precio de venta de la tienda; strategy vacío equivale a FEFO.
type AddItemRequest struct {
	DrugID             string           `json:"drug_id"`
	Quantity           int              `json:"quantity"`
	UnitPrice          *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal  `json:"discount_amount"`
	Strategy           string           `json:"strategy,omitempty"`
}

// DiscountRequest descuento a nivel orden.
type DiscountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PrescriptionRequest receta de la orden: obligatoriedad y número van juntos.
type PrescriptionRequest struct {
	Required bool   `json:"required"`
	Number   string `json:"number,omitempty"`
}

// PayRequest body para POST /api/orders/:id/pay.
type PayRequest struct {
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod string          `json:"payment_method"` // Cash, Card, MobileMoney, Insurance, Credit
	Reference     string          `json:"reference,omitempty"`
}

// CancelRequest body para POST /api/orders/:id/cancel.
type CancelRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by"`
}

// PlanLineResponse lote y cantidad tomados por la asignación de una línea.
type PlanLineResponse struct {
	BatchNumber string          `json:"batch_number"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// SalesOrderItemResponse línea de una orden.
type SalesOrderItemResponse struct {
	ID                 string             `json:"id"`
	DrugID             string             `json:"drug_id"`
	BatchNumber        string             `json:"batch_number"`
	Quantity           int                `json:"quantity"`
	UnitPrice          decimal.Decimal    `json:"unit_price"`
	DiscountPercentage decimal.Decimal    `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal    `json:"discount_amount"`
	TaxRate            decimal.Decimal    `json:"tax_rate"`
	TotalPrice         decimal.Decimal    `json:"total_price"`
	TaxAmount          decimal.Decimal    `json:"tax_amount"`
	PlanID             string             `json:"plan_id"`
	Allocation         []PlanLineResponse `json:"allocation"`
	CommittedAt        *time.Time         `json:"committed_at,omitempty"`
}

// SalesOrderResponse salida de una orden de venta.
type SalesOrderResponse struct {
	ID                     string                   `json:"id"`
	OrderNumber            string                   `json:"order_number"`
	ShopID                 string                   `json:"shop_id"`
	CashierID              string                   `json:"cashier_id"`
	CustomerID             string                   `json:"customer_id,omitempty"`
	Status                 string                   `json:"status"`
	SubTotal               decimal.Decimal          `json:"sub_total"`
	TaxAmount              decimal.Decimal          `json:"tax_amount"`
	DiscountAmount         decimal.Decimal          `json:"discount_amount"`
	TotalAmount            decimal.Decimal          `json:"total_amount"`
	AmountPaid             decimal.Decimal          `json:"amount_paid"`
	ChangeGiven            decimal.Decimal          `json:"change_given"`
	BalanceDue             decimal.Decimal          `json:"balance_due"`
	RefundAmount           decimal.Decimal          `json:"refund_amount"`
	PaymentMethod          string                   `json:"payment_method,omitempty"`
	PaymentReference       string                   `json:"payment_reference,omitempty"`
	IsPrescriptionRequired bool                     `json:"is_prescription_required"`
	PrescriptionNumber     string                   `json:"prescription_number,omitempty"`
	Items                  []SalesOrderItemResponse `json:"items"`
	TotalItemsCount        int                      `json:"total_items_count"`
	ProfitMargin           decimal.Decimal          `json:"profit_margin"`
	OrderDate              time.Time                `json:"order_date"`
	PaidAt                 *time.Time               `json:"paid_at,omitempty"`
	CompletedAt            *time.Time               `json:"completed_at,omitempty"`
	CancelledAt            *time.Time               `json:"cancelled_at,omitempty"`
	CancellationReason     string                   `json:"cancellation_reason,omitempty"`
	CancelledBy            string                   `json:"cancelled_by,omitempty"`
	Notes                  string                   `json:"notes,omitempty"`
}

// ItemCommitResponse resultado de confirmar una línea durante Complete.
type ItemCommitResponse struct {
	ItemID string `json:"item_id"`
	DrugID string `json:"drug_id"`
	PlanID string `json:"plan_id"`
	Error  string `json:"error,omitempty"`
}

// PartialCompletionResponse cuerpo de error de un completado parcial (requiere reconciliación manual).
type PartialCompletionResponse struct {
	ErrorResponse
	OrderID   string               `json:"order_id"`
	Succeeded []ItemCommitResponse `json:"succeeded"`
	Failed    []ItemCommitResponse `json:"failed"`
}
