package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RestockRequest body para POST /api/shops/:shopId/stock/restock.
type RestockRequest struct {
	DrugID          string          `json:"drug_id"`
	BatchNumber     string          `json:"batch_number"`
	SupplierID      string          `json:"supplier_id"`
	Quantity        int             `json:"quantity"`
	ReceivedDate    *time.Time      `json:"received_date,omitempty"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	Location        string          `json:"location,omitempty"` // ShopFloor (por defecto) o Storage
	StorageLocation string          `json:"storage_location,omitempty"`
}

// ConfigureStockRequest body para PUT /api/shops/:shopId/stock/:drugId.
type ConfigureStockRequest struct {
	ReorderPoint int             `json:"reorder_point"`
	IsAvailable  *bool           `json:"is_available,omitempty"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Currency     string          `json:"currency"`
	TaxRate      decimal.Decimal `json:"tax_rate"` // fracción: 0.19 = 19%
}

// BatchQuantityRequest body para cuarentena / salida de cuarentena.
type BatchQuantityRequest struct {
	BatchNumber string `json:"batch_number"`
	Quantity    int    `json:"quantity"`
}

// BatchResponse lote de un libro de stock.
type BatchResponse struct {
	BatchNumber         string          `json:"batch_number"`
	SupplierID          string          `json:"supplier_id,omitempty"`
	QuantityOnHand      int             `json:"quantity_on_hand"`
	ReservedQuantity    int             `json:"reserved_quantity"`
	QuarantinedQuantity int             `json:"quarantined_quantity"`
	ReceivedDate        time.Time       `json:"received_date"`
	ExpiryDate          time.Time       `json:"expiry_date"`
	DaysUntilExpiry     int             `json:"days_until_expiry"`
	PurchasePrice       decimal.Decimal `json:"purchase_price"`
	SellingPrice        decimal.Decimal `json:"selling_price"`
	Location            string          `json:"location"`
	StorageLocation     string          `json:"storage_location,omitempty"`
	Status              string          `json:"status"`
}

// StockLevelResponse estado de un libro (tienda, medicamento) con cantidades derivadas.
type StockLevelResponse struct {
	ShopID           string          `json:"shop_id"`
	DrugID           string          `json:"drug_id"`
	TotalStock       int             `json:"total_stock"`
	ShopFloorStock   int             `json:"shop_floor_stock"`
	StorageStock     int             `json:"storage_stock"`
	ReservedStock    int             `json:"reserved_stock"`
	QuarantinedStock int             `json:"quarantined_stock"`
	AvailableStock   int             `json:"available_stock"`
	ReorderPoint     int             `json:"reorder_point"`
	IsLowStock       bool            `json:"is_low_stock"`
	IsAvailable      bool            `json:"is_available"`
	LastRestockDate  *time.Time      `json:"last_restock_date,omitempty"`
	CostPrice        decimal.Decimal `json:"cost_price"`
	SellingPrice     decimal.Decimal `json:"selling_price"`
	Currency         string          `json:"currency,omitempty"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	Batches          []BatchResponse `json:"batches"`
}

// ExpiringBatchResponse lote próximo a vencer con el medicamento al que pertenece.
type ExpiringBatchResponse struct {
	DrugID string `json:"drug_id"`
	BatchResponse
}

// AffectedResponse cantidad afectada por una operación masiva (lotes vencidos, unidades retiradas).
type AffectedResponse struct {
	Affected int `json:"affected"`
}

// ReplenishmentSuggestionDTO representa una sugerencia de reposición para un medicamento
// que se encuentra en o por debajo de su punto de reorden.
type ReplenishmentSuggestionDTO struct {
	DrugID             string          `json:"drug_id"`
	DrugName           string          `json:"drug_name"`
	CurrentStock       int             `json:"current_stock"`
	ReorderPoint       int             `json:"reorder_point"`
	IdealStock         int             `json:"ideal_stock"`          // ceil(ReorderPoint * factor)
	SuggestedOrderQty  int             `json:"suggested_order_qty"`  // IdealStock - CurrentStock
	UnitCost           decimal.Decimal `json:"unit_cost"`            // costo promedio ponderado
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	QuarantinedStock   int             `json:"quarantined_stock"`
	Priority           int             `json:"priority"` // 1 = más urgente
}

// PackagingResponse empaque efectivo de un medicamento en una tienda.
type PackagingResponse struct {
	ShopID          string `json:"shop_id"`
	DrugID          string `json:"drug_id"`
	Unit            string `json:"unit"`
	UnitsPerPackage int    `json:"units_per_package"`
	PackagesPerBox  int    `json:"packages_per_box"`
	Description     string `json:"description,omitempty"`
	Overridden      bool   `json:"overridden"`
}
