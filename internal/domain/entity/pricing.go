package entity

import "github.com/shopspring/decimal"

// ShopPricing precio a nivel tienda que sobrescribe el precio sugerido del catálogo.
// TaxRate es fracción: 0.19 = 19%.
type ShopPricing struct {
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	Currency     string
	TaxRate      decimal.Decimal
}
