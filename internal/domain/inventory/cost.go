package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado de la tienda tras recibir un lote.
// costo = ((unidades * costoActual) + (recibidas * costoLote)) / (unidades + recibidas)
func WeightedAverageCost(units int, currentCost decimal.Decimal, received int, receivedCost decimal.Decimal) decimal.Decimal {
	if units < 0 {
		units = 0
	}
	total := units + received
	if total <= 0 {
		return decimal.Zero
	}
	num := decimal.NewFromInt(int64(units)).Mul(currentCost).
		Add(decimal.NewFromInt(int64(received)).Mul(receivedCost))
	return num.Div(decimal.NewFromInt(int64(total))).Round(4)
}
