package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/inventory"
)

var hundred = decimal.NewFromInt(100)

// ItemInput datos de una línea antes de reservar stock.
type ItemInput struct {
	DrugID             string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	TaxRate            decimal.Decimal
}

// SalesOrderItem línea de una orden. Referencia (no posee) al lote principal por BatchNumber
// y guarda el plan de asignación para confirmar o liberar el stock después.
type SalesOrderItem struct {
	ID                 string
	DrugID             string
	BatchNumber        string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	TaxRate            decimal.Decimal
	TotalPrice         decimal.Decimal
	TaxAmount          decimal.Decimal
	Plan               inventory.AllocationPlan
	CommittedAt        *time.Time
}

// PriceItem valida la línea y calcula totalPrice = qty*unitPrice*(1-desc%/100) - descuento.
func PriceItem(id string, in ItemInput) (SalesOrderItem, error) {
	switch {
	case strings.TrimSpace(in.DrugID) == "":
		return SalesOrderItem{}, domain.Invalid("drug_id", "obligatorio")
	case in.Quantity <= 0:
		return SalesOrderItem{}, domain.Invalid("quantity", "debe ser mayor que cero")
	case in.UnitPrice.IsNegative():
		return SalesOrderItem{}, domain.Invalid("unit_price", "no puede ser negativo")
	case in.DiscountPercentage.IsNegative() || in.DiscountPercentage.GreaterThan(hundred):
		return SalesOrderItem{}, domain.Invalid("discount_percentage", "debe estar entre 0 y 100")
	case in.DiscountAmount.IsNegative():
		return SalesOrderItem{}, domain.Invalid("discount_amount", "no puede ser negativo")
	case in.TaxRate.IsNegative():
		return SalesOrderItem{}, domain.Invalid("tax_rate", "no puede ser negativo")
	}

	gross := decimal.NewFromInt(int64(in.Quantity)).Mul(in.UnitPrice)
	factor := decimal.NewFromInt(1).Sub(in.DiscountPercentage.Div(hundred))
	total := gross.Mul(factor).Sub(in.DiscountAmount).Round(2)
	if total.IsNegative() {
		return SalesOrderItem{}, domain.Invalid("discount_amount", fmt.Sprintf("el descuento deja la línea en %s", total.StringFixed(2)))
	}
	return SalesOrderItem{
		ID:                 id,
		DrugID:             in.DrugID,
		Quantity:           in.Quantity,
		UnitPrice:          in.UnitPrice,
		DiscountPercentage: in.DiscountPercentage,
		DiscountAmount:     in.DiscountAmount,
		TaxRate:            in.TaxRate,
		TotalPrice:         total,
		TaxAmount:          total.Mul(in.TaxRate).Round(2),
	}, nil
}

// AttachPlan asocia el plan reservado a la línea. El lote referenciado es el primero consumido.
func (it *SalesOrderItem) AttachPlan(plan inventory.AllocationPlan) error {
	if plan.Quantity() != it.Quantity || plan.DrugID != it.DrugID {
		return &domain.InternalError{Op: "AttachPlan", Detail: fmt.Sprintf("plan %s no cubre la línea %s", plan.ID, it.ID)}
	}
	it.Plan = plan.Clone()
	it.BatchNumber = plan.Lines[0].BatchNumber
	return nil
}

// Cost costo histórico de la línea según el plan registrado al asignar.
func (it *SalesOrderItem) Cost() decimal.Decimal { return it.Plan.Cost() }

// Committed true si el plan de la línea ya se consumió.
func (it *SalesOrderItem) Committed() bool { return it.CommittedAt != nil }
