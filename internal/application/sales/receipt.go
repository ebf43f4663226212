package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// ReceiptLine línea del tiquete con el nombre comercial del medicamento.
type ReceiptLine struct {
	DrugID             string
	DrugName           string
	BatchNumber        string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	TaxRate            decimal.Decimal
	Total              decimal.Decimal
}

// Receipt datos del tiquete de una orden pagada o completada.
type Receipt struct {
	ShopID             string
	OrderNumber        string
	CashierID          string
	CustomerID         string
	Status             string
	OrderDate          time.Time
	PaidAt             *time.Time
	PaymentMethod      string
	PaymentReference   string
	PrescriptionNumber string
	Lines              []ReceiptLine
	SubTotal           decimal.Decimal
	TaxAmount          decimal.Decimal
	DiscountAmount     decimal.Decimal
	TotalAmount        decimal.Decimal
	AmountPaid         decimal.Decimal
	ChangeGiven        decimal.Decimal
	BalanceDue         decimal.Decimal
}

// ReceiptUseCase arma y genera el tiquete de venta.
type ReceiptUseCase struct {
	orders    repository.OrderRepository
	drugs     repository.DrugRepository
	generator ReceiptGenerator
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(orders repository.OrderRepository, drugs repository.DrugRepository, generator ReceiptGenerator) *ReceiptUseCase {
	return &ReceiptUseCase{orders: orders, drugs: drugs, generator: generator}
}

// DownloadReceipt devuelve los bytes del tiquete y el nombre de archivo sugerido.
// Solo las órdenes Paid o Completed tienen tiquete.
func (uc *ReceiptUseCase) DownloadReceipt(ctx context.Context, orderID string) ([]byte, string, error) {
	order, err := uc.orders.Get(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	if err := order.Require("Receipt", entity.OrderPaid, entity.OrderCompleted); err != nil {
		return nil, "", err
	}

	r := Receipt{
		ShopID:             order.ShopID,
		OrderNumber:        order.OrderNumber,
		CashierID:          order.CashierID,
		CustomerID:         order.CustomerID,
		Status:             order.Status.String(),
		OrderDate:          order.OrderDate,
		PaidAt:             order.PaidAt,
		PaymentMethod:      order.PaymentMethod.String(),
		PaymentReference:   order.PaymentReference,
		PrescriptionNumber: order.PrescriptionNumber,
		Lines:              make([]ReceiptLine, 0, len(order.Items)),
		SubTotal:           order.SubTotal,
		TaxAmount:          order.TaxAmount,
		DiscountAmount:     order.DiscountAmount,
		TotalAmount:        order.TotalAmount,
		AmountPaid:         order.AmountPaid,
		ChangeGiven:        order.ChangeGiven,
		BalanceDue:         order.BalanceDue,
	}

	names := make(map[string]string)
	for _, it := range order.Items {
		name, ok := names[it.DrugID]
		if !ok {
			name, err = uc.drugName(ctx, it.DrugID)
			if err != nil {
				return nil, "", err
			}
			names[it.DrugID] = name
		}
		r.Lines = append(r.Lines, ReceiptLine{
			DrugID:             it.DrugID,
			DrugName:           name,
			BatchNumber:        it.BatchNumber,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			DiscountPercentage: it.DiscountPercentage,
			TaxRate:            it.TaxRate,
			Total:              it.TotalPrice,
		})
	}

	b, err := uc.generator.GenerateReceipt(ctx, r)
	if err != nil {
		return nil, "", fmt.Errorf("tiquete %s: %w", order.OrderNumber, err)
	}
	return b, "tiquete_" + order.OrderNumber + ".pdf", nil
}

// drugName usa el id cuando el medicamento ya no está en el catálogo.
func (uc *ReceiptUseCase) drugName(ctx context.Context, drugID string) (string, error) {
	d, err := uc.drugs.Get(ctx, drugID)
	if errors.Is(err, domain.ErrNotFound) {
		return drugID, nil
	}
	if err != nil {
		return "", err
	}
	return d.Name, nil
}
