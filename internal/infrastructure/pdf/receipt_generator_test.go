package pdf_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/sales"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/pdf"
)

func sampleReceipt() sales.Receipt {
	paid := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	return sales.Receipt{
		ShopID:      "shop-1",
		OrderNumber: "SO-000042",
		CashierID:   "cajero-1",
		Status:      "Paid",
		OrderDate:   paid.Add(-5 * time.Minute),
		PaidAt:      &paid,
		Lines: []sales.ReceiptLine{
			{DrugID: "amox-500", DrugName: "Amoxicilina 500mg", BatchNumber: "L1", Quantity: 2,
				UnitPrice: decimal.NewFromInt(12500), DiscountPercentage: decimal.NewFromInt(10),
				TaxRate: decimal.Zero, Total: decimal.NewFromInt(22500)},
			{DrugID: "ibu-400", DrugName: "Ibuprofeno 400mg", BatchNumber: "B7", Quantity: 1,
				UnitPrice: decimal.RequireFromString("3200.50"), TaxRate: decimal.RequireFromString("0.19"),
				Total: decimal.RequireFromString("3200.50")},
		},
		SubTotal:      decimal.RequireFromString("25700.50"),
		TaxAmount:     decimal.RequireFromString("608.10"),
		TotalAmount:   decimal.RequireFromString("26308.60"),
		AmountPaid:    decimal.NewFromInt(30000),
		ChangeGiven:   decimal.RequireFromString("3691.40"),
		BalanceDue:    decimal.Zero,
		PaymentMethod: "Cash",
	}
}

func TestGenerateReceipt_DevuelvePDF(t *testing.T) {
	g := pdf.NewMarotoReceiptGenerator("Droguería Central")

	b, err := g.GenerateReceipt(context.Background(), sampleReceipt())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")), "cabecera PDF")
	assert.Greater(t, len(b), 1000)
}

func TestGenerateReceipt_SinLineasNiCliente(t *testing.T) {
	g := pdf.NewMarotoReceiptGenerator("")
	r := sampleReceipt()
	r.Lines = nil
	r.PaidAt = nil

	b, err := g.GenerateReceipt(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}

func TestGenerateReceipt_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pdf.NewMarotoReceiptGenerator("x").GenerateReceipt(ctx, sampleReceipt())
	assert.ErrorIs(t, err, context.Canceled)
}
