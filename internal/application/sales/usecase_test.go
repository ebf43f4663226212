package sales_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Farmacia-api/internal/application/coordination"
	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/sales"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	domainsales "github.com/jhoicas/Farmacia-api/internal/domain/sales"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/memory"
	"github.com/jhoicas/Farmacia-api/pkg/config"
	"github.com/jhoicas/Farmacia-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

const shop = "shop-1"

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	stock  *inventory.StockUseCase
	orders *sales.OrderUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New("SO")
	for id, name := range map[string]string{"drug-a": "Amoxicilina 500mg", "drug-b": "Ibuprofeno 400mg"} {
		d := entity.Drug{Name: name, DefaultPackaging: entity.PackagingInfo{Unit: "tableta", UnitsPerPackage: 10, PackagesPerBox: 1}}
		d.ID = id
		st.AddDrug(d)
	}
	coord := coordination.NewCoordinator()
	clock := func() time.Time { return now }
	cfg := config.InventoryConfig{DefaultReorderPoint: 2, ExpiryWarningDays: 90, ReplenishmentFactor: 1.5}
	return &fixture{
		store: st,
		stock: inventory.NewStockUseCase(coord, st, st.Ledgers(), st.Drugs(), cfg, logger.Nop()).WithClock(clock),
		orders: sales.NewOrderUseCase(coord, st, st.Orders(), st.Drugs(),
			domainsales.NewPaymentPolicy(entity.PaymentCredit), logger.Nop()).WithClock(clock),
	}
}

func (f *fixture) restock(t *testing.T, drugID, batch string, qty, expiresInDays int) {
	t.Helper()
	_, err := f.stock.Restock(context.Background(), shop, dto.RestockRequest{
		DrugID:        drugID,
		BatchNumber:   batch,
		Quantity:      qty,
		ExpiryDate:    now.AddDate(0, 0, expiresInDays),
		PurchasePrice: decimal.NewFromInt(2),
		SellingPrice:  decimal.NewFromInt(10),
	})
	require.NoError(t, err)
}

func (f *fixture) start(t *testing.T) *dto.SalesOrderResponse {
	t.Helper()
	o, err := f.orders.StartSale(context.Background(), shop, dto.StartSaleRequest{CashierID: "cajero-1"})
	require.NoError(t, err)
	return o
}

func (f *fixture) add(t *testing.T, orderID, drugID string, qty int) *dto.SalesOrderResponse {
	t.Helper()
	o, err := f.orders.AddItem(context.Background(), orderID, dto.AddItemRequest{DrugID: drugID, Quantity: qty})
	require.NoError(t, err)
	return o
}

func (f *fixture) pay(t *testing.T, orderID string, amount int64) {
	t.Helper()
	_, err := f.orders.Pay(context.Background(), orderID, dto.PayRequest{AmountPaid: decimal.NewFromInt(amount), PaymentMethod: "Cash"})
	require.NoError(t, err)
}

func (f *fixture) level(t *testing.T, drugID string) *dto.StockLevelResponse {
	t.Helper()
	s, err := f.stock.Snapshot(context.Background(), shop, drugID)
	require.NoError(t, err)
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// StartSale / AddItem / RemoveItem
// ──────────────────────────────────────────────────────────────────────────────

func TestStartSale_NumeraPorTienda(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.start(t)
	second := f.start(t)
	other, err := f.orders.StartSale(ctx, "shop-2", dto.StartSaleRequest{CashierID: "cajero-9"})
	require.NoError(t, err)

	assert.Equal(t, "SO-000001", first.OrderNumber)
	assert.Equal(t, "SO-000002", second.OrderNumber)
	assert.Equal(t, "SO-000001", other.OrderNumber)
	assert.Equal(t, "Draft", first.Status)

	_, err = f.orders.StartSale(ctx, shop, dto.StartSaleRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAddItem_ReservaConPrecioDeLaTienda(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 10, 60)
	o := f.start(t)

	got := f.add(t, o.ID, "drug-a", 3)

	require.Len(t, got.Items, 1)
	assert.True(t, decimal.NewFromInt(30).Equal(got.TotalAmount))
	assert.Equal(t, "A-1", got.Items[0].BatchNumber)
	assert.NotEmpty(t, got.Items[0].PlanID)

	lvl := f.level(t, "drug-a")
	assert.Equal(t, 3, lvl.ReservedStock)
	assert.Equal(t, 7, lvl.AvailableStock)
	assert.Equal(t, 10, lvl.TotalStock)
}

func TestAddItem_StockInsuficienteNoCambiaNada(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 2, 60)
	o := f.start(t)

	_, err := f.orders.AddItem(context.Background(), o.ID, dto.AddItemRequest{DrugID: "drug-a", Quantity: 3})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	again, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Items)
	assert.Equal(t, 0, f.level(t, "drug-a").ReservedStock)
}

func TestAddItem_MedicamentoDesconocido(t *testing.T) {
	f := newFixture(t)
	o := f.start(t)

	_, err := f.orders.AddItem(context.Background(), o.ID, dto.AddItemRequest{DrugID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.orders.AddItem(context.Background(), "orden-x", dto.AddItemRequest{DrugID: "drug-a", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddItem_NoDisponibleEnLaTienda(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 5, 60)
	off := false
	_, err := f.stock.Configure(context.Background(), shop, "drug-a", dto.ConfigureStockRequest{
		ReorderPoint: 2,
		IsAvailable:  &off,
		CostPrice:    decimal.NewFromInt(2),
		SellingPrice: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	o := f.start(t)

	_, err = f.orders.AddItem(context.Background(), o.ID, dto.AddItemRequest{DrugID: "drug-a", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 5, f.level(t, "drug-a").TotalStock, "no reserva nada")
}

func TestAddItem_ConcurrenteUltimasUnidades(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 5, 60)

	const buyers = 8
	ids := make([]string, buyers)
	for i := range ids {
		ids[i] = f.start(t).ID
	}

	var ok, short atomic.Int32
	g := new(errgroup.Group)
	for _, id := range ids {
		g.Go(func() error {
			_, err := f.orders.AddItem(context.Background(), id, dto.AddItemRequest{DrugID: "drug-a", Quantity: 3})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				short.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load(), "solo una venta obtiene las unidades")
	assert.Equal(t, int32(buyers-1), short.Load())
	lvl := f.level(t, "drug-a")
	assert.Equal(t, 3, lvl.ReservedStock)
	assert.Equal(t, 2, lvl.AvailableStock)
}

func TestAddItem_FalloAlGuardarOrdenRevierteReserva(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 10, 60)
	o := f.start(t)
	f.store.FailSaves(func(kind, _ string) error {
		if kind == "order" {
			return errors.New("disco lleno")
		}
		return nil
	})

	_, err := f.orders.AddItem(context.Background(), o.ID, dto.AddItemRequest{DrugID: "drug-a", Quantity: 4})
	require.Error(t, err)

	f.store.FailSaves(nil)
	lvl := f.level(t, "drug-a")
	assert.Equal(t, 0, lvl.ReservedStock, "libro y orden se guardan juntos o ninguno")
	assert.Equal(t, 10, lvl.AvailableStock)
}

func TestRemoveItem_LiberaReserva(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 10, 60)
	o := f.start(t)
	withItem := f.add(t, o.ID, "drug-a", 4)

	got, err := f.orders.RemoveItem(context.Background(), o.ID, withItem.Items[0].ID)
	require.NoError(t, err)

	assert.Empty(t, got.Items)
	assert.True(t, got.TotalAmount.IsZero())
	assert.Equal(t, 10, f.level(t, "drug-a").AvailableStock)

	_, err = f.orders.RemoveItem(context.Background(), o.ID, withItem.Items[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Pay / Complete / Cancel
// ──────────────────────────────────────────────────────────────────────────────

func TestPay_InsuficienteYDiferido(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 10, 60)
	ctx := context.Background()

	o := f.start(t)
	f.add(t, o.ID, "drug-a", 2)
	_, err := f.orders.Pay(ctx, o.ID, dto.PayRequest{AmountPaid: decimal.NewFromInt(5), PaymentMethod: "Cash"})
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	got, err := f.orders.Pay(ctx, o.ID, dto.PayRequest{AmountPaid: decimal.NewFromInt(5), PaymentMethod: "Credit", Reference: "CR-7"})
	require.NoError(t, err)
	assert.Equal(t, "Paid", got.Status)
	assert.True(t, decimal.NewFromInt(15).Equal(got.BalanceDue))

	_, err = f.orders.Pay(ctx, o.ID, dto.PayRequest{AmountPaid: decimal.NewFromInt(20), PaymentMethod: "Cheque"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestComplete_ConsumeStock(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 10, 60)
	f.restock(t, "drug-b", "B-1", 5, 60)
	ctx := context.Background()

	o := f.start(t)
	_, err := f.orders.Complete(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "Complete exige Paid")

	f.add(t, o.ID, "drug-a", 3)
	f.add(t, o.ID, "drug-b", 1)
	f.pay(t, o.ID, 40)

	got, err := f.orders.Complete(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, "Completed", got.Status)
	assert.NotNil(t, got.CompletedAt)
	a := f.level(t, "drug-a")
	assert.Equal(t, 7, a.TotalStock)
	assert.Equal(t, 0, a.ReservedStock)
	assert.Equal(t, 4, f.level(t, "drug-b").TotalStock)

	margin, err := f.orders.ProfitMargin(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(0.8).Equal(margin), "ingreso 40, costo 8: %s", margin)
}

func TestComplete_ParcialYReintento(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 10, 60)
	f.restock(t, "drug-b", "B-1", 5, 60)
	ctx := context.Background()

	o := f.start(t)
	f.add(t, o.ID, "drug-a", 2)
	f.add(t, o.ID, "drug-b", 1)
	f.pay(t, o.ID, 30)

	f.store.FailSaves(func(kind, id string) error {
		if kind == "ledger" && id == shop+"/drug-b" {
			return errors.New("timeout de escritura")
		}
		return nil
	})
	_, err := f.orders.Complete(ctx, o.ID)

	var partial *domain.PartialCompletionError
	require.ErrorAs(t, err, &partial)
	assert.ErrorIs(t, err, domain.ErrPartialCompletion)
	require.Len(t, partial.Succeeded, 1)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, "drug-a", partial.Succeeded[0].DrugID)
	assert.Equal(t, "drug-b", partial.Failed[0].DrugID)

	mid, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paid", mid.Status)
	assert.NotNil(t, mid.Items[0].CommittedAt)
	assert.Nil(t, mid.Items[1].CommittedAt)
	assert.Equal(t, 8, f.level(t, "drug-a").TotalStock)

	_, err = f.orders.Cancel(ctx, o.ID, dto.CancelRequest{Reason: "cliente desiste", CancelledBy: "admin"})
	assert.ErrorIs(t, err, domain.ErrConflict, "con ítems consumidos no se cancela")

	f.store.FailSaves(nil)
	done, err := f.orders.Complete(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, "Completed", done.Status)
	assert.Equal(t, 8, f.level(t, "drug-a").TotalStock, "el reintento no vuelve a descontar")
	assert.Equal(t, 4, f.level(t, "drug-b").TotalStock)
}

func TestComplete_LoteRetiradoQuedaComoFallido(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 10, 60)
	ctx := context.Background()

	o := f.start(t)
	f.add(t, o.ID, "drug-a", 3)
	f.pay(t, o.ID, 30)
	moved, err := f.stock.Recall(ctx, shop, "drug-a", "A-1")
	require.NoError(t, err)
	require.Equal(t, 7, moved)

	_, err = f.orders.Complete(ctx, o.ID)

	var partial *domain.PartialCompletionError
	require.ErrorAs(t, err, &partial)
	assert.Empty(t, partial.Succeeded)
	require.Len(t, partial.Failed, 1)
	assert.ErrorIs(t, partial.Failed[0].Err, domain.ErrBatchRecalled)
	assert.Equal(t, 3, f.level(t, "drug-a").ReservedStock, "nada se consume")

	_, err = f.orders.Cancel(ctx, o.ID, dto.CancelRequest{Reason: "lote retirado", CancelledBy: "admin"})
	require.NoError(t, err)

	a := f.level(t, "drug-a")
	assert.Zero(t, a.ReservedStock)
	assert.Zero(t, a.AvailableStock)
	assert.Equal(t, 10, a.QuarantinedStock)
}

func TestCancel_PagadaLiberaYPermiteRevender(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 4, 60)
	ctx := context.Background()

	o := f.start(t)
	f.add(t, o.ID, "drug-a", 4)
	f.pay(t, o.ID, 50)

	_, err := f.orders.Cancel(ctx, o.ID, dto.CancelRequest{CancelledBy: "admin"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el motivo es obligatorio")

	got, err := f.orders.Cancel(ctx, o.ID, dto.CancelRequest{Reason: "receta vencida", CancelledBy: "admin"})
	require.NoError(t, err)

	assert.Equal(t, "Cancelled", got.Status)
	assert.True(t, decimal.NewFromInt(40).Equal(got.RefundAmount), "pagado 50, cambio 10")
	assert.Equal(t, 4, f.level(t, "drug-a").AvailableStock)

	next := f.start(t)
	resold := f.add(t, next.ID, "drug-a", 4)
	assert.Len(t, resold.Items, 1)

	_, err = f.orders.Cancel(ctx, o.ID, dto.CancelRequest{Reason: "otra vez", CancelledBy: "admin"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSetPrescriptionYDescuento(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 10, 60)
	ctx := context.Background()
	o := f.start(t)
	f.add(t, o.ID, "drug-a", 2)

	got, err := f.orders.ApplyDiscount(ctx, o.ID, dto.DiscountRequest{Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(got.TotalAmount))

	_, err = f.orders.SetPrescription(ctx, o.ID, dto.PrescriptionRequest{Required: true})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err = f.orders.SetPrescription(ctx, o.ID, dto.PrescriptionRequest{Required: true, Number: "RX-2026-01"})
	require.NoError(t, err)
	assert.Equal(t, "RX-2026-01", got.PrescriptionNumber)
}
