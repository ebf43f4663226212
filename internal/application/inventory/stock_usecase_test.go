package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/coordination"
	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/memory"
	"github.com/jhoicas/Farmacia-api/pkg/config"
	"github.com/jhoicas/Farmacia-api/pkg/logger"
)

const shop = "shop-1"

var start = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

var cfg = config.InventoryConfig{DefaultReorderPoint: 2, ExpiryWarningDays: 30, ReplenishmentFactor: 1.5}

type fixture struct {
	store *memory.Store
	uc    *inventory.StockUseCase
	repl  *inventory.ReplenishmentUseCase
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New("SO")
	for id, name := range map[string]string{"drug-a": "Amoxicilina", "drug-b": "Ibuprofeno", "drug-c": "Loratadina"} {
		d := entity.Drug{Name: name}
		d.ID = id
		st.AddDrug(d)
	}
	f := &fixture{store: st, clock: start}
	f.uc = inventory.NewStockUseCase(coordination.NewCoordinator(), st, st.Ledgers(), st.Drugs(), cfg, logger.Nop()).
		WithClock(func() time.Time { return f.clock })
	f.repl = inventory.NewReplenishmentUseCase(st.Ledgers(), st.Drugs(), cfg)
	return f
}

func restockReq(drugID, batch string, qty, expiresInDays int) dto.RestockRequest {
	return dto.RestockRequest{
		DrugID:        drugID,
		BatchNumber:   batch,
		Quantity:      qty,
		ExpiryDate:    start.AddDate(0, 0, expiresInDays),
		PurchasePrice: decimal.NewFromInt(2),
		SellingPrice:  decimal.NewFromInt(5),
	}
}

func (f *fixture) restock(t *testing.T, drugID, batch string, qty, expiresInDays int) *dto.StockLevelResponse {
	t.Helper()
	lvl, err := f.uc.Restock(context.Background(), shop, restockReq(drugID, batch, qty, expiresInDays))
	require.NoError(t, err)
	return lvl
}

// ──────────────────────────────────────────────────────────────────────────────
// Escrituras
// ──────────────────────────────────────────────────────────────────────────────

func TestRestock_CreaElLibro(t *testing.T) {
	f := newFixture(t)

	lvl := f.restock(t, "drug-a", "A-1", 8, 120)

	assert.Equal(t, 8, lvl.TotalStock)
	assert.Equal(t, 8, lvl.ShopFloorStock)
	assert.Equal(t, 2, lvl.ReorderPoint, "punto de reorden por defecto")
	assert.True(t, decimal.NewFromInt(2).Equal(lvl.CostPrice))
	assert.True(t, decimal.NewFromInt(5).Equal(lvl.SellingPrice))
	require.Len(t, lvl.Batches, 1)
	assert.Equal(t, "Active", lvl.Batches[0].Status)
	require.NotNil(t, lvl.LastRestockDate)
}

func TestRestock_Rechazos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Restock(ctx, shop, restockReq("nope", "X-1", 1, 30))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	req := restockReq("drug-a", "A-1", 1, 30)
	req.Location = "Quarantined"
	_, err = f.uc.Restock(ctx, shop, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req.Location = "Vitrina"
	_, err = f.uc.Restock(ctx, shop, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Restock(ctx, "", restockReq("drug-a", "A-1", 1, 30))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Snapshot(ctx, shop, "drug-a")
	assert.ErrorIs(t, err, domain.ErrNotFound, "un rechazo no deja libro creado")
}

func TestConfigure_PreciosYDisponibilidad(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 8, 120)
	off := false

	lvl, err := f.uc.Configure(context.Background(), shop, "drug-a", dto.ConfigureStockRequest{
		ReorderPoint: 10,
		IsAvailable:  &off,
		CostPrice:    decimal.NewFromInt(3),
		SellingPrice: decimal.NewFromInt(7),
		Currency:     "COP",
		TaxRate:      decimal.RequireFromString("0.19"),
	})
	require.NoError(t, err)

	assert.False(t, lvl.IsAvailable)
	assert.True(t, lvl.IsLowStock)
	assert.Equal(t, "COP", lvl.Currency)

	_, err = f.uc.Configure(context.Background(), shop, "drug-a", dto.ConfigureStockRequest{TaxRate: decimal.NewFromInt(2)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuarantine_IdaYVuelta(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 8, 120)
	ctx := context.Background()

	lvl, err := f.uc.Quarantine(ctx, shop, "drug-a", dto.BatchQuantityRequest{BatchNumber: "A-1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, lvl.QuarantinedStock)
	assert.Equal(t, 5, lvl.TotalStock)

	_, err = f.uc.Quarantine(ctx, shop, "drug-a", dto.BatchQuantityRequest{BatchNumber: "A-1", Quantity: 6})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	lvl, err = f.uc.Unquarantine(ctx, shop, "drug-a", dto.BatchQuantityRequest{BatchNumber: "A-1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, lvl.QuarantinedStock)
	assert.Equal(t, 8, lvl.TotalStock)
}

func TestRecall_MueveLibresACuarentena(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 8, 120)
	ctx := context.Background()

	moved, err := f.uc.Recall(ctx, shop, "drug-a", "A-1")
	require.NoError(t, err)
	assert.Equal(t, 8, moved)

	lvl, err := f.uc.Snapshot(ctx, shop, "drug-a")
	require.NoError(t, err)
	assert.Equal(t, 0, lvl.AvailableStock)
	assert.Equal(t, "Recalled", lvl.Batches[0].Status)

	_, err = f.uc.Recall(ctx, shop, "drug-a", "Z-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReconcileExpired_TodaLaTienda(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 4, 5)
	f.restock(t, "drug-a", "A-2", 4, 200)
	f.restock(t, "drug-b", "B-1", 2, 7)
	ctx := context.Background()

	f.clock = start.AddDate(0, 0, 10)
	n, err := f.uc.ReconcileExpired(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.uc.ReconcileExpired(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "conciliar es idempotente")

	lvl, err := f.uc.Snapshot(ctx, shop, "drug-a")
	require.NoError(t, err)
	assert.Equal(t, 4, lvl.AvailableStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestExpiringBatches_VentanaPorDefecto(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-LEJOS", 4, 200)
	f.restock(t, "drug-a", "A-20", 4, 20)
	f.restock(t, "drug-a", "A-10", 4, 10)
	ctx := context.Background()

	got, err := f.uc.ExpiringBatches(ctx, shop, "drug-a", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A-10", got[0].BatchNumber)
	assert.Equal(t, "A-20", got[1].BatchNumber)
	assert.Equal(t, 10, got[0].DaysUntilExpiry)

	got, err = f.uc.ExpiringBatches(ctx, shop, "drug-a", 365)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	low, err := f.uc.IsLowStock(ctx, shop, "drug-a")
	require.NoError(t, err)
	assert.False(t, low)
}

func TestExpiringInShop_OrdenaEntreMedicamentos(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 1, 25)
	f.restock(t, "drug-b", "B-1", 1, 5)
	f.restock(t, "drug-c", "C-1", 1, 15)

	got, err := f.uc.ExpiringInShop(context.Background(), shop, 0)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"drug-b", "drug-c", "drug-a"}, []string{got[0].DrugID, got[1].DrugID, got[2].DrugID})

	empty, err := f.uc.ExpiringInShop(context.Background(), "shop-vacia", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
