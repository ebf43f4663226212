package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
)

func (f *fixture) configure(t *testing.T, drugID string, reorder int, available bool) {
	t.Helper()
	_, err := f.uc.Configure(context.Background(), shop, drugID, dto.ConfigureStockRequest{
		ReorderPoint: reorder,
		IsAvailable:  &available,
		CostPrice:    decimal.NewFromInt(2),
		SellingPrice: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
}

func TestGenerateReplenishmentList_PrioridadPorDeficit(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 1, 120)
	f.configure(t, "drug-a", 10, true)
	f.restock(t, "drug-b", "B-1", 3, 120)
	f.configure(t, "drug-b", 4, true)
	f.restock(t, "drug-c", "C-1", 50, 120)
	f.configure(t, "drug-c", 10, true)

	got, err := f.repl.GenerateReplenishmentList(context.Background(), shop)
	require.NoError(t, err)

	require.Len(t, got, 2, "drug-c tiene stock de sobra")
	a, b := got[0], got[1]

	assert.Equal(t, "drug-a", a.DrugID)
	assert.Equal(t, "Amoxicilina", a.DrugName)
	assert.Equal(t, 1, a.Priority)
	assert.Equal(t, 15, a.IdealStock)
	assert.Equal(t, 14, a.SuggestedOrderQty)
	assert.True(t, decimal.NewFromInt(28).Equal(a.EstimatedOrderCost))

	assert.Equal(t, "drug-b", b.DrugID)
	assert.Equal(t, 2, b.Priority)
	assert.Equal(t, 6, b.IdealStock)
	assert.Equal(t, 3, b.SuggestedOrderQty)
}

func TestGenerateReplenishmentList_ExcluyeNoDisponiblesYCuentaCuarentena(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "A-1", 1, 120)
	f.configure(t, "drug-a", 10, false)
	f.restock(t, "drug-b", "B-1", 6, 120)
	f.configure(t, "drug-b", 4, true)
	_, err := f.uc.Quarantine(context.Background(), shop, "drug-b", dto.BatchQuantityRequest{BatchNumber: "B-1", Quantity: 3})
	require.NoError(t, err)

	got, err := f.repl.GenerateReplenishmentList(context.Background(), shop)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "drug-b", got[0].DrugID)
	assert.Equal(t, 3, got[0].CurrentStock, "la cuarentena no cuenta como stock")
	assert.Equal(t, 3, got[0].QuarantinedStock)
}

func TestGenerateReplenishmentList_TiendaSinLibros(t *testing.T) {
	f := newFixture(t)

	got, err := f.repl.GenerateReplenishmentList(context.Background(), "shop-vacia")
	require.NoError(t, err)
	assert.Empty(t, got)
}
