package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/internal/domain/sales"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/memory"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func stockedLedger(t *testing.T, shopID, drugID string) *inventory.StockLedger {
	t.Helper()
	l := inventory.NewStockLedger(shopID, drugID, 1)
	require.NoError(t, l.Restock(entity.BatchRecord{
		BatchNumber:    "L1",
		QuantityOnHand: 5,
		ExpiryDate:     now.AddDate(0, 6, 0),
		PurchasePrice:  decimal.NewFromInt(1),
		SellingPrice:   decimal.NewFromInt(3),
		Location:       entity.LocationShopFloor,
	}, now))
	return l
}

func TestLedgers_CopiaAlLeerYGuardar(t *testing.T) {
	st := memory.New("SO")
	ctx := context.Background()
	l := stockedLedger(t, "shop-1", "drug-a")
	require.NoError(t, st.Ledgers().Save(ctx, l))

	l.Batches[0].QuantityOnHand = 99
	got, err := st.Ledgers().Get(ctx, "shop-1", "drug-a")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Batches[0].QuantityOnHand, "guardar copia el agregado")

	got.Batches[0].QuantityOnHand = 0
	again, err := st.Ledgers().Get(ctx, "shop-1", "drug-a")
	require.NoError(t, err)
	assert.Equal(t, 5, again.Batches[0].QuantityOnHand, "leer devuelve una copia")

	_, err = st.Ledgers().Get(ctx, "shop-1", "drug-x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedgers_SaveRechazaInvariantesRotos(t *testing.T) {
	st := memory.New("SO")
	l := stockedLedger(t, "shop-1", "drug-a")
	l.Batches[0].QuantityOnHand = -1

	err := st.Ledgers().Save(context.Background(), l)
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestListByShop_OrdenadoYConTransaccion(t *testing.T) {
	st := memory.New("SO")
	ctx := context.Background()
	require.NoError(t, st.Ledgers().Save(ctx, stockedLedger(t, "shop-1", "drug-b")))
	require.NoError(t, st.Ledgers().Save(ctx, stockedLedger(t, "shop-2", "drug-a")))

	err := st.Run(ctx, func(ledgers repository.LedgerRepository) error {
		if err := ledgers.Save(ctx, stockedLedger(t, "shop-1", "drug-a")); err != nil {
			return err
		}
		list, err := ledgers.ListByShop(ctx, "shop-1")
		if err != nil {
			return err
		}
		assert.Len(t, list, 2, "la transacción ve sus propias escrituras")
		assert.Equal(t, "drug-a", list[0].DrugID)
		return nil
	})
	require.NoError(t, err)

	list, err := st.Ledgers().ListByShop(ctx, "shop-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRunSales_TodoONada(t *testing.T) {
	st := memory.New("SO")
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.RunSales(ctx, func(ledgers repository.LedgerRepository, orders repository.OrderRepository) error {
		if err := ledgers.Save(ctx, stockedLedger(t, "shop-1", "drug-a")); err != nil {
			return err
		}
		if err := orders.Save(ctx, sales.NewSalesOrder("o-1", "shop-1", "SO-000001", "c", now)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Ledgers().Get(ctx, "shop-1", "drug-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = st.Orders().Get(ctx, "o-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFailSaves_InyectaFallo(t *testing.T) {
	st := memory.New("SO")
	ctx := context.Background()
	st.FailSaves(func(kind, id string) error {
		if kind == "order" && id == "o-1" {
			return errors.New("sin espacio")
		}
		return nil
	})

	assert.Error(t, st.Orders().Save(ctx, sales.NewSalesOrder("o-1", "shop-1", "SO-1", "c", now)))
	assert.NoError(t, st.Orders().Save(ctx, sales.NewSalesOrder("o-2", "shop-1", "SO-2", "c", now)))

	st.FailSaves(nil)
	assert.NoError(t, st.Orders().Save(ctx, sales.NewSalesOrder("o-1", "shop-1", "SO-1", "c", now)))
}

func TestNextOrderNumber_PorTiendaYPrefijo(t *testing.T) {
	st := memory.New("FAR")
	ctx := context.Background()
	orders := st.Orders()

	n1, err := orders.NextOrderNumber(ctx, "shop-1")
	require.NoError(t, err)
	n2, err := orders.NextOrderNumber(ctx, "shop-1")
	require.NoError(t, err)
	n3, err := orders.NextOrderNumber(ctx, "shop-2")
	require.NoError(t, err)

	assert.Equal(t, "FAR-000001", n1)
	assert.Equal(t, "FAR-000002", n2)
	assert.Equal(t, "FAR-000001", n3)
}

func TestCatalogo_UpsertYEmpaque(t *testing.T) {
	st := memory.New("")
	ctx := context.Background()
	d := entity.Drug{Name: "Loratadina", DefaultPackaging: entity.PackagingInfo{Unit: "tableta", UnitsPerPackage: 10, PackagesPerBox: 1}}
	d.ID = "drug-l"
	require.NoError(t, st.UpsertDrug(ctx, d))

	got, err := st.Drugs().Get(ctx, "drug-l")
	require.NoError(t, err)
	assert.Equal(t, "Loratadina", got.Name)

	override, err := st.Packaging().ShopOverride(ctx, "shop-1", "drug-l")
	require.NoError(t, err)
	assert.Nil(t, override)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, st.UpsertDrug(cancelled, d), context.Canceled)
}
