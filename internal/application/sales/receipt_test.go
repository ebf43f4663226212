package sales_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/sales"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/memory"
)

// captureGenerator guarda el último tiquete recibido.
type captureGenerator struct {
	last sales.Receipt
	err  error
}

func (g *captureGenerator) GenerateReceipt(_ context.Context, r sales.Receipt) ([]byte, error) {
	g.last = r
	if g.err != nil {
		return nil, g.err
	}
	return []byte("%PDF-fake"), nil
}

func TestDownloadReceipt_OrdenPagada(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "L1", 5, 200)
	f.restock(t, "drug-b", "B1", 5, 200)
	o := f.start(t)
	f.add(t, o.ID, "drug-a", 2)
	f.add(t, o.ID, "drug-b", 1)
	f.pay(t, o.ID, 50)

	gen := &captureGenerator{}
	uc := sales.NewReceiptUseCase(f.store.Orders(), f.store.Drugs(), gen)

	b, filename, err := uc.DownloadReceipt(context.Background(), o.ID)
	require.NoError(t, err)

	assert.Equal(t, "%PDF-fake", string(b))
	assert.Equal(t, "tiquete_SO-000001.pdf", filename)
	assert.Equal(t, "Paid", gen.last.Status)
	assert.Equal(t, "Cash", gen.last.PaymentMethod)
	require.Len(t, gen.last.Lines, 2)
	assert.Equal(t, "Amoxicilina 500mg", gen.last.Lines[0].DrugName)
	assert.Equal(t, "L1", gen.last.Lines[0].BatchNumber)
	assert.Equal(t, "Ibuprofeno 400mg", gen.last.Lines[1].DrugName)
	assert.True(t, decimal.NewFromInt(50).Equal(gen.last.AmountPaid))
	assert.True(t, gen.last.AmountPaid.Sub(gen.last.TotalAmount).Equal(gen.last.ChangeGiven))
}

func TestDownloadReceipt_SoloPagadaOCompletada(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "L1", 5, 200)
	o := f.start(t)
	f.add(t, o.ID, "drug-a", 1)

	uc := sales.NewReceiptUseCase(f.store.Orders(), f.store.Drugs(), &captureGenerator{})

	_, _, err := uc.DownloadReceipt(context.Background(), o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, _, err = uc.DownloadReceipt(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDownloadReceipt_MedicamentoFueraDelCatalogo(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "L1", 5, 200)
	o := f.start(t)
	f.add(t, o.ID, "drug-a", 1)
	f.pay(t, o.ID, 20)

	// catálogo sin drug-a: el tiquete usa el id del medicamento
	other := memory.New("SO")
	d := entity.Drug{Name: "Loratadina 10mg"}
	d.ID = "drug-z"
	other.AddDrug(d)

	gen := &captureGenerator{}
	uc := sales.NewReceiptUseCase(f.store.Orders(), other.Drugs(), gen)
	_, _, err := uc.DownloadReceipt(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "drug-a", gen.last.Lines[0].DrugName)
}

func TestDownloadReceipt_FalloDelGenerador(t *testing.T) {
	f := newFixture(t)
	f.restock(t, "drug-a", "L1", 5, 200)
	o := f.start(t)
	f.add(t, o.ID, "drug-a", 1)
	f.pay(t, o.ID, 20)

	boom := errors.New("sin fuente")
	uc := sales.NewReceiptUseCase(f.store.Orders(), f.store.Drugs(), &captureGenerator{err: boom})

	_, _, err := uc.DownloadReceipt(context.Background(), o.ID)
	assert.ErrorIs(t, err, boom)
}
