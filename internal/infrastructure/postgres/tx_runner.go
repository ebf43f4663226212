package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/sales"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// Ensure TxRunner implements inventory.TxRunner and sales.SalesTxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)
var _ sales.SalesTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	orderPrefix string
}

// NewTxRunner construye el runner con el pool. orderPrefix se pasa al repositorio de órdenes.
func NewTxRunner(pool *pgxpool.Pool, orderPrefix string) *TxRunner {
	return &TxRunner{pool: pool, orderPrefix: orderPrefix}
}

// Run inicia una transacción, ejecuta fn con el repositorio de libros atado a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ledgers repository.LedgerRepository) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewLedgerRepository(tx))
	})
}

// RunSales inicia una transacción con libros y órdenes (asignación + orden se guardan juntas).
func (r *TxRunner) RunSales(ctx context.Context, fn func(
	ledgers repository.LedgerRepository,
	orders repository.OrderRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewLedgerRepository(tx), NewOrderRepository(tx, r.orderPrefix))
	})
}

func (r *TxRunner) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
