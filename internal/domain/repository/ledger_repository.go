package repository

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/inventory"
)

// LedgerRepository define el puerto de persistencia del libro de stock por tienda+medicamento.
// Get y GetForUpdate devuelven domain.NotFoundError si el par no tiene libro.
type LedgerRepository interface {
	Get(ctx context.Context, shopID, drugID string) (*inventory.StockLedger, error)
	// GetForUpdate bloquea el libro hasta el fin de la transacción (SELECT FOR UPDATE) cuando el adaptador lo soporta.
	GetForUpdate(ctx context.Context, shopID, drugID string) (*inventory.StockLedger, error)
	Save(ctx context.Context, ledger *inventory.StockLedger) error
	ListByShop(ctx context.Context, shopID string) ([]*inventory.StockLedger, error)
}
