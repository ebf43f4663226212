package sales

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// SalesTxRunner ejecuta una función dentro de una transacción que incluye libros de stock y órdenes.
// Una asignación y la orden que la referencia se guardan juntas o ninguna.
type SalesTxRunner interface {
	RunSales(ctx context.Context, fn func(
		ledgers repository.LedgerRepository,
		orders repository.OrderRepository,
	) error) error
}

// ReceiptGenerator genera el documento del tiquete de venta.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, r Receipt) ([]byte, error)
}
