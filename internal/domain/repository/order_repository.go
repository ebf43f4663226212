package repository

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/sales"
)

// OrderRepository define el puerto de persistencia de órdenes de venta.
type OrderRepository interface {
	Get(ctx context.Context, id string) (*sales.SalesOrder, error)
	Save(ctx context.Context, order *sales.SalesOrder) error
	// NextOrderNumber número monótono por tienda.
	NextOrderNumber(ctx context.Context, shopID string) (string, error)
}
