package repository

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// PackagingRepository consulta el empaque del catálogo y las sobrescrituras por tienda.
type PackagingRepository interface {
	// CatalogPackaging devuelve domain.NotFoundError si el medicamento no existe.
	CatalogPackaging(ctx context.Context, drugID string) (entity.PackagingInfo, error)
	// ShopOverride devuelve nil sin error cuando la tienda no sobrescribe el empaque.
	ShopOverride(ctx context.Context, shopID, drugID string) (*entity.PackagingInfo, error)
}
