package packaging

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// EffectivePackagingResolver resuelve el empaque con el que una tienda vende un medicamento:
// la sobrescritura de la tienda si existe, si no el empaque por defecto del catálogo.
type EffectivePackagingResolver struct {
	repo repository.PackagingRepository
}

// NewEffectivePackagingResolver construye el resolver.
func NewEffectivePackagingResolver(repo repository.PackagingRepository) *EffectivePackagingResolver {
	return &EffectivePackagingResolver{repo: repo}
}

// Resolve falla con NotFound solo si el medicamento no existe en el catálogo.
func (r *EffectivePackagingResolver) Resolve(ctx context.Context, shopID, drugID string) (entity.PackagingInfo, error) {
	info, _, err := r.resolve(ctx, shopID, drugID)
	return info, err
}

// Effective igual que Resolve, indicando si el empaque viene de la tienda.
func (r *EffectivePackagingResolver) Effective(ctx context.Context, shopID, drugID string) (*dto.PackagingResponse, error) {
	info, overridden, err := r.resolve(ctx, shopID, drugID)
	if err != nil {
		return nil, err
	}
	return &dto.PackagingResponse{
		ShopID:          shopID,
		DrugID:          drugID,
		Unit:            info.Unit,
		UnitsPerPackage: info.UnitsPerPackage,
		PackagesPerBox:  info.PackagesPerBox,
		Description:     info.Description,
		Overridden:      overridden,
	}, nil
}

func (r *EffectivePackagingResolver) resolve(ctx context.Context, shopID, drugID string) (entity.PackagingInfo, bool, error) {
	// El catálogo se consulta siempre: una sobrescritura huérfana no hace existir al medicamento.
	def, err := r.repo.CatalogPackaging(ctx, drugID)
	if err != nil {
		return entity.PackagingInfo{}, false, err
	}
	override, err := r.repo.ShopOverride(ctx, shopID, drugID)
	if err != nil {
		return entity.PackagingInfo{}, false, err
	}
	if override != nil {
		return *override, true, nil
	}
	return def, false, nil
}
