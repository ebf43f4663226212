package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var (
	_ repository.DrugRepository      = (*DrugRepo)(nil)
	_ repository.PackagingRepository = (*PackagingRepo)(nil)
)

// DrugRepo catálogo de medicamentos (tabla drugs).
type DrugRepo struct {
	q Querier
}

// NewDrugRepository construye el adaptador.
func NewDrugRepository(q Querier) *DrugRepo {
	return &DrugRepo{q: q}
}

// Get obtiene un medicamento por ID.
func (r *DrugRepo) Get(ctx context.Context, id string) (*entity.Drug, error) {
	query := `
		SELECT id, name, generic_name, category_id, manufacturer, suggested_price, requires_prescription,
		       packaging_unit, units_per_package, packages_per_box, packaging_description, created_at, updated_at
		FROM drugs WHERE id = $1`
	var (
		d        entity.Drug
		category *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.GenericName, &category, &d.Manufacturer, &d.SuggestedPrice, &d.RequiresPrescription,
		&d.DefaultPackaging.Unit, &d.DefaultPackaging.UnitsPerPackage, &d.DefaultPackaging.PackagesPerBox,
		&d.DefaultPackaging.Description, &d.CreatedAt, &d.LastUpdated,
	)
	if err != nil {
		if errNoRows(err) {
			return nil, domain.NotFound("medicamento", id)
		}
		return nil, fmt.Errorf("get drug: %w", err)
	}
	d.CategoryID = deref(category)
	return &d, nil
}

// UpsertDrug inserta o actualiza un medicamento del catálogo.
func (r *DrugRepo) UpsertDrug(ctx context.Context, d entity.Drug) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO drugs (id, name, generic_name, category_id, manufacturer, suggested_price, requires_prescription,
		       packaging_unit, units_per_package, packages_per_box, packaging_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, generic_name = EXCLUDED.generic_name, category_id = EXCLUDED.category_id,
			manufacturer = EXCLUDED.manufacturer, suggested_price = EXCLUDED.suggested_price,
			requires_prescription = EXCLUDED.requires_prescription, packaging_unit = EXCLUDED.packaging_unit,
			units_per_package = EXCLUDED.units_per_package, packages_per_box = EXCLUDED.packages_per_box,
			packaging_description = EXCLUDED.packaging_description, updated_at = EXCLUDED.updated_at`,
		d.ID, d.Name, d.GenericName, nullIfEmpty(d.CategoryID), d.Manufacturer, d.SuggestedPrice, d.RequiresPrescription,
		d.DefaultPackaging.Unit, d.DefaultPackaging.UnitsPerPackage, d.DefaultPackaging.PackagesPerBox,
		d.DefaultPackaging.Description, d.CreatedAt, d.LastUpdated,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: empaque inválido para %s", domain.ErrInvalidInput, d.ID)
		}
		return fmt.Errorf("upsert drug %s: %w", d.ID, err)
	}
	return nil
}

// PackagingRepo empaque del catálogo y sobrescrituras por tienda (shop_drug_packaging).
type PackagingRepo struct {
	q Querier
}

// NewPackagingRepository construye el adaptador.
func NewPackagingRepository(q Querier) *PackagingRepo {
	return &PackagingRepo{q: q}
}

// CatalogPackaging empaque por defecto del medicamento.
func (r *PackagingRepo) CatalogPackaging(ctx context.Context, drugID string) (entity.PackagingInfo, error) {
	var p entity.PackagingInfo
	err := r.q.QueryRow(ctx, `
		SELECT packaging_unit, units_per_package, packages_per_box, packaging_description
		FROM drugs WHERE id = $1`, drugID).Scan(&p.Unit, &p.UnitsPerPackage, &p.PackagesPerBox, &p.Description)
	if err != nil {
		if errNoRows(err) {
			return entity.PackagingInfo{}, domain.NotFound("medicamento", drugID)
		}
		return entity.PackagingInfo{}, fmt.Errorf("catalog packaging: %w", err)
	}
	return p, nil
}

// ShopOverride empaque propio de la tienda; nil si no existe.
func (r *PackagingRepo) ShopOverride(ctx context.Context, shopID, drugID string) (*entity.PackagingInfo, error) {
	var p entity.PackagingInfo
	err := r.q.QueryRow(ctx, `
		SELECT unit, units_per_package, packages_per_box, description
		FROM shop_drug_packaging WHERE shop_id = $1 AND drug_id = $2`, shopID, drugID).
		Scan(&p.Unit, &p.UnitsPerPackage, &p.PackagesPerBox, &p.Description)
	if err != nil {
		if errNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("shop packaging override: %w", err)
	}
	return &p, nil
}
