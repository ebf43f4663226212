package entity

import "github.com/shopspring/decimal"

// Drug medicamento del catálogo. La relación con la categoría es unidireccional (CategoryID);
// los medicamentos de una categoría se obtienen por consulta, no por referencia embebida.
type Drug struct {
	BaseEntity
	Name                 string
	GenericName          string
	CategoryID           string
	Manufacturer         string
	SuggestedPrice       decimal.Decimal
	RequiresPrescription bool
	DefaultPackaging     PackagingInfo
}
