package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location ubicación física/lógica de las unidades de un lote.
type Location uint8

const (
	LocationShopFloor Location = iota + 1
	LocationStorage
	LocationReserved
	LocationQuarantined
)

var locations = newEnumTable("location", map[Location]string{
	LocationShopFloor:   "ShopFloor",
	LocationStorage:     "Storage",
	LocationReserved:    "Reserved",
	LocationQuarantined: "Quarantined",
})

func (l Location) String() string                { return locations.name(l) }
func (l Location) Valid() bool                   { return locations.valid(l) }
func (l Location) MarshalText() ([]byte, error)  { return locations.marshal(l) }
func (l *Location) UnmarshalText(b []byte) error { return unmarshalInto(locations, l, b) }

// ParseLocation convierte el nombre serializado en Location.
func ParseLocation(s string) (Location, error) { return locations.parse(s) }

// Sellable indica si las unidades en esta ubicación pueden asignarse a una venta.
func (l Location) Sellable() bool {
	return l == LocationShopFloor || l == LocationStorage
}

// BatchStatus estado de un lote.
type BatchStatus uint8

const (
	BatchActive BatchStatus = iota + 1
	BatchExpired
	BatchRecalled
	BatchDepleted
)

var batchStatuses = newEnumTable("batch_status", map[BatchStatus]string{
	BatchActive:   "Active",
	BatchExpired:  "Expired",
	BatchRecalled: "Recalled",
	BatchDepleted: "Depleted",
})

func (s BatchStatus) String() string                { return batchStatuses.name(s) }
func (s BatchStatus) Valid() bool                   { return batchStatuses.valid(s) }
func (s BatchStatus) MarshalText() ([]byte, error)  { return batchStatuses.marshal(s) }
func (s *BatchStatus) UnmarshalText(b []byte) error { return unmarshalInto(batchStatuses, s, b) }

// ParseBatchStatus convierte el nombre serializado en BatchStatus.
func ParseBatchStatus(s string) (BatchStatus, error) { return batchStatuses.parse(s) }

// BatchRecord un lote recibido de un medicamento en una tienda.
// QuantityOnHand son las unidades libres en Location; ReservedQuantity y QuarantinedQuantity
// son contadores paralelos del mismo lote (la asignación parcial no divide el registro).
type BatchRecord struct {
	BatchNumber         string
	SupplierID          string
	QuantityOnHand      int
	ReservedQuantity    int
	QuarantinedQuantity int
	ReceivedDate        time.Time
	ExpiryDate          time.Time
	PurchasePrice       decimal.Decimal
	SellingPrice        decimal.Decimal
	Location            Location
	StorageLocation     string // texto libre (estante, nevera...)
	Status              BatchStatus
}

// Units total de unidades que aún existen en el lote (cualquier contador).
func (b *BatchRecord) Units() int {
	return b.QuantityOnHand + b.ReservedQuantity + b.QuarantinedQuantity
}

// IsExpired true si la fecha de vencimiento ya pasó, sin importar Status.
func (b *BatchRecord) IsExpired(now time.Time) bool {
	return b.ExpiryDate.Before(now)
}

// Eligible indica si el lote puede aportar unidades a una asignación.
func (b *BatchRecord) Eligible(now time.Time) bool {
	return b.Status == BatchActive && b.Location.Sellable() && !b.IsExpired(now) && b.QuantityOnHand > 0
}

// DaysUntilExpiry días hasta el vencimiento (negativo si ya venció).
func (b *BatchRecord) DaysUntilExpiry(now time.Time) int {
	return int(b.ExpiryDate.Sub(now).Hours() / 24)
}

// SyncStatus aplica Depleted cuando no quedan unidades y reactiva un lote agotado que recibe stock.
// Recalled no se pierde aunque el lote quede en cero.
func (b *BatchRecord) SyncStatus() {
	switch {
	case b.Status == BatchRecalled:
	case b.Units() == 0:
		b.Status = BatchDepleted
	case b.Status == BatchDepleted:
		b.Status = BatchActive
	}
}
