package entity

import "time"

// BaseEntity campos comunes embebidos por valor en cada entidad.
type BaseEntity struct {
	ID          string
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Touch actualiza LastUpdated (y CreatedAt si aún no se fijó).
func (b *BaseEntity) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.LastUpdated = now
}
