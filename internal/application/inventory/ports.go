package inventory

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando el repositorio de libros atado a esa tx.
// El llamador ya tiene los candados de los libros que toca (coordination.Coordinator).
type TxRunner interface {
	Run(ctx context.Context, fn func(ledgers repository.LedgerRepository) error) error
}
