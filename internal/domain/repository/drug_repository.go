package repository

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// DrugRepository consulta el catálogo de medicamentos.
type DrugRepository interface {
	// Get devuelve domain.NotFoundError si el medicamento no existe en el catálogo.
	Get(ctx context.Context, id string) (*entity.Drug, error)
}
