package inventory

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/pkg/config"
)

// ReplenishmentUseCase genera la lista de reposición de una tienda.
// Prioriza los medicamentos con mayor déficit bajo su punto de reorden.
type ReplenishmentUseCase struct {
	ledgers repository.LedgerRepository
	drugs   repository.DrugRepository
	factor  float64
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(
	ledgers repository.LedgerRepository,
	drugs repository.DrugRepository,
	cfg config.InventoryConfig,
) *ReplenishmentUseCase {
	factor := cfg.ReplenishmentFactor
	if factor < 1 {
		factor = 1
	}
	return &ReplenishmentUseCase{ledgers: ledgers, drugs: drugs, factor: factor}
}

// GenerateReplenishmentList devuelve los medicamentos con stock bajo (totalStock <= reorderPoint)
// con la cantidad sugerida de pedido y su costo estimado al costo promedio de la tienda.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, shopID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	// 1. Libros de la tienda (instantánea)
	list, err := uc.ledgers.ListByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}

	// 2. Construir los DTOs de los que están en o bajo el punto de reorden
	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(list))
	for _, l := range list {
		if !l.IsLowStock() || !l.IsAvailable {
			continue
		}
		current := l.TotalStock()
		ideal := int(math.Ceil(float64(l.ReorderPoint) * uc.factor))
		suggested := max(ideal-current, 0)

		name := l.DrugID
		drug, err := uc.drugs.Get(ctx, l.DrugID)
		switch {
		case err == nil:
			name = drug.Name
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}

		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			DrugID:             l.DrugID,
			DrugName:           name,
			CurrentStock:       current,
			ReorderPoint:       l.ReorderPoint,
			IdealStock:         ideal,
			SuggestedOrderQty:  suggested,
			UnitCost:           l.Pricing.CostPrice,
			EstimatedOrderCost: decimal.NewFromInt(int64(suggested)).Mul(l.Pricing.CostPrice).Round(2),
			QuarantinedStock:   l.QuarantinedStock(),
		})
	}

	// 3. Ordenar: mayor déficit absoluto, luego mayor cantidad sugerida, luego medicamento
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		defA := a.ReorderPoint - a.CurrentStock
		defB := b.ReorderPoint - b.CurrentStock
		if defA != defB {
			return defA > defB
		}
		if a.SuggestedOrderQty != b.SuggestedOrderQty {
			return a.SuggestedOrderQty > b.SuggestedOrderQty
		}
		return a.DrugID < b.DrugID
	})

	// 4. Asignar prioridad (1 = más urgente)
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}

	return suggestions, nil
}
