package inventory

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/jhoicas/Farmacia-api/internal/application/coordination"
	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/pkg/config"
	"github.com/jhoicas/Farmacia-api/pkg/logger"
)

// StockUseCase operaciones de stock por tienda+medicamento: recepción, cuarentena, retiro, consultas.
// Cada escritura toma el candado exclusivo del libro y luego abre la transacción (GetForUpdate + Save).
type StockUseCase struct {
	coord    *coordination.Coordinator
	txRunner TxRunner
	ledgers  repository.LedgerRepository
	drugs    repository.DrugRepository
	cfg      config.InventoryConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(
	coord *coordination.Coordinator,
	txRunner TxRunner,
	ledgers repository.LedgerRepository,
	drugs repository.DrugRepository,
	cfg config.InventoryConfig,
	log *logger.Logger,
) *StockUseCase {
	return &StockUseCase{
		coord:    coord,
		txRunner: txRunner,
		ledgers:  ledgers,
		drugs:    drugs,
		cfg:      cfg,
		log:      log.Component("stock"),
		now:      time.Now,
	}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *StockUseCase) WithClock(now func() time.Time) *StockUseCase {
	uc.now = now
	return uc
}

// Restock recibe un lote. El primer lote de un medicamento en la tienda crea el libro
// con el punto de reorden por defecto de la configuración.
func (uc *StockUseCase) Restock(ctx context.Context, shopID string, in dto.RestockRequest) (*dto.StockLevelResponse, error) {
	if shopID == "" {
		return nil, domain.Invalid("shop_id", "obligatorio")
	}
	if _, err := uc.drugs.Get(ctx, in.DrugID); err != nil {
		return nil, err
	}
	batch, err := toBatchRecord(in)
	if err != nil {
		return nil, err
	}
	var out *inventory.StockLedger
	err = uc.write(ctx, shopID, in.DrugID, true, func(now time.Time, l *inventory.StockLedger) error {
		if err := l.Restock(batch, now); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("shop_id", shopID).Str("drug_id", in.DrugID).Str("batch", batch.BatchNumber).
		Int("quantity", batch.QuantityOnHand).Int("total_stock", out.TotalStock()).Msg("lote recibido")
	return toStockLevel(out, uc.now()), nil
}

// Configure aplica punto de reorden, disponibilidad y precios propios de la tienda.
func (uc *StockUseCase) Configure(ctx context.Context, shopID, drugID string, in dto.ConfigureStockRequest) (*dto.StockLevelResponse, error) {
	if _, err := uc.drugs.Get(ctx, drugID); err != nil {
		return nil, err
	}
	pricing := entity.ShopPricing{
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		Currency:     in.Currency,
		TaxRate:      in.TaxRate,
	}
	var out *inventory.StockLedger
	err := uc.write(ctx, shopID, drugID, true, func(now time.Time, l *inventory.StockLedger) error {
		available := l.IsAvailable
		if in.IsAvailable != nil {
			available = *in.IsAvailable
		}
		if err := l.Configure(in.ReorderPoint, available, pricing, now); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toStockLevel(out, uc.now()), nil
}

// Quarantine aísla unidades libres de un lote.
func (uc *StockUseCase) Quarantine(ctx context.Context, shopID, drugID string, in dto.BatchQuantityRequest) (*dto.StockLevelResponse, error) {
	return uc.apply(ctx, shopID, drugID, func(now time.Time, l *inventory.StockLedger) error {
		return l.Quarantine(in.BatchNumber, in.Quantity, now)
	})
}

// Unquarantine devuelve unidades de cuarentena a la ubicación del lote.
func (uc *StockUseCase) Unquarantine(ctx context.Context, shopID, drugID string, in dto.BatchQuantityRequest) (*dto.StockLevelResponse, error) {
	return uc.apply(ctx, shopID, drugID, func(now time.Time, l *inventory.StockLedger) error {
		return l.Unquarantine(in.BatchNumber, in.Quantity, now)
	})
}

// Recall retira un lote del mercado. Devuelve las unidades libres que pasaron a cuarentena.
func (uc *StockUseCase) Recall(ctx context.Context, shopID, drugID, batchNumber string) (int, error) {
	moved := 0
	err := uc.write(ctx, shopID, drugID, false, func(now time.Time, l *inventory.StockLedger) error {
		n, err := l.Recall(batchNumber, now)
		moved = n
		return err
	})
	if err != nil {
		return 0, err
	}
	uc.log.Warn().Str("shop_id", shopID).Str("drug_id", drugID).Str("batch", batchNumber).
		Int("quarantined", moved).Msg("lote retirado")
	return moved, nil
}

// ReconcileExpired marca como vencidos los lotes activos ya vencidos de todos los libros de la tienda.
func (uc *StockUseCase) ReconcileExpired(ctx context.Context, shopID string) (int, error) {
	list, err := uc.ledgers.ListByShop(ctx, shopID)
	if err != nil {
		return 0, err
	}
	refs := make([]coordination.LedgerRef, 0, len(list))
	for _, l := range list {
		refs = append(refs, coordination.LedgerRef{ShopID: l.ShopID, DrugID: l.DrugID})
	}
	changed := 0
	err = uc.coord.WithLedgers(ctx, refs, func(ctx context.Context) error {
		now := uc.now()
		return uc.txRunner.Run(ctx, func(ledgers repository.LedgerRepository) error {
			for _, ref := range coordination.SortLedgerRefs(refs) {
				l, err := ledgers.GetForUpdate(ctx, ref.ShopID, ref.DrugID)
				if err != nil {
					return err
				}
				n, err := l.ReconcileExpired(now)
				if err != nil {
					return uc.internal(err)
				}
				if n == 0 {
					continue
				}
				if err := ledgers.Save(ctx, l); err != nil {
					return err
				}
				changed += n
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		uc.log.Info().Str("shop_id", shopID).Int("batches", changed).Msg("lotes vencidos conciliados")
	}
	return changed, nil
}

// Snapshot estado actual del libro.
func (uc *StockUseCase) Snapshot(ctx context.Context, shopID, drugID string) (*dto.StockLevelResponse, error) {
	var out *dto.StockLevelResponse
	err := uc.read(ctx, shopID, drugID, func(l *inventory.StockLedger) {
		out = toStockLevel(l, uc.now())
	})
	return out, err
}

// IsLowStock true si totalStock <= reorderPoint.
func (uc *StockUseCase) IsLowStock(ctx context.Context, shopID, drugID string) (bool, error) {
	low := false
	err := uc.read(ctx, shopID, drugID, func(l *inventory.StockLedger) {
		low = l.IsLowStock()
	})
	return low, err
}

// ExpiringBatches lotes del libro que vencen dentro de withinDays días, por vencimiento ascendente.
// withinDays <= 0 usa la ventana de la configuración.
func (uc *StockUseCase) ExpiringBatches(ctx context.Context, shopID, drugID string, withinDays int) ([]dto.BatchResponse, error) {
	days := uc.window(withinDays)
	var out []dto.BatchResponse
	err := uc.read(ctx, shopID, drugID, func(l *inventory.StockLedger) {
		now := uc.now()
		out = []dto.BatchResponse{}
		for b := range l.ExpiringBatches(days, now) {
			out = append(out, toBatchResponse(b, now))
		}
	})
	return out, err
}

// ExpiringInShop lotes próximos a vencer de todos los medicamentos de la tienda.
func (uc *StockUseCase) ExpiringInShop(ctx context.Context, shopID string, withinDays int) ([]dto.ExpiringBatchResponse, error) {
	days := uc.window(withinDays)
	list, err := uc.ledgers.ListByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	out := []dto.ExpiringBatchResponse{}
	for _, l := range list {
		for b := range l.ExpiringBatches(days, now) {
			out = append(out, dto.ExpiringBatchResponse{DrugID: l.DrugID, BatchResponse: toBatchResponse(b, now)})
		}
	}
	slices.SortStableFunc(out, func(a, b dto.ExpiringBatchResponse) int {
		return a.ExpiryDate.Compare(b.ExpiryDate)
	})
	return out, nil
}

func (uc *StockUseCase) window(withinDays int) int {
	if withinDays <= 0 {
		return uc.cfg.ExpiryWarningDays
	}
	return withinDays
}

func (uc *StockUseCase) apply(ctx context.Context, shopID, drugID string, fn func(now time.Time, l *inventory.StockLedger) error) (*dto.StockLevelResponse, error) {
	var out *inventory.StockLedger
	err := uc.write(ctx, shopID, drugID, false, func(now time.Time, l *inventory.StockLedger) error {
		if err := fn(now, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toStockLevel(out, uc.now()), nil
}

// write bloquea el libro, lo carga con GetForUpdate, aplica fn y lo guarda en la misma transacción.
// Con create, un libro inexistente se crea vacío.
func (uc *StockUseCase) write(ctx context.Context, shopID, drugID string, create bool, fn func(now time.Time, l *inventory.StockLedger) error) error {
	ref := coordination.LedgerRef{ShopID: shopID, DrugID: drugID}
	return uc.coord.WithLedger(ctx, ref, func(ctx context.Context) error {
		now := uc.now()
		return uc.txRunner.Run(ctx, func(ledgers repository.LedgerRepository) error {
			l, err := ledgers.GetForUpdate(ctx, shopID, drugID)
			if create && errors.Is(err, domain.ErrNotFound) {
				l, err = inventory.NewStockLedger(shopID, drugID, uc.cfg.DefaultReorderPoint), nil
			}
			if err != nil {
				return err
			}
			if err := fn(now, l); err != nil {
				return uc.internal(err)
			}
			return ledgers.Save(ctx, l)
		})
	})
}

func (uc *StockUseCase) read(ctx context.Context, shopID, drugID string, fn func(l *inventory.StockLedger)) error {
	ref := coordination.LedgerRef{ShopID: shopID, DrugID: drugID}
	return uc.coord.ReadLedger(ctx, ref, func(ctx context.Context) error {
		l, err := uc.ledgers.Get(ctx, shopID, drugID)
		if err != nil {
			return err
		}
		fn(l)
		return nil
	})
}

// internal registra las violaciones de invariantes; los demás errores pasan intactos.
func (uc *StockUseCase) internal(err error) error {
	if errors.Is(err, domain.ErrInternal) {
		uc.log.Error().Err(err).Msg("invariante del libro de stock violado")
	}
	return err
}

func toBatchRecord(in dto.RestockRequest) (entity.BatchRecord, error) {
	loc := entity.LocationShopFloor
	if in.Location != "" {
		parsed, err := entity.ParseLocation(in.Location)
		if err != nil {
			return entity.BatchRecord{}, err
		}
		loc = parsed
	}
	b := entity.BatchRecord{
		BatchNumber:     in.BatchNumber,
		SupplierID:      in.SupplierID,
		QuantityOnHand:  in.Quantity,
		ExpiryDate:      in.ExpiryDate,
		PurchasePrice:   in.PurchasePrice,
		SellingPrice:    in.SellingPrice,
		Location:        loc,
		StorageLocation: in.StorageLocation,
	}
	if in.ReceivedDate != nil {
		b.ReceivedDate = *in.ReceivedDate
	}
	return b, nil
}

func toBatchResponse(b entity.BatchRecord, now time.Time) dto.BatchResponse {
	return dto.BatchResponse{
		BatchNumber:         b.BatchNumber,
		SupplierID:          b.SupplierID,
		QuantityOnHand:      b.QuantityOnHand,
		ReservedQuantity:    b.ReservedQuantity,
		QuarantinedQuantity: b.QuarantinedQuantity,
		ReceivedDate:        b.ReceivedDate,
		ExpiryDate:          b.ExpiryDate,
		DaysUntilExpiry:     b.DaysUntilExpiry(now),
		PurchasePrice:       b.PurchasePrice,
		SellingPrice:        b.SellingPrice,
		Location:            b.Location.String(),
		StorageLocation:     b.StorageLocation,
		Status:              b.Status.String(),
	}
}

func toStockLevel(l *inventory.StockLedger, now time.Time) *dto.StockLevelResponse {
	batches := make([]dto.BatchResponse, 0, len(l.Batches))
	for _, b := range l.Batches {
		batches = append(batches, toBatchResponse(b, now))
	}
	return &dto.StockLevelResponse{
		ShopID:           l.ShopID,
		DrugID:           l.DrugID,
		TotalStock:       l.TotalStock(),
		ShopFloorStock:   l.ShopFloorStock(),
		StorageStock:     l.StorageStock(),
		ReservedStock:    l.ReservedStock(),
		QuarantinedStock: l.QuarantinedStock(),
		AvailableStock:   l.AvailableStock(now),
		ReorderPoint:     l.ReorderPoint,
		IsLowStock:       l.IsLowStock(),
		IsAvailable:      l.IsAvailable,
		LastRestockDate:  l.LastRestockDate,
		CostPrice:        l.Pricing.CostPrice,
		SellingPrice:     l.Pricing.SellingPrice,
		Currency:         l.Pricing.Currency,
		TaxRate:          l.Pricing.TaxRate,
		Batches:          batches,
	}
}
