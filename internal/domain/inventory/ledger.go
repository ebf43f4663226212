package inventory

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// StockLedger agrega todos los lotes y contadores de ubicación de un par (tienda, medicamento).
// No es seguro para uso concurrente: el llamador serializa las escrituras por clave
// (ver coordination.Coordinator). Cada mutación trabaja sobre una copia y solo la
// aplica si termina sin error, así un fallo nunca deja cantidades a medias.
type StockLedger struct {
	ShopID          string
	DrugID          string
	ReorderPoint    int
	IsAvailable     bool
	LastRestockDate *time.Time
	Pricing         entity.ShopPricing
	Batches         []entity.BatchRecord
	Plans           map[string]*AllocationPlan
	UpdatedAt       time.Time
}

// NewStockLedger crea un libro vacío disponible para la venta.
func NewStockLedger(shopID, drugID string, reorderPoint int) *StockLedger {
	return &StockLedger{
		ShopID:       shopID,
		DrugID:       drugID,
		ReorderPoint: reorderPoint,
		IsAvailable:  true,
		Plans:        make(map[string]*AllocationPlan),
	}
}

// Key identificador compuesto tienda+medicamento.
func (l *StockLedger) Key() string { return LedgerKey(l.ShopID, l.DrugID) }

// LedgerKey clave de exclusión mutua de un libro.
func LedgerKey(shopID, drugID string) string { return shopID + "/" + drugID }

// ──────────────────────────────────────────────────────────────────────────────
// Cantidades derivadas
// ──────────────────────────────────────────────────────────────────────────────

func (l *StockLedger) sumOnHand(loc entity.Location) int {
	n := 0
	for i := range l.Batches {
		if l.Batches[i].Location == loc {
			n += l.Batches[i].QuantityOnHand
		}
	}
	return n
}

// ShopFloorStock unidades libres en piso de venta.
func (l *StockLedger) ShopFloorStock() int { return l.sumOnHand(entity.LocationShopFloor) }

// StorageStock unidades libres en bodega.
func (l *StockLedger) StorageStock() int { return l.sumOnHand(entity.LocationStorage) }

// ReservedStock unidades reservadas por planes pendientes.
func (l *StockLedger) ReservedStock() int {
	n := 0
	for i := range l.Batches {
		n += l.Batches[i].ReservedQuantity
	}
	return n
}

// QuarantinedStock unidades en cuarentena (fuera del total vendible, dentro del total de auditoría).
func (l *StockLedger) QuarantinedStock() int {
	n := 0
	for i := range l.Batches {
		n += l.Batches[i].QuarantinedQuantity
	}
	return n
}

// TotalStock = piso + bodega + reservado. La cuarentena queda excluida.
func (l *StockLedger) TotalStock() int {
	return l.ShopFloorStock() + l.StorageStock() + l.ReservedStock()
}

// AuditStock total físico incluyendo cuarentena.
func (l *StockLedger) AuditStock() int {
	return l.TotalStock() + l.QuarantinedStock()
}

// AvailableStock unidades que una asignación podría tomar ahora mismo.
func (l *StockLedger) AvailableStock(now time.Time) int {
	n := 0
	for i := range l.Batches {
		if l.Batches[i].Eligible(now) {
			n += l.Batches[i].QuantityOnHand
		}
	}
	return n
}

// IsLowStock true si totalStock <= reorderPoint.
func (l *StockLedger) IsLowStock() bool {
	return l.TotalStock() <= l.ReorderPoint
}

// Batch devuelve una copia del lote con ese número.
func (l *StockLedger) Batch(batchNumber string) (entity.BatchRecord, bool) {
	if i := l.batchIndex(batchNumber); i >= 0 {
		return l.Batches[i], true
	}
	return entity.BatchRecord{}, false
}

// Plan devuelve una copia del plan registrado en el libro.
func (l *StockLedger) Plan(planID string) (AllocationPlan, bool) {
	p, ok := l.Plans[planID]
	if !ok {
		return AllocationPlan{}, false
	}
	return p.Clone(), true
}

// ExpiringBatches lotes con unidades cuyo vencimiento cae en [now, now+withinDays], por vencimiento ascendente.
// Trabaja sobre una instantánea tomada al llamar: se puede recorrer varias veces y no observa escrituras posteriores.
func (l *StockLedger) ExpiringBatches(withinDays int, now time.Time) iter.Seq[entity.BatchRecord] {
	snapshot := slices.Clone(l.Batches)
	limit := now.AddDate(0, 0, withinDays)
	return func(yield func(entity.BatchRecord) bool) {
		idx := make([]int, 0, len(snapshot))
		for i := range snapshot {
			b := &snapshot[i]
			if b.Units() == 0 || b.ExpiryDate.Before(now) || b.ExpiryDate.After(limit) {
				continue
			}
			idx = append(idx, i)
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			return compareFEFO(&snapshot[a], &snapshot[b])
		})
		for _, i := range idx {
			if !yield(snapshot[i]) {
				return
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Operaciones
// ──────────────────────────────────────────────────────────────────────────────

// Allocate reserva quantity unidades tomando de piso/bodega (nunca cuarentena) según strategy.
// Falla sin mutar nada si lo disponible no alcanza.
func (l *StockLedger) Allocate(drugID string, quantity int, strategy Strategy, now time.Time) (AllocationPlan, error) {
	if drugID != l.DrugID {
		return AllocationPlan{}, domain.Invalid("drug_id", fmt.Sprintf("el libro es del medicamento %s, no de %s", l.DrugID, drugID))
	}
	if quantity <= 0 {
		return AllocationPlan{}, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	if !l.IsAvailable {
		return AllocationPlan{}, domain.Invalid("is_available", fmt.Sprintf("medicamento %s no disponible para venta en tienda %s", l.DrugID, l.ShopID))
	}
	if _, ok := strategyNames[strategy]; !ok {
		return AllocationPlan{}, domain.Invalid("strategy", strategy.String())
	}

	available := l.AvailableStock(now)
	if available < quantity {
		return AllocationPlan{}, &domain.InsufficientStockError{
			ShopID: l.ShopID, DrugID: l.DrugID, Requested: quantity, Available: available,
		}
	}

	plan := AllocationPlan{
		ID:        uuid.New().String(),
		ShopID:    l.ShopID,
		DrugID:    l.DrugID,
		Strategy:  strategy,
		Status:    PlanPending,
		CreatedAt: now,
	}
	err := l.mutate("Allocate", now, func(n *StockLedger) error {
		remaining := quantity
		for _, i := range n.eligibleOrder(strategy, now) {
			if remaining == 0 {
				break
			}
			b := &n.Batches[i]
			take := min(remaining, b.QuantityOnHand)
			b.QuantityOnHand -= take
			b.ReservedQuantity += take
			remaining -= take
			plan.Lines = append(plan.Lines, PlanLine{BatchNumber: b.BatchNumber, Quantity: take, UnitCost: b.PurchasePrice})
		}
		if remaining != 0 {
			return &domain.InternalError{Op: "Allocate", Detail: fmt.Sprintf("quedaron %d unidades sin asignar", remaining)}
		}
		stored := plan.Clone()
		n.Plans[plan.ID] = &stored
		return nil
	})
	if err != nil {
		return AllocationPlan{}, err
	}
	return plan.Clone(), nil
}

// Commit consume definitivamente lo reservado por el plan.
// Un plan con unidades de un lote retirado no se confirma; queda pendiente hasta que se libere.
func (l *StockLedger) Commit(plan AllocationPlan, now time.Time) error {
	if _, err := l.pendingPlan(plan.ID, true); err != nil {
		return err
	}
	return l.mutate("Commit", now, func(n *StockLedger) error {
		rec := n.Plans[plan.ID]
		for _, line := range rec.Lines {
			i := n.batchIndex(line.BatchNumber)
			if i < 0 {
				return &domain.InternalError{Op: "Commit", Detail: fmt.Sprintf("lote %s del plan %s no existe", line.BatchNumber, plan.ID)}
			}
			b := &n.Batches[i]
			if b.Status == entity.BatchRecalled {
				return &domain.PlanConflictError{PlanID: plan.ID, DrugID: n.DrugID, Err: domain.ErrBatchRecalled}
			}
			b.ReservedQuantity -= line.Quantity
			b.SyncStatus()
		}
		settle(rec, PlanCommitted, now)
		return nil
	})
}

// Release revierte una asignación no confirmada devolviendo cada cantidad a su ubicación original.
// Las unidades de un lote retirado durante la reserva vuelven a cuarentena.
func (l *StockLedger) Release(plan AllocationPlan, now time.Time) error {
	if _, err := l.pendingPlan(plan.ID, false); err != nil {
		return err
	}
	return l.mutate("Release", now, func(n *StockLedger) error {
		rec := n.Plans[plan.ID]
		for _, line := range rec.Lines {
			i := n.batchIndex(line.BatchNumber)
			if i < 0 {
				return &domain.InternalError{Op: "Release", Detail: fmt.Sprintf("lote %s del plan %s no existe", line.BatchNumber, plan.ID)}
			}
			b := &n.Batches[i]
			b.ReservedQuantity -= line.Quantity
			if b.Status == entity.BatchRecalled {
				b.QuarantinedQuantity += line.Quantity
			} else {
				b.QuantityOnHand += line.Quantity
			}
		}
		settle(rec, PlanReleased, now)
		return nil
	})
}

// Restock agrega un lote nuevo o incrementa el existente con el mismo número.
// Incrementar exige la misma ubicación, vencimiento y precio de compra; un lote retirado no admite stock.
// Actualiza el costo promedio de la tienda y lastRestockDate.
func (l *StockLedger) Restock(batch entity.BatchRecord, now time.Time) error {
	if err := validateIncoming(&batch, now); err != nil {
		return err
	}
	return l.mutate("Restock", now, func(n *StockLedger) error {
		if i := n.batchIndex(batch.BatchNumber); i >= 0 {
			b := &n.Batches[i]
			switch {
			case b.Status == entity.BatchRecalled:
				return domain.Invalid("batch_number", fmt.Sprintf("el lote %s fue retirado del mercado", b.BatchNumber))
			case b.Location != batch.Location:
				return domain.Invalid("location", fmt.Sprintf("el lote %s está en %s, no en %s", b.BatchNumber, b.Location, batch.Location))
			case !b.ExpiryDate.Equal(batch.ExpiryDate):
				return domain.Invalid("expiry_date", fmt.Sprintf("el lote %s vence el %s", b.BatchNumber, b.ExpiryDate.Format(time.DateOnly)))
			case !b.PurchasePrice.Equal(batch.PurchasePrice):
				return domain.Invalid("purchase_price", fmt.Sprintf("el lote %s se compró a %s", b.BatchNumber, b.PurchasePrice))
			}
		}
		n.Pricing.CostPrice = WeightedAverageCost(n.AuditStock(), n.Pricing.CostPrice, batch.QuantityOnHand, batch.PurchasePrice)
		if n.Pricing.SellingPrice.IsZero() {
			n.Pricing.SellingPrice = batch.SellingPrice
		}
		if i := n.batchIndex(batch.BatchNumber); i >= 0 {
			b := &n.Batches[i]
			b.QuantityOnHand += batch.QuantityOnHand
			b.SyncStatus()
		} else {
			n.Batches = append(n.Batches, batch)
		}
		t := now
		n.LastRestockDate = &t
		return nil
	})
}

// Quarantine mueve quantity unidades libres del lote a cuarentena.
func (l *StockLedger) Quarantine(batchNumber string, quantity int, now time.Time) error {
	if quantity <= 0 {
		return domain.Invalid("quantity", "debe ser mayor que cero")
	}
	return l.mutate("Quarantine", now, func(n *StockLedger) error {
		b, err := n.mustBatch(batchNumber)
		if err != nil {
			return err
		}
		if b.QuantityOnHand < quantity {
			return &domain.InsufficientStockError{ShopID: n.ShopID, DrugID: n.DrugID, Requested: quantity, Available: b.QuantityOnHand}
		}
		b.QuantityOnHand -= quantity
		b.QuarantinedQuantity += quantity
		return nil
	})
}

// Unquarantine devuelve unidades de cuarentena a la ubicación del lote. Un lote retirado no sale de cuarentena.
func (l *StockLedger) Unquarantine(batchNumber string, quantity int, now time.Time) error {
	if quantity <= 0 {
		return domain.Invalid("quantity", "debe ser mayor que cero")
	}
	return l.mutate("Unquarantine", now, func(n *StockLedger) error {
		b, err := n.mustBatch(batchNumber)
		if err != nil {
			return err
		}
		if b.Status == entity.BatchRecalled {
			return domain.Invalid("status", fmt.Sprintf("el lote %s fue retirado del mercado", batchNumber))
		}
		if b.QuarantinedQuantity < quantity {
			return &domain.InsufficientStockError{ShopID: n.ShopID, DrugID: n.DrugID, Requested: quantity, Available: b.QuarantinedQuantity}
		}
		b.QuarantinedQuantity -= quantity
		b.QuantityOnHand += quantity
		return nil
	})
}

// Recall marca el lote como retirado y pasa sus unidades libres a cuarentena. Devuelve cuántas movió.
// Vale también para un lote agotado. Lo ya reservado sigue en su plan, que no se puede confirmar;
// al liberarlo vuelve a cuarentena.
func (l *StockLedger) Recall(batchNumber string, now time.Time) (int, error) {
	moved := 0
	err := l.mutate("Recall", now, func(n *StockLedger) error {
		b, err := n.mustBatch(batchNumber)
		if err != nil {
			return err
		}
		moved = b.QuantityOnHand
		b.QuarantinedQuantity += b.QuantityOnHand
		b.QuantityOnHand = 0
		b.Status = entity.BatchRecalled
		return nil
	})
	return moved, err
}

// ReconcileExpired pasa a Expired los lotes activos ya vencidos. Devuelve cuántos cambió.
func (l *StockLedger) ReconcileExpired(now time.Time) (int, error) {
	changed := 0
	err := l.mutate("ReconcileExpired", now, func(n *StockLedger) error {
		for i := range n.Batches {
			b := &n.Batches[i]
			if b.Status == entity.BatchActive && b.IsExpired(now) {
				b.Status = entity.BatchExpired
				changed++
			}
		}
		return nil
	})
	return changed, err
}

// Configure aplica la configuración propia de la tienda (punto de reorden, disponibilidad, precios).
func (l *StockLedger) Configure(reorderPoint int, isAvailable bool, pricing entity.ShopPricing, now time.Time) error {
	if reorderPoint < 0 {
		return domain.Invalid("reorder_point", "no puede ser negativo")
	}
	if pricing.CostPrice.IsNegative() || pricing.SellingPrice.IsNegative() {
		return domain.Invalid("pricing", "los precios no pueden ser negativos")
	}
	if pricing.TaxRate.IsNegative() || pricing.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return domain.Invalid("tax_rate", "debe estar entre 0 y 1")
	}
	return l.mutate("Configure", now, func(n *StockLedger) error {
		n.ReorderPoint = reorderPoint
		n.IsAvailable = isAvailable
		n.Pricing = pricing
		return nil
	})
}

// CheckInvariants verifica los invariantes del libro. Un fallo es un error de programación.
func (l *StockLedger) CheckInvariants() error {
	var problems []string
	reservedByBatch := make(map[string]int)
	for _, p := range l.Plans {
		if p.Status != PlanPending {
			continue
		}
		for _, line := range p.Lines {
			reservedByBatch[line.BatchNumber] += line.Quantity
		}
	}
	seen := make(map[string]bool, len(l.Batches))
	for i := range l.Batches {
		b := &l.Batches[i]
		if seen[b.BatchNumber] {
			problems = append(problems, fmt.Sprintf("lote %s duplicado", b.BatchNumber))
		}
		seen[b.BatchNumber] = true
		if b.QuantityOnHand < 0 || b.ReservedQuantity < 0 || b.QuarantinedQuantity < 0 {
			problems = append(problems, fmt.Sprintf("lote %s con cantidad negativa", b.BatchNumber))
		}
		if b.Status == entity.BatchRecalled {
			if b.QuantityOnHand != 0 {
				problems = append(problems, fmt.Sprintf("lote retirado %s con %d unidades libres", b.BatchNumber, b.QuantityOnHand))
			}
		} else if (b.Units() == 0) != (b.Status == entity.BatchDepleted) {
			problems = append(problems, fmt.Sprintf("lote %s: %d unidades con estado %s", b.BatchNumber, b.Units(), b.Status))
		}
		if reservedByBatch[b.BatchNumber] != b.ReservedQuantity {
			problems = append(problems, fmt.Sprintf("lote %s: reservado %d, planes pendientes %d",
				b.BatchNumber, b.ReservedQuantity, reservedByBatch[b.BatchNumber]))
		}
	}
	if len(problems) > 0 {
		return &domain.InternalError{Op: "StockLedger " + l.Key(), Detail: strings.Join(problems, "; ")}
	}
	return nil
}

// Clone copia profunda del libro.
func (l *StockLedger) Clone() *StockLedger {
	c := *l
	c.Batches = slices.Clone(l.Batches)
	if l.LastRestockDate != nil {
		t := *l.LastRestockDate
		c.LastRestockDate = &t
	}
	c.Plans = make(map[string]*AllocationPlan, len(l.Plans))
	for id, p := range l.Plans {
		cp := p.Clone()
		c.Plans[id] = &cp
	}
	return &c
}

// ──────────────────────────────────────────────────────────────────────────────
// Auxiliares
// ──────────────────────────────────────────────────────────────────────────────

// mutate aplica fn sobre una copia y la publica solo si fn y los invariantes pasan.
func (l *StockLedger) mutate(op string, now time.Time, fn func(n *StockLedger) error) error {
	next := l.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.CheckInvariants(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	next.UpdatedAt = now
	*l = *next
	return nil
}

func (l *StockLedger) pendingPlan(planID string, committing bool) (*AllocationPlan, error) {
	rec, ok := l.Plans[planID]
	if !ok || rec.Status == PlanReleased {
		return nil, &domain.PlanConflictError{PlanID: planID, DrugID: l.DrugID, Err: domain.ErrPlanNotFound}
	}
	if rec.Status == PlanCommitted {
		if committing {
			return nil, &domain.PlanConflictError{PlanID: planID, DrugID: l.DrugID, Err: domain.ErrAlreadyCommitted}
		}
		return nil, &domain.PlanConflictError{PlanID: planID, DrugID: l.DrugID, Err: domain.ErrPlanNotFound}
	}
	return rec, nil
}

func settle(p *AllocationPlan, status PlanStatus, now time.Time) {
	t := now
	p.Status = status
	p.SettledAt = &t
}

func (l *StockLedger) batchIndex(batchNumber string) int {
	return slices.IndexFunc(l.Batches, func(b entity.BatchRecord) bool { return b.BatchNumber == batchNumber })
}

func (l *StockLedger) mustBatch(batchNumber string) (*entity.BatchRecord, error) {
	i := l.batchIndex(batchNumber)
	if i < 0 {
		return nil, domain.NotFound("lote", batchNumber)
	}
	return &l.Batches[i], nil
}

// eligibleOrder índices de lotes elegibles en el orden de consumo de la estrategia.
func (l *StockLedger) eligibleOrder(strategy Strategy, now time.Time) []int {
	idx := make([]int, 0, len(l.Batches))
	for i := range l.Batches {
		if l.Batches[i].Eligible(now) {
			idx = append(idx, i)
		}
	}
	cmp := compareFEFO
	if strategy == StrategyFIFO {
		cmp = compareFIFO
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp(&l.Batches[a], &l.Batches[b]) })
	return idx
}

func compareFEFO(a, b *entity.BatchRecord) int {
	if c := a.ExpiryDate.Compare(b.ExpiryDate); c != 0 {
		return c
	}
	if c := a.ReceivedDate.Compare(b.ReceivedDate); c != 0 {
		return c
	}
	return strings.Compare(a.BatchNumber, b.BatchNumber)
}

func compareFIFO(a, b *entity.BatchRecord) int {
	if c := a.ReceivedDate.Compare(b.ReceivedDate); c != 0 {
		return c
	}
	if c := a.ExpiryDate.Compare(b.ExpiryDate); c != 0 {
		return c
	}
	return strings.Compare(a.BatchNumber, b.BatchNumber)
}

func validateIncoming(b *entity.BatchRecord, now time.Time) error {
	switch {
	case strings.TrimSpace(b.BatchNumber) == "":
		return domain.Invalid("batch_number", "obligatorio")
	case b.QuantityOnHand <= 0:
		return domain.Invalid("quantity", "debe ser mayor que cero")
	case b.ReservedQuantity != 0 || b.QuarantinedQuantity != 0:
		return domain.Invalid("quantity", "un lote entrante solo trae unidades libres")
	case !b.Location.Sellable():
		return domain.Invalid("location", "un lote se recibe en ShopFloor o Storage; use Quarantine para aislarlo")
	case b.ExpiryDate.IsZero():
		return domain.Invalid("expiry_date", "obligatoria")
	case b.PurchasePrice.IsNegative() || b.SellingPrice.IsNegative():
		return domain.Invalid("price", "no puede ser negativo")
	}
	if b.ReceivedDate.IsZero() {
		b.ReceivedDate = now
	}
	if !b.ExpiryDate.After(b.ReceivedDate) {
		return domain.Invalid("expiry_date", "debe ser posterior a la fecha de recepción")
	}
	if b.Status == 0 {
		b.Status = entity.BatchActive
	}
	if b.Status != entity.BatchActive {
		return domain.Invalid("status", fmt.Sprintf("un lote entrante no puede llegar en estado %s", b.Status))
	}
	return nil
}
