package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	invapp "github.com/jhoicas/Farmacia-api/internal/application/inventory"
	salesapp "github.com/jhoicas/Farmacia-api/internal/application/sales"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/internal/domain/sales"
)

var (
	_ invapp.TxRunner                = (*Store)(nil)
	_ salesapp.SalesTxRunner         = (*Store)(nil)
	_ repository.LedgerRepository    = (*ledgerRepo)(nil)
	_ repository.OrderRepository     = (*orderRepo)(nil)
	_ repository.DrugRepository      = (*drugRepo)(nil)
	_ repository.PackagingRepository = (*packagingRepo)(nil)
)

// Store persistencia en memoria (desarrollo y pruebas). Lecturas y escrituras copian los
// agregados, así nadie comparte estado mutable con el almacén. Las transacciones acumulan
// las escrituras y las publican juntas al terminar sin error.
type Store struct {
	mu        sync.RWMutex
	ledgers   map[string]*inventory.StockLedger
	orders    map[string]*sales.SalesOrder
	counters  map[string]int
	drugs     map[string]entity.Drug
	overrides map[string]entity.PackagingInfo
	prefix    string
	failSave  func(kind, id string) error
}

// New crea un almacén vacío. orderPrefix antecede al consecutivo de cada tienda ("SO-000001").
func New(orderPrefix string) *Store {
	if orderPrefix == "" {
		orderPrefix = "SO"
	}
	return &Store{
		ledgers:   make(map[string]*inventory.StockLedger),
		orders:    make(map[string]*sales.SalesOrder),
		counters:  make(map[string]int),
		drugs:     make(map[string]entity.Drug),
		overrides: make(map[string]entity.PackagingInfo),
		prefix:    orderPrefix,
	}
}

// AddDrug registra un medicamento en el catálogo.
func (s *Store) AddDrug(d entity.Drug) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drugs[d.ID] = d
}

// UpsertDrug igual que AddDrug; satisface catalog.Sink.
func (s *Store) UpsertDrug(ctx context.Context, d entity.Drug) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.AddDrug(d)
	return nil
}

// SetPackagingOverride registra el empaque propio de una tienda.
func (s *Store) SetPackagingOverride(o entity.ShopPackagingOverride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[inventory.LedgerKey(o.ShopID, o.DrugID)] = o.Packaging
}

// FailSaves instala un fallo inyectado para Save ("ledger" u "order"); nil lo quita.
func (s *Store) FailSaves(fn func(kind, id string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = fn
}

// Ledgers repositorio de libros fuera de transacción.
func (s *Store) Ledgers() repository.LedgerRepository { return &ledgerRepo{s: s} }

// Orders repositorio de órdenes fuera de transacción.
func (s *Store) Orders() repository.OrderRepository { return &orderRepo{s: s} }

// Drugs catálogo de medicamentos.
func (s *Store) Drugs() repository.DrugRepository { return &drugRepo{s: s} }

// Packaging empaques de catálogo y sobrescrituras por tienda.
func (s *Store) Packaging() repository.PackagingRepository { return &packagingRepo{s: s} }

// Run ejecuta fn con un repositorio de libros transaccional.
func (s *Store) Run(ctx context.Context, fn func(ledgers repository.LedgerRepository) error) error {
	return s.RunSales(ctx, func(ledgers repository.LedgerRepository, _ repository.OrderRepository) error {
		return fn(ledgers)
	})
}

// RunSales ejecuta fn con libros y órdenes transaccionales; publica todo o nada.
func (s *Store) RunSales(ctx context.Context, fn func(ledgers repository.LedgerRepository, orders repository.OrderRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{
		ledgers: make(map[string]*inventory.StockLedger),
		orders:  make(map[string]*sales.SalesOrder),
	}
	if err := fn(&ledgerRepo{s: s, tx: t}, &orderRepo{s: s, tx: t}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, l := range t.ledgers {
		s.ledgers[k] = l
	}
	for id, o := range t.orders {
		s.orders[id] = o
	}
	return nil
}

type tx struct {
	ledgers map[string]*inventory.StockLedger
	orders  map[string]*sales.SalesOrder
}

func (s *Store) checkSave(kind, id string) error {
	s.mu.RLock()
	fail := s.failSave
	s.mu.RUnlock()
	if fail == nil {
		return nil
	}
	return fail(kind, id)
}

// ──────────────────────────────────────────────────────────────────────────────
// Libros de stock
// ──────────────────────────────────────────────────────────────────────────────

type ledgerRepo struct {
	s  *Store
	tx *tx
}

func (r *ledgerRepo) Get(ctx context.Context, shopID, drugID string) (*inventory.StockLedger, error) {
	key := inventory.LedgerKey(shopID, drugID)
	if r.tx != nil {
		if l, ok := r.tx.ledgers[key]; ok {
			return l.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.ledgers[key]
	if !ok {
		return nil, domain.NotFound("libro de stock", key)
	}
	return l.Clone(), nil
}

// GetForUpdate el bloqueo lo dan los candados del coordinador; aquí equivale a Get.
func (r *ledgerRepo) GetForUpdate(ctx context.Context, shopID, drugID string) (*inventory.StockLedger, error) {
	return r.Get(ctx, shopID, drugID)
}

func (r *ledgerRepo) Save(ctx context.Context, l *inventory.StockLedger) error {
	if l == nil || l.ShopID == "" || l.DrugID == "" {
		return domain.Invalid("ledger", "tienda y medicamento obligatorios")
	}
	if err := l.CheckInvariants(); err != nil {
		return err
	}
	if err := r.s.checkSave("ledger", l.Key()); err != nil {
		return err
	}
	c := l.Clone()
	if r.tx != nil {
		r.tx.ledgers[l.Key()] = c
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.ledgers[l.Key()] = c
	return nil
}

func (r *ledgerRepo) ListByShop(ctx context.Context, shopID string) ([]*inventory.StockLedger, error) {
	byKey := make(map[string]*inventory.StockLedger)
	r.s.mu.RLock()
	for k, l := range r.s.ledgers {
		if l.ShopID == shopID {
			byKey[k] = l
		}
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for k, l := range r.tx.ledgers {
			if l.ShopID == shopID {
				byKey[k] = l
			}
		}
	}
	out := make([]*inventory.StockLedger, 0, len(byKey))
	for _, l := range byKey {
		out = append(out, l.Clone())
	}
	slices.SortFunc(out, func(a, b *inventory.StockLedger) int { return strings.Compare(a.DrugID, b.DrugID) })
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Órdenes
// ──────────────────────────────────────────────────────────────────────────────

type orderRepo struct {
	s  *Store
	tx *tx
}

func (r *orderRepo) Get(ctx context.Context, id string) (*sales.SalesOrder, error) {
	if r.tx != nil {
		if o, ok := r.tx.orders[id]; ok {
			return o.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.NotFound("orden", id)
	}
	return o.Clone(), nil
}

func (r *orderRepo) Save(ctx context.Context, o *sales.SalesOrder) error {
	if o == nil || o.ID == "" {
		return domain.Invalid("order", "id obligatorio")
	}
	if err := r.s.checkSave("order", o.ID); err != nil {
		return err
	}
	c := o.Clone()
	if r.tx != nil {
		r.tx.orders[o.ID] = c
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[o.ID] = c
	return nil
}

// NextOrderNumber consecutivo por tienda. Como una secuencia de BD, no se revierte con la transacción.
func (r *orderRepo) NextOrderNumber(ctx context.Context, shopID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.counters[shopID]++
	return fmt.Sprintf("%s-%06d", r.s.prefix, r.s.counters[shopID]), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Catálogo
// ──────────────────────────────────────────────────────────────────────────────

type drugRepo struct{ s *Store }

func (r *drugRepo) Get(ctx context.Context, id string) (*entity.Drug, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.drugs[id]
	if !ok {
		return nil, domain.NotFound("medicamento", id)
	}
	return &d, nil
}

type packagingRepo struct{ s *Store }

func (r *packagingRepo) CatalogPackaging(ctx context.Context, drugID string) (entity.PackagingInfo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.drugs[drugID]
	if !ok {
		return entity.PackagingInfo{}, domain.NotFound("medicamento", drugID)
	}
	return d.DefaultPackaging, nil
}

func (r *packagingRepo) ShopOverride(ctx context.Context, shopID, drugID string) (*entity.PackagingInfo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.overrides[inventory.LedgerKey(shopID, drugID)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
