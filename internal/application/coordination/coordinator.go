package coordination

import (
	"cmp"
	"context"
	"slices"

	"github.com/jhoicas/Farmacia-api/internal/domain/inventory"
)

// LedgerRef identifica un libro de stock (tienda, medicamento).
type LedgerRef struct {
	ShopID string
	DrugID string
}

func (r LedgerRef) key() string { return inventory.LedgerKey(r.ShopID, r.DrugID) }

// Coordinator frontera de atomicidad de las operaciones sobre órdenes y libros:
//   - un escritor por orden
//   - un escritor por libro, lectores compartidos
//   - varios libros siempre en orden ascendente (tienda, medicamento) para evitar interbloqueos
//   - siempre orden antes que libros
//
// La cancelación de ctx solo aborta mientras se espera un candado; dentro de la sección crítica
// fn recibe un contexto sin cancelación y corre hasta terminar.
type Coordinator struct {
	orders  *KeyedLocker
	ledgers *KeyedLocker
}

// NewCoordinator construye el coordinador.
func NewCoordinator() *Coordinator {
	return &Coordinator{orders: NewKeyedLocker(), ledgers: NewKeyedLocker()}
}

// WithOrder ejecuta fn con la orden bloqueada en exclusiva.
func (c *Coordinator) WithOrder(ctx context.Context, orderID string, fn func(ctx context.Context) error) error {
	unlock, err := c.orders.Lock(ctx, "order/"+orderID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(context.WithoutCancel(ctx))
}

// WithLedgers ejecuta fn con todos los libros bloqueados en exclusiva.
func (c *Coordinator) WithLedgers(ctx context.Context, refs []LedgerRef, fn func(ctx context.Context) error) error {
	ordered := SortLedgerRefs(refs)
	unlocks := make([]func(), 0, len(ordered))
	defer func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}()
	for _, ref := range ordered {
		unlock, err := c.ledgers.Lock(ctx, ref.key())
		if err != nil {
			return err
		}
		unlocks = append(unlocks, unlock)
	}
	return fn(context.WithoutCancel(ctx))
}

// WithLedger atajo para un solo libro.
func (c *Coordinator) WithLedger(ctx context.Context, ref LedgerRef, fn func(ctx context.Context) error) error {
	return c.WithLedgers(ctx, []LedgerRef{ref}, fn)
}

// ReadLedger ejecuta fn con el libro bloqueado en modo compartido.
func (c *Coordinator) ReadLedger(ctx context.Context, ref LedgerRef, fn func(ctx context.Context) error) error {
	unlock, err := c.ledgers.RLock(ctx, ref.key())
	if err != nil {
		return err
	}
	defer unlock()
	return fn(context.WithoutCancel(ctx))
}

// SortLedgerRefs copia sin duplicados en orden ascendente (tienda, medicamento).
func SortLedgerRefs(refs []LedgerRef) []LedgerRef {
	out := slices.Clone(refs)
	slices.SortFunc(out, func(a, b LedgerRef) int {
		if c := cmp.Compare(a.ShopID, b.ShopID); c != 0 {
			return c
		}
		return cmp.Compare(a.DrugID, b.DrugID)
	})
	return slices.Compact(out)
}
