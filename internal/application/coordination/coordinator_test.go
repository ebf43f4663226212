package coordination_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Farmacia-api/internal/application/coordination"
)

// ──────────────────────────────────────────────────────────────────────────────
// KeyedLocker
// ──────────────────────────────────────────────────────────────────────────────

func shortCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestKeyedLocker_LockEsExclusivo(t *testing.T) {
	k := coordination.NewKeyedLocker()

	unlock, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)

	_, err = k.Lock(shortCtx(t), "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := k.Lock(shortCtx(t), "b")
	require.NoError(t, err, "otra clave no espera")
	other()

	unlock()
	unlock() // idempotente
	assert.Equal(t, 0, k.Len())

	again, err := k.Lock(shortCtx(t), "a")
	require.NoError(t, err)
	again()
}

func TestKeyedLocker_LecturasCompartidas(t *testing.T) {
	k := coordination.NewKeyedLocker()

	r1, err := k.RLock(context.Background(), "a")
	require.NoError(t, err)
	r2, err := k.RLock(shortCtx(t), "a")
	require.NoError(t, err)

	_, err = k.Lock(shortCtx(t), "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "el escritor espera a los lectores")
	assert.Equal(t, 1, k.Len())

	r1()
	r2()
	w, err := k.Lock(shortCtx(t), "a")
	require.NoError(t, err)
	w()
	assert.Equal(t, 0, k.Len())
}

func TestKeyedLocker_CancelacionMientrasEspera(t *testing.T) {
	k := coordination.NewKeyedLocker()
	unlock, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := k.Lock(ctx, "a")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Lock no respetó la cancelación")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Coordinator
// ──────────────────────────────────────────────────────────────────────────────

func TestSortLedgerRefs_OrdenaYQuitaDuplicados(t *testing.T) {
	refs := []coordination.LedgerRef{
		{ShopID: "s2", DrugID: "a"},
		{ShopID: "s1", DrugID: "b"},
		{ShopID: "s1", DrugID: "a"},
		{ShopID: "s1", DrugID: "b"},
	}

	got := coordination.SortLedgerRefs(refs)

	assert.Equal(t, []coordination.LedgerRef{
		{ShopID: "s1", DrugID: "a"},
		{ShopID: "s1", DrugID: "b"},
		{ShopID: "s2", DrugID: "a"},
	}, got)
	assert.Equal(t, "s2", refs[0].ShopID, "la entrada no se modifica")
}

func TestCoordinator_OrdenInversoNoSeBloquea(t *testing.T) {
	c := coordination.NewCoordinator()
	a := coordination.LedgerRef{ShopID: "s1", DrugID: "a"}
	b := coordination.LedgerRef{ShopID: "s1", DrugID: "b"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var inside, maxInside, total atomic.Int64
	run := func(refs []coordination.LedgerRef) func() error {
		return func() error {
			for range 200 {
				err := c.WithLedgers(ctx, refs, func(context.Context) error {
					n := inside.Add(1)
					if n > maxInside.Load() {
						maxInside.Store(n)
					}
					total.Add(1)
					inside.Add(-1)
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		}
	}

	g := new(errgroup.Group)
	g.Go(run([]coordination.LedgerRef{a, b}))
	g.Go(run([]coordination.LedgerRef{b, a}))
	g.Go(run([]coordination.LedgerRef{b, a, b}))

	require.NoError(t, g.Wait())
	assert.Equal(t, int64(600), total.Load())
	assert.Equal(t, int64(1), maxInside.Load(), "los mismos libros nunca se ocupan a la vez")
}

func TestCoordinator_SeccionCriticaIgnoraCancelacion(t *testing.T) {
	c := coordination.NewCoordinator()
	ctx, cancel := context.WithCancel(context.Background())

	err := c.WithOrder(ctx, "o-1", func(inner context.Context) error {
		cancel()
		return inner.Err()
	})

	assert.NoError(t, err)
}

func TestCoordinator_ReadLedgerEsperaAlEscritor(t *testing.T) {
	c := coordination.NewCoordinator()
	ref := coordination.LedgerRef{ShopID: "s1", DrugID: "a"}

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.WithLedger(context.Background(), ref, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := c.ReadLedger(shortCtx(t), ref, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	err = c.ReadLedger(context.Background(), ref, func(context.Context) error { return nil })
	assert.NoError(t, err)
}
