package coordination

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// maxReaders peso total de cada semáforo: un escritor toma todo, un lector toma 1.
const maxReaders = 1 << 20

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// KeyedLocker exclusión mutua por clave con lecturas compartidas.
// Las entradas se crean bajo demanda y se eliminan cuando nadie las usa.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewKeyedLocker construye el locker vacío.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*lockEntry)}
}

// Lock adquiere la clave en modo exclusivo. Si ctx se cancela antes de adquirirla, devuelve ctx.Err().
// El llamador debe invocar la función devuelta para liberar.
func (k *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	return k.acquire(ctx, key, maxReaders)
}

// RLock adquiere la clave en modo compartido.
func (k *KeyedLocker) RLock(ctx context.Context, key string) (func(), error) {
	return k.acquire(ctx, key, 1)
}

func (k *KeyedLocker) acquire(ctx context.Context, key string, weight int64) (func(), error) {
	e := k.ref(key)
	if err := e.sem.Acquire(ctx, weight); err != nil {
		k.unref(key)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(weight)
			k.unref(key)
		})
	}, nil
}

func (k *KeyedLocker) ref(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(maxReaders)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedLocker) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Len número de claves con usuarios activos (útil en pruebas).
func (k *KeyedLocker) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
