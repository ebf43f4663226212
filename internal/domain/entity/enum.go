package entity

import (
	"fmt"

	"github.com/jhoicas/Farmacia-api/internal/domain"
)

// enumTable tabla explícita valor <-> nombre para los enums cerrados del dominio.
// El valor cero nunca está en la tabla: un enum sin asignar no se serializa.
type enumTable[T comparable] struct {
	kind   string
	names  map[T]string
	byName map[string]T
}

func newEnumTable[T comparable](kind string, names map[T]string) enumTable[T] {
	byName := make(map[string]T, len(names))
	for v, n := range names {
		byName[n] = v
	}
	return enumTable[T]{kind: kind, names: names, byName: byName}
}

func (t enumTable[T]) name(v T) string {
	if n, ok := t.names[v]; ok {
		return n
	}
	return fmt.Sprintf("%s(%v)", t.kind, v)
}

func (t enumTable[T]) parse(s string) (T, error) {
	if v, ok := t.byName[s]; ok {
		return v, nil
	}
	var zero T
	return zero, domain.Invalid(t.kind, fmt.Sprintf("valor desconocido %q", s))
}

func (t enumTable[T]) marshal(v T) ([]byte, error) {
	n, ok := t.names[v]
	if !ok {
		return nil, domain.Invalid(t.kind, fmt.Sprintf("valor sin nombre %v", v))
	}
	return []byte(n), nil
}

func (t enumTable[T]) valid(v T) bool {
	_, ok := t.names[v]
	return ok
}

func unmarshalInto[T comparable](t enumTable[T], dst *T, b []byte) error {
	v, err := t.parse(string(b))
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
