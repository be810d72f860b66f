// Package memstore implements the repository ports in memory.
package memstore

import (
	"cmp"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/ltuffery/Octopus/internal/domain"
)

// table is a map of records that only ever hands out copies.
type table[T any] struct {
	mu    sync.RWMutex
	rows  map[string]*T
	clone func(*T) *T
	less  func(a, b *T) int
}

func newTable[T any](clone func(*T) *T, less func(a, b *T) int) *table[T] {
	return &table[T]{rows: make(map[string]*T), clone: clone, less: less}
}

func (t *table[T]) get(op, id string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, op, "%s not found", id)
	}
	return t.clone(row), nil
}

func (t *table[T]) find(match func(*T) bool) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := lo.Find(lo.Values(t.rows), match)
	if !ok {
		return nil, false
	}
	return t.clone(row), true
}

func (t *table[T]) list(match func(*T) bool) []*T {
	t.mu.RLock()
	rows := lo.Filter(lo.Values(t.rows), func(row *T, _ int) bool { return match == nil || match(row) })
	rows = lo.Map(rows, func(row *T, _ int) *T { return t.clone(row) })
	t.mu.RUnlock()

	slices.SortFunc(rows, t.less)
	return rows
}

func (t *table[T]) put(id string, row *T) {
	t.mu.Lock()
	t.rows[id] = t.clone(row)
	t.mu.Unlock()
}

func (t *table[T]) remove(op, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return domain.Errorf(domain.KindNotFound, op, "%s not found", id)
	}
	delete(t.rows, id)
	return nil
}

func byCreated[T any](created func(*T) int64, id func(*T) string) func(a, b *T) int {
	return func(a, b *T) int {
		if c := cmp.Compare(created(a), created(b)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	}
}
