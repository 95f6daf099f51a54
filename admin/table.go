// Package admin is the logic behind the homesense administration views: paginated
// entity tables with confirmed deletes, and a session which loads the data of the
// active view.
//
// Changes are applied to the local tables right after the backend accepted them,
// without fetching the list again. The next full fetch of a view replaces the local
// state of its table.
package admin

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// PageSize is the number of rows per table page
const PageSize = 10

// Confirm asks the operator to confirm a deletion. Nothing is deleted unless it returns true.
type Confirm func(prompt string) bool

// Table is a client-side paginated list of records
type Table[T any] struct {
	mu   sync.RWMutex
	rows []T
	id   func(T) uuid.UUID
}

// NewTable returns an empty table. id returns the identity of a row.
func NewTable[T any](id func(T) uuid.UUID) *Table[T] {
	return &Table[T]{id: id}
}

// Reconcile replaces the local rows with the result of a full fetch
func (t *Table[T]) Reconcile(rows []T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append([]T{}, rows...)
}

// Len returns the number of rows
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Rows returns a copy of all rows
func (t *Table[T]) Rows() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]T{}, t.rows...)
}

// Pages returns the number of pages. An empty table has one empty page.
func (t *Table[T]) Pages() int {
	n := t.Len()
	if n == 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// Page returns the rows of page n, starting with 1. Pages out of range are empty.
func (t *Table[T]) Page(n int) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	start := (n - 1) * PageSize
	if n < 1 || start >= len(t.rows) {
		return nil
	}
	end := start + PageSize
	if end > len(t.rows) {
		end = len(t.rows)
	}
	return append([]T{}, t.rows[start:end]...)
}

// Find returns the row with id
func (t *Table[T]) Find(id uuid.UUID) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, row := range t.rows {
		if t.id(row) == id {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// Add appends a created row
func (t *Table[T]) Add(row T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row)
}

// Replace replaces the row with the same identity. Returns false if there is none.
func (t *Table[T]) Replace(row T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.id(row)
	for i := range t.rows {
		if t.id(t.rows[i]) == id {
			t.rows[i] = row
			return true
		}
	}
	return false
}

// Remove removes the row with id. Returns false if there is none.
func (t *Table[T]) Remove(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.id(t.rows[i]) == id {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return true
		}
	}
	return false
}

// Delete asks confirm, then deletes the row with id through del and removes it locally.
// It returns false if the operator declined.
func (t *Table[T]) Delete(ctx context.Context, id uuid.UUID, prompt string, confirm Confirm,
	del func(ctx context.Context, id uuid.UUID) error) (bool, error) {
	if confirm == nil || !confirm(prompt) {
		return false, nil
	}
	if err := del(ctx, id); err != nil {
		return false, err
	}
	t.Remove(id)
	return true, nil
}
