package store

import "sync"

// Row is a single record of a Table, indexable by column position.
// Cells are only read or written while the row lock is held.
type Row struct {
	Id int

	locker sync.Mutex
	cells  []string
}

func (r *Row) Lock()   { r.locker.Lock() }
func (r *Row) Unlock() { r.locker.Unlock() }

// Cell returns the value at column index i. Caller holds the row lock.
func (r *Row) Cell(i int) string { return r.cells[i] }

// SetCell overwrites the value at column index i. Caller holds the row lock.
func (r *Row) SetCell(i int, value string) { r.cells[i] = value }

// Snapshot copies the row's cells under the row lock.
func (r *Row) Snapshot() []string {
	r.Lock()
	defer r.Unlock()
	return append([]string(nil), r.cells...)
}
