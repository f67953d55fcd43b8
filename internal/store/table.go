package store

import (
	"sync"

	"github.com/pkg/errors"
	sorted "github.com/tobshub/go-sortedmap"
)

// Table is an ordered collection of rows over named columns.
//
// Locking model: each row guards its own cells (see Row); the table-level
// Locker/Changed pair is the single broadcast channel for "data changed"
// notifications. Wait queries hold Locker across recheck+Wait, updaters
// broadcast under the same lock, so no wakeup can slip between a re-scan
// and the following Wait.
type Table struct {
	Columns []string

	rows    *sorted.SortedMap[int, *Row]
	next_id int

	Locker  sync.Mutex
	Changed *sync.Cond
}

func rowOrder(a, b *Row) bool { return a.Id < b.Id }

func NewTable(columns []string) *Table {
	t := &Table{Columns: columns, rows: sorted.New[int, *Row](0, rowOrder)}
	t.Changed = sync.NewCond(&t.Locker)
	return t
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Append adds a row at the end of the table. Rows are only appended while
// the table is being loaded, so no notification is fired here.
func (t *Table) Append(cells []string) error {
	if len(cells) != len(t.Columns) {
		return errors.Errorf("row has %d cells, header has %d columns", len(cells), len(t.Columns))
	}
	row := &Row{Id: t.next_id, cells: cells}
	t.rows.Insert(row.Id, row)
	t.next_id++
	return nil
}

// Len reports the row count. Tables are append-only while loading, so
// next_id doubles as the count.
func (t *Table) Len() int { return t.next_id }

// Rows returns the table's rows in table order. Row pointers are stable;
// callers take each row's own lock before touching its cells.
func (t *Table) Rows() []*Row {
	out := make([]*Row, 0, t.next_id)
	iter_ch, err := t.rows.IterCh()
	if err != nil {
		// empty table
		return out
	}
	for rec := range iter_ch.Records() {
		out = append(out, rec.Val)
	}
	return out
}

// Broadcast wakes every query blocked on Changed so it can re-check its
// predicate against the new state.
func (t *Table) Broadcast() {
	t.Locker.Lock()
	t.Changed.Broadcast()
	t.Locker.Unlock()
}
