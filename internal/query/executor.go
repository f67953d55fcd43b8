package query

import (
	"fmt"
	"strings"

	"github.com/airsql/airsql/internal/store"
)

// Select scans the table row by row, holding at most one row lock at a
// time, and returns the formatted result: a tab-joined header line (only
// when at least one row matched), one tab-joined line per matching row in
// table order, and a trailing count line.
//
// Row-by-row locking lets updates to unrelated rows proceed concurrently
// but gives no snapshot isolation: a scan racing an update may observe a
// mix of pre- and post-update rows.
//
// With q.Wait set and zero matches, Select blocks on the table's Changed
// condition and re-scans from scratch on every wakeup until at least one
// row matches.
func Select(t *store.Table, q *Query) (string, error) {
	cols := q.Columns
	if len(cols) > 0 && cols[0] == Wildcard {
		cols = t.Columns
	}
	col_idx := make([]int, len(cols))
	for i, name := range cols {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return "", InvalidColumn(name)
		}
		col_idx[i] = idx
	}
	where_idx, err := whereIndex(t, q)
	if err != nil {
		return "", err
	}

	row_text, count, err := scanSelect(t, q, col_idx, where_idx)
	if err != nil {
		return "", err
	}
	if count == 0 && q.Wait {
		t.Locker.Lock()
		for {
			row_text, count, err = scanSelect(t, q, col_idx, where_idx)
			if err != nil {
				t.Locker.Unlock()
				return "", err
			}
			if count > 0 {
				break
			}
			t.Changed.Wait()
		}
		t.Locker.Unlock()
	}

	var sb strings.Builder
	if count > 0 {
		sb.WriteString(strings.Join(cols, "\t"))
		sb.WriteByte('\n')
	}
	sb.WriteString(row_text)
	fmt.Fprintf(&sb, "%d row(s) selected.\n", count)
	return sb.String(), nil
}

// Update applies the set clause to every matching row, writing cells while
// the row's own lock is held. The wait behavior mirrors Select. After at
// least one row changed, every waiter on the table's Changed condition is
// woken (broadcast, not single-wake) to re-check its own predicate.
func Update(t *store.Table, q *Query) (string, error) {
	set_idx := make([]int, len(q.SetColumns))
	for i, name := range q.SetColumns {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return "", InvalidColumn(name)
		}
		set_idx[i] = idx
	}
	where_idx, err := whereIndex(t, q)
	if err != nil {
		return "", err
	}

	count, err := scanUpdate(t, q, set_idx, where_idx)
	if err != nil {
		return "", err
	}
	if count == 0 && q.Wait {
		t.Locker.Lock()
		for {
			count, err = scanUpdate(t, q, set_idx, where_idx)
			if err != nil {
				t.Locker.Unlock()
				return "", err
			}
			if count > 0 {
				break
			}
			t.Changed.Wait()
		}
		t.Locker.Unlock()
	}

	if count > 0 {
		t.Broadcast()
	}
	return fmt.Sprintf("%d row(s) updated.\n", count), nil
}

// Insert and Delete are recognized by the grammar but unsupported; they
// always report a not-implemented error rather than silently doing part
// of the work.
func Insert() error { return NotImplemented("insert is not yet implemented.") }
func Delete() error { return NotImplemented("delete is not yet implemented.") }

func whereIndex(t *store.Table, q *Query) (int, error) {
	if !q.HasWhere() {
		return -1, nil
	}
	idx := t.ColumnIndex(q.WhereColumn)
	if idx < 0 {
		return -1, InvalidColumn(q.WhereColumn)
	}
	return idx, nil
}

func scanSelect(t *store.Table, q *Query, col_idx []int, where_idx int) (string, int, error) {
	var sb strings.Builder
	count := 0
	for _, row := range t.Rows() {
		cells, matched, err := projectRow(row, q, col_idx, where_idx)
		if err != nil {
			return "", 0, err
		}
		if !matched {
			continue
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteByte('\n')
		count++
	}
	return sb.String(), count, nil
}

// projectRow evaluates the predicate and copies the projected cells under
// the row lock, releasing it before the caller moves to the next row.
func projectRow(row *store.Row, q *Query, col_idx []int, where_idx int) ([]string, bool, error) {
	row.Lock()
	defer row.Unlock()
	matched, err := rowMatches(row, q, where_idx)
	if err != nil || !matched {
		return nil, false, err
	}
	cells := make([]string, len(col_idx))
	for i, idx := range col_idx {
		cells[i] = row.Cell(idx)
	}
	return cells, true, nil
}

func scanUpdate(t *store.Table, q *Query, set_idx []int, where_idx int) (int, error) {
	count := 0
	for _, row := range t.Rows() {
		matched, err := updateRow(row, q, set_idx, where_idx)
		if err != nil {
			return 0, err
		}
		if matched {
			count++
		}
	}
	return count, nil
}

func updateRow(row *store.Row, q *Query, set_idx []int, where_idx int) (bool, error) {
	row.Lock()
	defer row.Unlock()
	matched, err := rowMatches(row, q, where_idx)
	if err != nil || !matched {
		return false, err
	}
	for i, idx := range set_idx {
		row.SetCell(idx, q.SetValues[i])
	}
	return true, nil
}

// rowMatches short-circuits to true when there is no where clause; the
// matcher is never invoked in that case. Caller holds the row lock.
func rowMatches(row *store.Row, q *Query, where_idx int) (bool, error) {
	if where_idx < 0 {
		return true, nil
	}
	return Matches(row.Cell(where_idx), q.WhereOp, q.WhereValue)
}
