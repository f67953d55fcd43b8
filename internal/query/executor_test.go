package query_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/airsql/airsql/internal/query"
	"github.com/airsql/airsql/internal/store"
	"gotest.tools/assert"
)

func newTestTable(t *testing.T) *store.Table {
	table := store.NewTable([]string{"Name", "Age"})
	assert.NilError(t, table.Append([]string{"Alice", "30"}))
	assert.NilError(t, table.Append([]string{"Bob", "25"}))
	return table
}

func mustParse(t *testing.T, text string) *Query {
	q, err := Parse(text)
	assert.NilError(t, err)
	return q
}

func TestSelect(t *testing.T) {
	t.Run("where clause filters rows", func(t *testing.T) {
		out, err := Select(newTestTable(t), mustParse(t, "select Name where Age > 26"))
		assert.NilError(t, err)
		assert.Equal(t, out, "Name\nAlice\n1 row(s) selected.\n")
	})

	t.Run("wildcard expands to all columns", func(t *testing.T) {
		out, err := Select(newTestTable(t), mustParse(t, "select *"))
		assert.NilError(t, err)
		assert.Equal(t, out, "Name\tAge\nAlice\t30\nBob\t25\n2 row(s) selected.\n")
	})

	t.Run("zero matches emit only the count line", func(t *testing.T) {
		out, err := Select(newTestTable(t), mustParse(t, "select Name where Age > 99"))
		assert.NilError(t, err)
		assert.Equal(t, out, "0 row(s) selected.\n")
	})

	t.Run("projection keeps requested order", func(t *testing.T) {
		out, err := Select(newTestTable(t), mustParse(t, "select Age,Name where Name=Bob"))
		assert.NilError(t, err)
		assert.Equal(t, out, "Age\tName\n25\tBob\n1 row(s) selected.\n")
	})

	t.Run("unknown projected column aborts the query", func(t *testing.T) {
		_, err := Select(newTestTable(t), mustParse(t, "select Salary"))
		assert.Equal(t, KindOf(err), KindInvalidColumn)
	})

	t.Run("unknown where column aborts the query", func(t *testing.T) {
		_, err := Select(newTestTable(t), mustParse(t, "select Name where Salary > 10"))
		assert.Equal(t, KindOf(err), KindInvalidColumn)
	})

	t.Run("malformed operator reaches the matcher", func(t *testing.T) {
		q := mustParse(t, "select Name where Age > 26")
		q.WhereOp = "=<"
		_, err := Select(newTestTable(t), q)
		assert.Equal(t, KindOf(err), KindInvalidQuery)
	})
}

func TestUpdate(t *testing.T) {
	t.Run("updates only matching rows", func(t *testing.T) {
		table := newTestTable(t)
		out, err := Update(table, mustParse(t, "update set Age=31 where Name=Alice"))
		assert.NilError(t, err)
		assert.Equal(t, out, "1 row(s) updated.\n")

		// a follow-up read sees the new value
		sel, err := Select(table, mustParse(t, "select Age where Name=Alice"))
		assert.NilError(t, err)
		assert.Equal(t, sel, "Age\n31\n1 row(s) selected.\n")

		// untouched rows stay byte-identical
		assert.DeepEqual(t, table.Rows()[1].Snapshot(), []string{"Bob", "25"})
	})

	t.Run("no where clause updates every row", func(t *testing.T) {
		table := newTestTable(t)
		out, err := Update(table, mustParse(t, "update set Age=1"))
		assert.NilError(t, err)
		assert.Equal(t, out, "2 row(s) updated.\n")
	})

	t.Run("zero matches report zero", func(t *testing.T) {
		out, err := Update(newTestTable(t), mustParse(t, "update set Age=1 where Name=Carol"))
		assert.NilError(t, err)
		assert.Equal(t, out, "0 row(s) updated.\n")
	})

	t.Run("unknown set column aborts before writing", func(t *testing.T) {
		table := newTestTable(t)
		_, err := Update(table, mustParse(t, "update set Salary=1"))
		assert.Equal(t, KindOf(err), KindInvalidColumn)
		assert.DeepEqual(t, table.Rows()[0].Snapshot(), []string{"Alice", "30"})
	})
}

func TestInsertDeleteUnsupported(t *testing.T) {
	assert.Equal(t, KindOf(Insert()), KindNotImplemented)
	assert.Equal(t, KindOf(Delete()), KindNotImplemented)
	assert.ErrorContains(t, Insert(), "not yet implemented")
	assert.ErrorContains(t, Delete(), "not yet implemented")
}

func TestWaitSelect(t *testing.T) {
	table := newTestTable(t)

	res_ch := make(chan string, 1)
	go func() {
		out, err := Select(table, mustParse(t, "select Name where Age > 99 and wait"))
		assert.NilError(t, err)
		res_ch <- out
	}()

	select {
	case out := <-res_ch:
		t.Fatalf("wait query returned before any match: %q", out)
	case <-time.After(50 * time.Millisecond):
	}

	_, err := Update(table, mustParse(t, "update set Age=100 where Name=Bob"))
	assert.NilError(t, err)

	select {
	case out := <-res_ch:
		assert.Equal(t, out, "Name\nBob\n1 row(s) selected.\n")
	case <-time.After(2 * time.Second):
		t.Fatal("wait query never woke up")
	}
}

func TestWaitUpdate(t *testing.T) {
	table := newTestTable(t)

	res_ch := make(chan string, 1)
	go func() {
		out, err := Update(table, mustParse(t, "update set Age=1 where Name=Carol and wait"))
		assert.NilError(t, err)
		res_ch <- out
	}()

	select {
	case <-res_ch:
		t.Fatal("wait update returned before any match")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := Update(table, mustParse(t, "update set Name=Carol where Name=Bob"))
	assert.NilError(t, err)

	select {
	case out := <-res_ch:
		assert.Equal(t, out, "1 row(s) updated.\n")
	case <-time.After(2 * time.Second):
		t.Fatal("wait update never woke up")
	}

	sel, err := Select(table, mustParse(t, "select Age where Name=Carol"))
	assert.NilError(t, err)
	assert.Equal(t, sel, "Age\n1\n1 row(s) selected.\n")
}

func TestBroadcastWakesEveryWaiter(t *testing.T) {
	table := newTestTable(t)

	wg := sync.WaitGroup{}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := Select(table, mustParse(t, "select Name where Age = 99 and wait"))
			assert.NilError(t, err)
			assert.Assert(t, strings.Contains(out, "row(s) selected."))
		}()
	}

	time.Sleep(50 * time.Millisecond)
	_, err := Update(table, mustParse(t, "update set Age=99"))
	assert.NilError(t, err)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every waiter woke up")
	}
}

func TestConcurrentDisjointUpdates(t *testing.T) {
	table := store.NewTable([]string{"Id", "Val"})
	for i := 0; i < 4; i++ {
		assert.NilError(t, table.Append([]string{fmt.Sprint(i), "0"}))
	}

	wg := sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				q := mustParse(t, fmt.Sprintf("update set Val=%d where Id=%d", n, i))
				_, err := Update(table, q)
				assert.NilError(t, err)
			}
		}()
	}
	wg.Wait()

	for i, row := range table.Rows() {
		assert.DeepEqual(t, row.Snapshot(), []string{fmt.Sprint(i), "19"})
	}
}
