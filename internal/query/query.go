package query

import "strings"

type Verb string

const (
	VerbSelect Verb = "select"
	VerbUpdate Verb = "update"
	VerbInsert Verb = "insert"
	VerbDelete Verb = "delete"
	VerbSave   Verb = "save"
)

// Wildcard in a select column list expands to every table column.
const Wildcard = "*"

// Query is one parsed statement. Built per request, discarded after
// execution.
type Query struct {
	Verb   Verb
	Source string // file path or http:// URL; empty means most recently used

	Columns []string // select projection

	SetColumns []string // update targets, parallel to SetValues
	SetValues  []string

	WhereColumn string // empty means no where clause
	WhereOp     string
	WhereValue  string

	// Wait makes select/update block until at least one row matches.
	Wait bool
}

func (q *Query) HasWhere() bool { return q.WhereColumn != "" }

// Parse turns a decoded query string into a Query.
//
//	select <col>[,<col>...]|* [from <src>] [where <col> <op> <lit>] [and wait]
//	update [<src>] set <col>=<val>[,...] [where <col> <op> <lit>] [and wait]
//	save
//
// insert and delete are recognized but carry no arguments; the executor
// reports them as not implemented.
func Parse(text string) (*Query, error) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	if text == "" {
		return nil, InvalidQuery("empty query")
	}

	q := &Query{}
	if rest, ok := strings.CutSuffix(text, " and wait"); ok {
		q.Wait = true
		text = strings.TrimSpace(rest)
	}

	verb, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)

	switch Verb(verb) {
	case VerbSelect:
		q.Verb = VerbSelect
		return q, parseSelect(q, rest)
	case VerbUpdate:
		q.Verb = VerbUpdate
		return q, parseUpdate(q, rest)
	case VerbInsert, VerbDelete:
		q.Verb = Verb(verb)
		return q, nil
	case VerbSave:
		if rest != "" {
			return nil, InvalidQuery("save takes no arguments")
		}
		q.Verb = VerbSave
		return q, nil
	}
	return nil, InvalidQuery("unknown verb %q", verb)
}

func parseSelect(q *Query, rest string) error {
	head, cond := cutClause(rest, " where ")
	cols, source := cutClause(head, " from ")
	if cols == "" || strings.HasPrefix(cols, "from ") {
		return InvalidQuery("select needs a column list")
	}
	for _, col := range strings.Split(cols, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			return InvalidQuery("empty column name in select list")
		}
		q.Columns = append(q.Columns, col)
	}
	q.Source = source
	return parseCondition(q, cond)
}

func parseUpdate(q *Query, rest string) error {
	head, cond := cutClause(rest, " where ")
	var assignments string
	if after, ok := strings.CutPrefix(head, "set "); ok {
		assignments = after
	} else {
		source, after := cutClause(head, " set ")
		if after == "" {
			return InvalidQuery("update needs a set clause")
		}
		q.Source = source
		assignments = after
	}
	for _, assign := range strings.Split(assignments, ",") {
		col, value, ok := strings.Cut(assign, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return InvalidQuery("malformed assignment %q in set clause", strings.TrimSpace(assign))
		}
		q.SetColumns = append(q.SetColumns, col)
		q.SetValues = append(q.SetValues, strings.TrimSpace(value))
	}
	return parseCondition(q, cond)
}

// parseCondition accepts both "col op lit" and the compact "col<op>lit"
// form, so "where Name=Alice" and "where Age > 26" both work.
func parseCondition(q *Query, expr string) error {
	if expr == "" {
		return nil
	}
	i := strings.IndexAny(expr, "<>!=")
	if i <= 0 {
		return InvalidQuery("malformed where clause %q", expr)
	}
	j := i
	for j < len(expr) && strings.ContainsRune("<>!=", rune(expr[j])) {
		j++
	}
	q.WhereColumn = strings.TrimSpace(expr[:i])
	q.WhereOp = expr[i:j]
	q.WhereValue = strings.TrimSpace(expr[j:])
	if q.WhereColumn == "" {
		return InvalidQuery("malformed where clause %q", expr)
	}
	return nil
}

func cutClause(s, sep string) (head, tail string) {
	if i := strings.Index(s, sep); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(sep):])
	}
	return strings.TrimSpace(s), ""
}
