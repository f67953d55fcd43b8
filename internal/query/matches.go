package query

import "strconv"

// Matches evaluates one where-clause condition against a single cell.
// When both sides parse as numbers the comparison is numeric, otherwise
// lexicographic. An unrecognized operator is an InvalidQuery error.
func Matches(cell, op, literal string) (bool, error) {
	ord := compareValues(cell, literal)
	switch op {
	case "=", "==":
		return ord == 0, nil
	case "!=", "<>":
		return ord != 0, nil
	case "<":
		return ord < 0, nil
	case ">":
		return ord > 0, nil
	case "<=":
		return ord <= 0, nil
	case ">=":
		return ord >= 0, nil
	}
	return false, InvalidQuery("unknown operator %q in where clause", op)
}

func compareValues(a, b string) int {
	a_num, a_err := strconv.ParseFloat(a, 64)
	b_num, b_err := strconv.ParseFloat(b, 64)
	if a_err == nil && b_err == nil {
		switch {
		case a_num < b_num:
			return -1
		case a_num > b_num:
			return 1
		}
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
