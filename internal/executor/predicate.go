package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

// filterRows re-applies pred to every row, keeping only those that
// match. The executor always does this post-fetch regardless of
// whether the owning plugin honoured the pushed-down subset.
func filterRows(rows []rowset.Row, pred *statement.Predicate) []rowset.Row {
	out := make([]rowset.Row, 0, len(rows))
	for _, row := range rows {
		if evaluatePredicate(row, pred) {
			out = append(out, row)
		}
	}
	return out
}

func evaluatePredicate(row rowset.Row, pred *statement.Predicate) bool {
	if pred == nil || len(pred.Conditions) == 0 {
		return true
	}
	switch pred.Combinator {
	case statement.CombinatorOr:
		for _, c := range pred.Conditions {
			if evaluateCondition(row, c) {
				return true
			}
		}
		return false
	default: // AND, and the single-condition case
		for _, c := range pred.Conditions {
			if !evaluateCondition(row, c) {
				return false
			}
		}
		return true
	}
}

func evaluateCondition(row rowset.Row, cond statement.Condition) bool {
	actual, found := lookupField(row, cond.Field)
	if !found || actual == nil {
		// Null never compares equal to anything; every comparison
		// against null is false.
		return false
	}

	switch cond.Op {
	case statement.OpEq:
		return compareValues(actual, cond.Value) == 0
	case statement.OpNeq:
		return compareValues(actual, cond.Value) != 0
	case statement.OpGt:
		return compareValues(actual, cond.Value) > 0
	case statement.OpLt:
		return compareValues(actual, cond.Value) < 0
	case statement.OpGte:
		return compareValues(actual, cond.Value) >= 0
	case statement.OpLte:
		return compareValues(actual, cond.Value) <= 0
	case statement.OpLike:
		pattern, ok := cond.Value.(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(toString(actual)), strings.ToLower(pattern))
	case statement.OpIn:
		values, ok := cond.Value.([]interface{})
		if !ok {
			return false
		}
		for _, v := range values {
			if compareValues(actual, v) == 0 {
				return true
			}
		}
		return false
	case statement.OpBetween:
		return compareValues(actual, cond.Value) >= 0 && compareValues(actual, cond.SecondValue) <= 0
	default:
		return false
	}
}

// lookupField resolves a possibly-qualified field name ("table.column"
// or bare "column") against row. A qualified name not present as-is
// falls back to its bare column name.
func lookupField(row rowset.Row, field string) (interface{}, bool) {
	if v, ok := row[field]; ok {
		return v, true
	}
	if idx := strings.LastIndex(field, "."); idx >= 0 {
		bare := field[idx+1:]
		if v, ok := row[bare]; ok {
			return v, true
		}
	}
	return nil, false
}

// compareValues orders two dynamically-typed scalars. Numeric
// comparisons use numeric ordering when both sides are numeric;
// otherwise the comparison falls back to the lexicographic order of
// the string form.
func compareValues(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as, bs := toString(a), toString(b)
	return strings.Compare(as, bs)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64, float32, int, int32, int64:
		f, _ := toFloat(v)
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}
