package executor

import (
	"context"

	"github.com/infraql/infraql/internal/plugin"
	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

// applyJoin fetches the right-hand table from its owning source with
// empty filters and performs an in-memory nested-loop join against
// leftRows. leftTable names the table leftRows came from, used to
// resolve bare field references on the ON clause.
func (e *Executor) applyJoin(ctx context.Context, leftRows []rowset.Row, leftColumns []rowset.ColumnInfo, leftTable string, join statement.Join) ([]rowset.Row, []rowset.ColumnInfo, error) {
	rightEntry, err := e.resolveTable(ctx, join.Table)
	if err != nil {
		return nil, nil, err
	}

	rightResult, err := e.Registry.Query(ctx, rightEntry.Source, join.Table, nil, plugin.QueryOptions{})
	if err != nil {
		return nil, nil, err
	}

	merged := make([]rowset.Row, 0, len(leftRows))
	rightMatched := make([]bool, len(rightResult.Rows))

	for _, left := range leftRows {
		anyMatch := false
		for ri, right := range rightResult.Rows {
			if evaluateJoinCondition(left, right, leftTable, join.Table, join.On) {
				anyMatch = true
				rightMatched[ri] = true
				merged = append(merged, mergeRows(leftTable, join.Table, left, right))
			}
		}
		if !anyMatch && join.Kind == statement.JoinLeft {
			merged = append(merged, mergeRows(leftTable, join.Table, left, nil))
		}
	}

	if join.Kind == statement.JoinRight {
		for ri, right := range rightResult.Rows {
			if !rightMatched[ri] {
				merged = append(merged, mergeRows(leftTable, join.Table, nil, right))
			}
		}
	}

	columns := mergeColumns(leftTable, join.Table, leftColumns, rightResult.Columns)
	return merged, columns, nil
}

// evaluateJoinCondition resolves both sides of the ON clause against
// the row each field's table owns and compares them.
func evaluateJoinCondition(left, right rowset.Row, leftTable, rightTable string, on statement.JoinCondition) bool {
	lv, lok := resolveJoinField(on.LeftField, left, right, leftTable, rightTable)
	rv, rok := resolveJoinField(on.RightField, left, right, leftTable, rightTable)
	if !lok || !rok || lv == nil || rv == nil {
		return false
	}
	return compareAgainstOp(lv, rv, on.Op)
}

func compareAgainstOp(lv, rv interface{}, op statement.CompareOp) bool {
	cmp := compareValues(lv, rv)
	switch op {
	case statement.OpEq:
		return cmp == 0
	case statement.OpNeq:
		return cmp != 0
	case statement.OpGt:
		return cmp > 0
	case statement.OpLt:
		return cmp < 0
	case statement.OpGte:
		return cmp >= 0
	case statement.OpLte:
		return cmp <= 0
	default:
		return false
	}
}

// resolveJoinField looks up a (possibly qualified) field against
// whichever side owns its table: "t.c" looks up c in table t's row;
// bare "c" looks up against the appropriate side's owning table.
func resolveJoinField(field string, left, right rowset.Row, leftTable, rightTable string) (interface{}, bool) {
	table, column := splitQualified(field)
	if table == "" {
		if v, ok := left[column]; ok {
			return v, true
		}
		if v, ok := right[column]; ok {
			return v, true
		}
		return nil, false
	}
	if table == leftTable {
		v, ok := left[column]
		return v, ok
	}
	if table == rightTable {
		v, ok := right[column]
		return v, ok
	}
	return nil, false
}

func splitQualified(field string) (table, column string) {
	for i := len(field) - 1; i >= 0; i-- {
		if field[i] == '.' {
			return field[:i], field[i+1:]
		}
	}
	return "", field
}

// mergeRows merges a matched left/right pair under a row-merge
// convention: qualified "t.c" keys for both sides, plus unqualified
// keys where an unqualified collision lets the left side win. A nil
// side (the missing partner of an unmatched row in a LEFT or RIGHT
// join) contributes no columns, so its fields read as null.
func mergeRows(leftTable, rightTable string, left, right rowset.Row) rowset.Row {
	out := make(rowset.Row)

	for k, v := range left {
		out[leftTable+"."+k] = v
		out[k] = v
	}
	for k, v := range right {
		out[rightTable+"."+k] = v
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}

func mergeColumns(leftTable, rightTable string, left, right []rowset.ColumnInfo) []rowset.ColumnInfo {
	seen := make(map[string]bool)
	var out []rowset.ColumnInfo
	add := func(name string, c rowset.ColumnInfo) {
		if seen[name] {
			return
		}
		seen[name] = true
		c.Name = name
		out = append(out, c)
	}
	for _, c := range left {
		add(leftTable+"."+c.Name, c)
	}
	for _, c := range right {
		add(rightTable+"."+c.Name, c)
	}
	for _, c := range left {
		add(c.Name, c)
	}
	for _, c := range right {
		add(c.Name, c)
	}
	return out
}
