package executor

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

// aggregate groups rows by the composite string key formed by joining
// stringified grouping values with "|" (null maps to "NULL"); without
// groupBy, one row is emitted holding only the aggregate values.
// With groupBy, non-aggregated, non-grouped projected columns use the
// group's first row rather than rejecting the query.
func aggregate(rows []rowset.Row, columns []statement.Column, groupBy []string) ([]rowset.Row, []rowset.ColumnInfo) {
	type group struct {
		key       string
		firstRow  rowset.Row
		rows      []rowset.Row
	}

	groups := make(map[string]*group)
	var order []string

	for _, row := range rows {
		key := groupKey(row, groupBy)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, firstRow: row}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, row)
	}

	if len(groups) == 0 && len(groupBy) == 0 {
		// COUNT(*) etc. over zero rows still emits one row.
		groups[""] = &group{key: "", firstRow: rowset.Row{}}
		order = append(order, "")
	}

	sort.Strings(order)

	outRows := make([]rowset.Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out := rowset.Row{}
		for _, gb := range groupBy {
			v, _ := lookupField(g.firstRow, gb)
			out[gb] = v
		}
		for _, col := range columns {
			if col.Aggregate != "" {
				out[col.OutputName()] = computeAggregate(g.rows, col)
				continue
			}
			if col.Name == "*" {
				continue
			}
			if len(groupBy) == 0 || contains(groupBy, col.Name) {
				continue
			}
			v, _ := lookupField(g.firstRow, col.Name)
			out[col.OutputName()] = v
		}
		outRows = append(outRows, out)
	}

	outColumns := make([]rowset.ColumnInfo, 0, len(columns)+len(groupBy))
	for _, gb := range groupBy {
		outColumns = append(outColumns, rowset.ColumnInfo{Name: gb, Type: rowset.TypeString})
	}
	for _, col := range columns {
		if col.Aggregate == "" && (col.Name == "*" || len(groupBy) == 0 || contains(groupBy, col.Name)) {
			continue
		}
		outColumns = append(outColumns, rowset.ColumnInfo{Name: col.OutputName(), Type: rowset.TypeNumber})
	}

	return outRows, outColumns
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func groupKey(row rowset.Row, groupBy []string) string {
	if len(groupBy) == 0 {
		return ""
	}
	parts := make([]string, len(groupBy))
	for i, field := range groupBy {
		v, ok := lookupField(row, field)
		if !ok || v == nil {
			parts[i] = "NULL"
			continue
		}
		parts[i] = toString(v)
	}
	return strings.Join(parts, "|")
}

// computeAggregate implements the per-aggregate semantics. SUM/AVG
// accumulate with decimal.Decimal internally to avoid
// float64 drift over long columns of cost-like values, then surface a
// plain float64 to stay within the public Row scalar surface.
func computeAggregate(rows []rowset.Row, col statement.Column) interface{} {
	switch col.Aggregate {
	case statement.AggCount:
		if col.Name == "*" {
			return int64(len(rows))
		}
		var count int64
		for _, row := range rows {
			if v, ok := lookupField(row, col.Name); ok && v != nil {
				count++
			}
		}
		return count
	case statement.AggSum:
		sum := decimal.Zero
		for _, row := range rows {
			v, ok := lookupField(row, col.Name)
			if !ok || v == nil {
				continue
			}
			if f, ok := toFloat(v); ok {
				sum = sum.Add(decimal.NewFromFloat(f))
			}
		}
		f, _ := sum.Float64()
		return f
	case statement.AggAvg:
		sum := decimal.Zero
		var count int64
		for _, row := range rows {
			v, ok := lookupField(row, col.Name)
			if !ok || v == nil {
				continue
			}
			if f, ok := toFloat(v); ok {
				sum = sum.Add(decimal.NewFromFloat(f))
				count++
			}
		}
		if count == 0 {
			return nil
		}
		avg := sum.Div(decimal.NewFromInt(count))
		f, _ := avg.Float64()
		return f
	case statement.AggMin:
		return minMax(rows, col.Name, true)
	case statement.AggMax:
		return minMax(rows, col.Name, false)
	default:
		return nil
	}
}

func minMax(rows []rowset.Row, field string, wantMin bool) interface{} {
	var best interface{}
	hasBest := false
	for _, row := range rows {
		v, ok := lookupField(row, field)
		if !ok || v == nil {
			continue
		}
		if !hasBest {
			best = v
			hasBest = true
			continue
		}
		cmp := compareValues(v, best)
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = v
		}
	}
	return best
}
