package executor

import (
	"sort"

	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

// orderRows applies a stable sort in reverse order of keys so the
// first ORDER BY key is the primary sort; equal keys preserve
// pre-sort order.
func orderRows(rows []rowset.Row, terms []statement.OrderTerm) []rowset.Row {
	out := append([]rowset.Row(nil), rows...)
	for i := len(terms) - 1; i >= 0; i-- {
		term := terms[i]
		sort.SliceStable(out, func(a, b int) bool {
			av, _ := lookupField(out[a], term.Field)
			bv, _ := lookupField(out[b], term.Field)
			cmp := compareValues(av, bv)
			if term.Direction == statement.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return out
}
