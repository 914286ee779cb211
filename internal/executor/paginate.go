package executor

import "github.com/infraql/infraql/internal/rowset"

// paginate applies offset then limit.
func paginate(rows []rowset.Row, offset, limit *int) []rowset.Row {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}
	if start > len(rows) {
		return []rowset.Row{}
	}
	rows = rows[start:]

	if limit != nil && *limit < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}
