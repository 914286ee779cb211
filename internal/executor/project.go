package executor

import (
	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

// project rewrites rows to the explicit projection list, applying
// aliases as output keys. Re-ordering the projection list permutes the
// output columns and each row's keys identically.
func project(rows []rowset.Row, columns []rowset.ColumnInfo, proj []statement.Column) ([]rowset.Row, []rowset.ColumnInfo) {
	schemaByName := make(map[string]rowset.ColumnInfo, len(columns))
	for _, c := range columns {
		schemaByName[c.Name] = c
	}

	outColumns := make([]rowset.ColumnInfo, len(proj))
	for i, col := range proj {
		declared, ok := schemaByName[col.Name]
		outType := rowset.TypeString
		description := ""
		if ok {
			outType = declared.Type
			description = declared.Description
		}
		outColumns[i] = rowset.ColumnInfo{
			Name:        col.OutputName(),
			Type:        outType,
			Nullable:    ok && declared.Nullable,
			Description: description,
		}
	}

	outRows := make([]rowset.Row, len(rows))
	for i, row := range rows {
		out := make(rowset.Row, len(proj))
		for _, col := range proj {
			v, _ := lookupField(row, col.Name)
			out[col.OutputName()] = v
		}
		outRows[i] = out
	}

	return outRows, outColumns
}
