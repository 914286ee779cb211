package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

func TestProjectAppliesAliasAsOutputKey(t *testing.T) {
	rows := []rowset.Row{{"id": "svc-1", "name": "api-gateway"}}
	columns := []rowset.ColumnInfo{{Name: "id", Type: rowset.TypeString}, {Name: "name", Type: rowset.TypeString}}
	proj := []statement.Column{{Name: "name", Alias: "service_name"}}

	outRows, outColumns := project(rows, columns, proj)
	require.Equal(t, "api-gateway", outRows[0]["service_name"])
	require.Len(t, outColumns, 1)
	require.Equal(t, "service_name", outColumns[0].Name)
}

func TestProjectReorderingPermutesColumnsIdentically(t *testing.T) {
	rows := []rowset.Row{{"id": "svc-1", "name": "api-gateway"}}
	columns := []rowset.ColumnInfo{{Name: "id"}, {Name: "name"}}

	_, outA := project(rows, columns, []statement.Column{{Name: "id"}, {Name: "name"}})
	_, outB := project(rows, columns, []statement.Column{{Name: "name"}, {Name: "id"}})

	require.Equal(t, []string{"id", "name"}, []string{outA[0].Name, outA[1].Name})
	require.Equal(t, []string{"name", "id"}, []string{outB[0].Name, outB[1].Name})
}
