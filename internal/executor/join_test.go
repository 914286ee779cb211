package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

func TestMergeRowsQualifiesBothSidesAndLeftWinsUnqualified(t *testing.T) {
	left := rowset.Row{"id": "svc-1", "name": "api-gateway"}
	right := rowset.Row{"id": "dep-1", "service_id": "svc-1"}

	merged := mergeRows("services", "deployments", left, right)

	require.Equal(t, "svc-1", merged["services.id"])
	require.Equal(t, "dep-1", merged["deployments.id"])
	require.Equal(t, "svc-1", merged["id"], "left side wins the unqualified collision")
	require.Equal(t, "svc-1", merged["service_id"])
}

func TestResolveJoinFieldQualifiedAndBare(t *testing.T) {
	left := rowset.Row{"id": "svc-1"}
	right := rowset.Row{"service_id": "svc-1"}

	v, ok := resolveJoinField("services.id", left, right, "services", "deployments")
	require.True(t, ok)
	require.Equal(t, "svc-1", v)

	v, ok = resolveJoinField("service_id", left, right, "services", "deployments")
	require.True(t, ok)
	require.Equal(t, "svc-1", v)
}

func TestEvaluateJoinConditionEquality(t *testing.T) {
	left := rowset.Row{"id": "svc-1"}
	right := rowset.Row{"service_id": "svc-1"}
	cond := statement.JoinCondition{LeftField: "services.id", Op: statement.OpEq, RightField: "deployments.service_id"}
	require.True(t, evaluateJoinCondition(left, right, "services", "deployments", cond))
}

func TestSplitQualified(t *testing.T) {
	table, col := splitQualified("services.id")
	require.Equal(t, "services", table)
	require.Equal(t, "id", col)

	table, col = splitQualified("id")
	require.Equal(t, "", table)
	require.Equal(t, "id", col)
}

func TestMergeColumnsDeduplicatesByFinalName(t *testing.T) {
	left := []rowset.ColumnInfo{{Name: "id"}}
	right := []rowset.ColumnInfo{{Name: "id"}}
	cols := mergeColumns("services", "deployments", left, right)

	names := make(map[string]bool)
	for _, c := range cols {
		names[c.Name] = true
	}
	require.True(t, names["services.id"])
	require.True(t, names["deployments.id"])
	require.True(t, names["id"], "unqualified left id should win first insert")
}
