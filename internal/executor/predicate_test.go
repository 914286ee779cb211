package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/infraql/infraql/internal/rowset"
	"github.com/infraql/infraql/internal/statement"
)

func TestEvaluateConditionNullNeverMatches(t *testing.T) {
	row := rowset.Row{"status": nil}
	cond := statement.Condition{Field: "status", Op: statement.OpEq, Value: "active"}
	require.False(t, evaluateCondition(row, cond))
}

func TestEvaluateConditionMissingFieldIsFalse(t *testing.T) {
	row := rowset.Row{}
	cond := statement.Condition{Field: "status", Op: statement.OpEq, Value: "active"}
	require.False(t, evaluateCondition(row, cond))
}

func TestEvaluateConditionNumericComparison(t *testing.T) {
	row := rowset.Row{"cpu_usage": 45.2}
	require.True(t, evaluateCondition(row, statement.Condition{Field: "cpu_usage", Op: statement.OpGt, Value: int64(10)}))
	require.False(t, evaluateCondition(row, statement.Condition{Field: "cpu_usage", Op: statement.OpLt, Value: int64(10)}))
}

func TestEvaluateConditionLikeIsCaseInsensitiveSubstring(t *testing.T) {
	row := rowset.Row{"name": "API-Gateway"}
	require.True(t, evaluateCondition(row, statement.Condition{Field: "name", Op: statement.OpLike, Value: "gateway"}))
	require.False(t, evaluateCondition(row, statement.Condition{Field: "name", Op: statement.OpLike, Value: "zzz"}))
}

func TestEvaluateConditionIn(t *testing.T) {
	row := rowset.Row{"status": "degraded"}
	cond := statement.Condition{Field: "status", Op: statement.OpIn, Value: []interface{}{"active", "degraded"}}
	require.True(t, evaluateCondition(row, cond))
}

func TestEvaluateConditionBetween(t *testing.T) {
	row := rowset.Row{"cpu_usage": int64(50)}
	cond := statement.Condition{Field: "cpu_usage", Op: statement.OpBetween, Value: int64(10), SecondValue: int64(90)}
	require.True(t, evaluateCondition(row, cond))

	cond.Value, cond.SecondValue = int64(60), int64(90)
	require.False(t, evaluateCondition(row, cond))
}

func TestEvaluatePredicateOrCombinator(t *testing.T) {
	row := rowset.Row{"status": "degraded"}
	pred := &statement.Predicate{
		Combinator: statement.CombinatorOr,
		Conditions: []statement.Condition{
			{Field: "status", Op: statement.OpEq, Value: "active"},
			{Field: "status", Op: statement.OpEq, Value: "degraded"},
		},
	}
	require.True(t, evaluatePredicate(row, pred))
}

func TestEvaluatePredicateAndCombinator(t *testing.T) {
	row := rowset.Row{"status": "active", "environment": "staging"}
	pred := &statement.Predicate{
		Combinator: statement.CombinatorAnd,
		Conditions: []statement.Condition{
			{Field: "status", Op: statement.OpEq, Value: "active"},
			{Field: "environment", Op: statement.OpEq, Value: "production"},
		},
	}
	require.False(t, evaluatePredicate(row, pred))
}

func TestLookupFieldFallsBackToUnqualified(t *testing.T) {
	row := rowset.Row{"id": "svc-1"}
	v, ok := lookupField(row, "services.id")
	require.True(t, ok)
	require.Equal(t, "svc-1", v)
}

func TestCompareValuesBoolFallsBackToStringForm(t *testing.T) {
	require.Equal(t, 0, compareValues(true, true))
	require.NotEqual(t, 0, compareValues(true, false))
}
