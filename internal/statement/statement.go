// Package statement defines the immutable statement tree produced by
// the parser and consumed by the executor: an open tagged variant with
// one struct per statement kind, per the "no inheritance" design note.
package statement

// Kind tags which concrete statement a Statement carries.
type Kind int

const (
	KindSelect Kind = iota
	KindTrace
	KindDescribe
	KindShow
	KindCache
)

// Statement is produced by the parser and discarded after execution;
// exactly one of the typed fields is non-nil, selected by Kind.
type Statement struct {
	Kind     Kind
	Select   *Select
	Trace    *Trace
	Describe *Describe
	Show     *Show
	Cache    *Cache
}

// AggregateFunc names one of the five supported aggregate functions.
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// Column is one projection item: "*", a bare identifier, "table.column",
// or an aggregate call, with an optional output alias.
type Column struct {
	Name      string
	Alias     string
	Aggregate AggregateFunc // empty if this is not an aggregate projection
}

// HasAlias reports whether Alias was set by the query text.
func (c Column) HasAlias() bool { return c.Alias != "" }

// OutputName is the key this column occupies in emitted rows: the
// alias if present, else "agg(column)" for aggregates, else Name.
func (c Column) OutputName() string {
	if c.Alias != "" {
		return c.Alias
	}
	if c.Aggregate != "" {
		return string(c.Aggregate) + "(" + c.Name + ")"
	}
	return c.Name
}

// JoinKind is one of the three supported join types.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
)

// CompareOp is a binary comparison/membership operator.
type CompareOp string

const (
	OpEq      CompareOp = "="
	OpNeq     CompareOp = "!="
	OpGt      CompareOp = ">"
	OpLt      CompareOp = "<"
	OpGte     CompareOp = ">="
	OpLte     CompareOp = "<="
	OpLike    CompareOp = "LIKE"
	OpIn      CompareOp = "IN"
	OpBetween CompareOp = "BETWEEN"
)

// JoinCondition is the ON clause of a join: a comparison between two
// (possibly qualified) field references.
type JoinCondition struct {
	LeftField  string
	Op         CompareOp
	RightField string
}

// Join is one ordered JOIN clause.
type Join struct {
	Kind  JoinKind
	Table string
	On    JoinCondition
}

// Condition is one predicate leaf: field op value[, secondValue].
type Condition struct {
	Field       string
	Op          CompareOp
	Value       interface{}
	SecondValue interface{} // only set for BETWEEN; IN uses Value as a []interface{}
}

// Combinator joins the conditions of one Predicate.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Predicate is a flat list of conditions joined by a single
// combinator, shared by the WHERE and HAVING grammars.
type Predicate struct {
	Conditions []Condition
	Combinator Combinator
}

// OrderTerm is one ORDER BY key.
type OrderTerm struct {
	Field     string
	Direction Direction
}

// Direction is ascending or descending sort order.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Select is a SELECT statement.
type Select struct {
	Columns []Column
	From    string
	Joins   []Join
	Where   *Predicate
	GroupBy []string
	Having  *Predicate
	OrderBy []OrderTerm
	Limit   *int
	Offset  *int
}

// Trace is a TRACE statement: follow identifier=value across sources.
type Trace struct {
	Identifier string
	Value      interface{}
	Through    []string // named sources to fan out to; empty means all
}

// Describe is a DESCRIBE statement: schema of one table.
type Describe struct {
	Target string
}

// ShowTarget names what a SHOW statement catalogues.
type ShowTarget string

const (
	ShowTables  ShowTarget = "TABLES"
	ShowPlugins ShowTarget = "PLUGINS"
	ShowSources ShowTarget = "SOURCES"
)

// Show is a SHOW statement.
type Show struct {
	What ShowTarget
}

// CacheAction names a cache-control command.
type CacheAction string

const (
	CacheShow    CacheAction = "SHOW"
	CacheClear   CacheAction = "CLEAR"
	CacheSetTTL  CacheAction = "SET_TTL"
)

// Cache is a CACHE statement: SHOW/CLEAR/SET_TTL.
type Cache struct {
	Action    CacheAction
	Table     string // optional; empty means "all tables"/default TTL
	TTLMillis int64  // only meaningful for CacheSetTTL
}
