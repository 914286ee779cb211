// Package parserql implements a recursive-descent parser over the
// infraql token stream, producing a statement.Statement tree with one
// token of lookahead.
package parserql

import (
	"strconv"
	"strings"

	"github.com/infraql/infraql/internal/lexer"
	"github.com/infraql/infraql/internal/qerrors"
	"github.com/infraql/infraql/internal/statement"
)

// Parser holds a materialised token stream and a cursor.
type Parser struct {
	input  string
	tokens []lexer.Token
	pos    int
}

// Parse lexes and parses one statement from text.
func Parse(text string) (*statement.Statement, error) {
	tokens, err := lexer.Tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &Parser{input: text, tokens: tokens}
	return p.parseStatement()
}

// sourceText returns a token's spelling as written in the query text;
// keyword tokens otherwise carry their upper-cased form.
func (p *Parser) sourceText(t lexer.Token) string {
	return p.input[t.Offset : t.Offset+len(t.Text)]
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

// peekAt looks ahead n tokens beyond the current one without advancing.
func (p *Parser) peekAt(n int) lexer.Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[idx]
}

func (p *Parser) advance() lexer.Token {
	t := p.tokens[p.pos]
	if t.Kind != lexer.EOF {
		p.pos++
	}
	return t
}

// match consumes and returns true if the current token is one of kinds.
func (p *Parser) match(kinds ...lexer.Kind) bool {
	for _, k := range kinds {
		if p.peek().Kind == k {
			p.advance()
			return true
		}
	}
	return false
}

// consume requires the current token to be kind, else returns a
// parse-kind error carrying msg and the token's position.
func (p *Parser) consume(kind lexer.Kind, msg string) (lexer.Token, error) {
	if p.peek().Kind == kind {
		return p.advance(), nil
	}
	t := p.peek()
	return lexer.Token{}, qerrors.Parse(msg, t.Line, t.Column)
}

func (p *Parser) errorf(msg string) error {
	t := p.peek()
	return qerrors.Parse(msg, t.Line, t.Column)
}

func (p *Parser) parseStatement() (*statement.Statement, error) {
	switch p.peek().Kind {
	case lexer.SELECT:
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		return &statement.Statement{Kind: statement.KindSelect, Select: sel}, nil
	case lexer.TRACE:
		tr, err := p.parseTrace()
		if err != nil {
			return nil, err
		}
		return &statement.Statement{Kind: statement.KindTrace, Trace: tr}, nil
	case lexer.DESCRIBE:
		d, err := p.parseDescribe()
		if err != nil {
			return nil, err
		}
		return &statement.Statement{Kind: statement.KindDescribe, Describe: d}, nil
	case lexer.SHOW:
		// One-token lookahead: "SHOW CACHE" is a CACHE statement, not a
		// schema-catalogue SHOW.
		if p.peekAt(1).Kind == lexer.CACHE {
			p.advance() // SHOW
			c, err := p.parseCacheBody()
			if err != nil {
				return nil, err
			}
			return &statement.Statement{Kind: statement.KindCache, Cache: c}, nil
		}
		sh, err := p.parseShow()
		if err != nil {
			return nil, err
		}
		return &statement.Statement{Kind: statement.KindShow, Show: sh}, nil
	case lexer.CACHE:
		c, err := p.parseCache()
		if err != nil {
			return nil, err
		}
		return &statement.Statement{Kind: statement.KindCache, Cache: c}, nil
	default:
		return nil, p.errorf("expected SELECT, TRACE, DESCRIBE, SHOW, or CACHE")
	}
}

// --- SELECT ---

func (p *Parser) parseSelect() (*statement.Select, error) {
	if _, err := p.consume(lexer.SELECT, "expected SELECT"); err != nil {
		return nil, err
	}

	sel := &statement.Select{}

	cols, err := p.parseProjections()
	if err != nil {
		return nil, err
	}
	sel.Columns = cols

	if _, err := p.consume(lexer.FROM, "expected FROM"); err != nil {
		return nil, err
	}
	from, err := p.consume(lexer.IDENT, "expected table name after FROM")
	if err != nil {
		return nil, err
	}
	sel.From = from.Text

	joins, err := p.parseJoins()
	if err != nil {
		return nil, err
	}
	sel.Joins = joins

	if p.peek().Kind == lexer.WHERE {
		p.advance()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		sel.Where = pred
	}

	if p.peek().Kind == lexer.GROUP {
		p.advance()
		if _, err := p.consume(lexer.BY, "expected BY after GROUP"); err != nil {
			return nil, err
		}
		fields, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = fields
	}

	if p.peek().Kind == lexer.HAVING {
		p.advance()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		sel.Having = pred
	}

	if p.peek().Kind == lexer.ORDER {
		p.advance()
		if _, err := p.consume(lexer.BY, "expected BY after ORDER"); err != nil {
			return nil, err
		}
		terms, err := p.parseOrderTerms()
		if err != nil {
			return nil, err
		}
		sel.OrderBy = terms
	}

	if p.peek().Kind == lexer.LIMIT {
		p.advance()
		n, err := p.parseIntLiteral("expected integer after LIMIT")
		if err != nil {
			return nil, err
		}
		sel.Limit = &n
	}

	if p.peek().Kind == lexer.OFFSET {
		p.advance()
		n, err := p.parseIntLiteral("expected integer after OFFSET")
		if err != nil {
			return nil, err
		}
		sel.Offset = &n
	}

	return sel, nil
}

func (p *Parser) parseIntLiteral(msg string) (int, error) {
	t, err := p.consume(lexer.NUMBER, msg)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(t.Text)
	if convErr != nil {
		return 0, qerrors.Parse(msg, t.Line, t.Column)
	}
	return n, nil
}

func (p *Parser) parseProjections() ([]statement.Column, error) {
	var cols []statement.Column
	for {
		col, err := p.parseProjection()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.peek().Kind != lexer.COMMA {
			break
		}
		p.advance()
	}
	return cols, nil
}

func (p *Parser) parseProjection() (statement.Column, error) {
	var col statement.Column

	if p.peek().Kind == lexer.ASTERISK {
		p.advance()
		col.Name = "*"
	} else if agg, ok := aggregateKind(p.peek().Kind); ok {
		p.advance()
		if _, err := p.consume(lexer.LPAREN, "expected ( after aggregate function"); err != nil {
			return col, err
		}
		if p.peek().Kind == lexer.ASTERISK {
			p.advance()
			col.Name = "*"
		} else {
			name, err := p.parseQualifiedName()
			if err != nil {
				return col, err
			}
			col.Name = name
		}
		if _, err := p.consume(lexer.RPAREN, "expected ) after aggregate argument"); err != nil {
			return col, err
		}
		col.Aggregate = agg
	} else {
		name, err := p.parseQualifiedName()
		if err != nil {
			return col, err
		}
		col.Name = name
	}

	if p.peek().Kind == lexer.AS {
		p.advance()
		alias, err := p.parseAliasName()
		if err != nil {
			return col, err
		}
		col.Alias = alias
	}

	return col, nil
}

// parseQualifiedName parses ident('.'ident)? — used for both
// "table.column" projections and for names occurring where an
// aggregate keyword is also legal (HAVING field references aliases).
func (p *Parser) parseQualifiedName() (string, error) {
	first, err := p.parseNameToken()
	if err != nil {
		return "", err
	}
	if p.peek().Kind == lexer.DOT {
		p.advance()
		second, err := p.parseNameToken()
		if err != nil {
			return "", err
		}
		return first + "." + second, nil
	}
	return first, nil
}

// parseNameToken accepts an IDENT, or an aggregate keyword used as a
// bare name (alias or predicate field).
func (p *Parser) parseNameToken() (string, error) {
	t := p.peek()
	if t.Kind == lexer.IDENT {
		p.advance()
		return t.Text, nil
	}
	if lexer.IsAggregateKeyword(t.Kind) {
		p.advance()
		return p.sourceText(t), nil
	}
	return "", qerrors.Parse("expected identifier", t.Line, t.Column)
}

// parseAliasName accepts any identifier-like token, including
// aggregate keywords and other non-reserved keywords used as aliases.
func (p *Parser) parseAliasName() (string, error) {
	t := p.peek()
	if t.Kind == lexer.IDENT || lexer.IsAggregateKeyword(t.Kind) {
		p.advance()
		return p.sourceText(t), nil
	}
	return "", qerrors.Parse("expected alias name after AS", t.Line, t.Column)
}

func aggregateKind(k lexer.Kind) (statement.AggregateFunc, bool) {
	switch k {
	case lexer.COUNT:
		return statement.AggCount, true
	case lexer.SUM:
		return statement.AggSum, true
	case lexer.AVG:
		return statement.AggAvg, true
	case lexer.MIN:
		return statement.AggMin, true
	case lexer.MAX:
		return statement.AggMax, true
	}
	return "", false
}

// --- JOIN ---

func (p *Parser) parseJoins() ([]statement.Join, error) {
	var joins []statement.Join
	for {
		kind, ok, err := p.parseJoinKind()
		if err != nil {
			return nil, err
		}
		if !ok {
			return joins, nil
		}
		if _, err := p.consume(lexer.JOIN, "expected JOIN"); err != nil {
			return nil, err
		}
		table, err := p.consume(lexer.IDENT, "expected table name after JOIN")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.ON, "expected ON after join table"); err != nil {
			return nil, err
		}
		left, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		op, err := p.parseCompareOp()
		if err != nil {
			return nil, err
		}
		right, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		joins = append(joins, statement.Join{
			Kind:  kind,
			Table: table.Text,
			On:    statement.JoinCondition{LeftField: left, Op: op, RightField: right},
		})
	}
}

// parseJoinKind reports the join kind for an upcoming JOIN clause, or
// ok=false if the current token begins no join at all. A bare JOIN
// with no preceding INNER/LEFT/RIGHT is implicitly INNER.
func (p *Parser) parseJoinKind() (statement.JoinKind, bool, error) {
	switch p.peek().Kind {
	case lexer.INNER:
		p.advance()
		return statement.JoinInner, true, nil
	case lexer.LEFT:
		p.advance()
		p.match(lexer.OUTER)
		return statement.JoinLeft, true, nil
	case lexer.RIGHT:
		p.advance()
		p.match(lexer.OUTER)
		return statement.JoinRight, true, nil
	case lexer.JOIN:
		return statement.JoinInner, true, nil
	default:
		return "", false, nil
	}
}

func (p *Parser) parseCompareOp() (statement.CompareOp, error) {
	t := p.peek()
	switch t.Kind {
	case lexer.EQ:
		p.advance()
		return statement.OpEq, nil
	case lexer.NEQ:
		p.advance()
		return statement.OpNeq, nil
	case lexer.GT:
		p.advance()
		return statement.OpGt, nil
	case lexer.LT:
		p.advance()
		return statement.OpLt, nil
	case lexer.GTE:
		p.advance()
		return statement.OpGte, nil
	case lexer.LTE:
		p.advance()
		return statement.OpLte, nil
	default:
		return "", qerrors.Parse("expected comparison operator", t.Line, t.Column)
	}
}

// --- predicates (WHERE / HAVING) ---

// parsePredicate parses cond ((AND|OR) cond)*. Mixing AND and OR in
// one predicate is rejected outright rather than resolved by
// last-token-wins (see DESIGN.md).
func (p *Parser) parsePredicate() (*statement.Predicate, error) {
	pred := &statement.Predicate{Combinator: statement.CombinatorAnd}
	first, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	pred.Conditions = append(pred.Conditions, first)

	seenAnd, seenOr := false, false
	for p.peek().Kind == lexer.AND || p.peek().Kind == lexer.OR {
		t := p.advance()
		if t.Kind == lexer.AND {
			seenAnd = true
			pred.Combinator = statement.CombinatorAnd
		} else {
			seenOr = true
			pred.Combinator = statement.CombinatorOr
		}
		if seenAnd && seenOr {
			return nil, qerrors.Parse("mixed AND/OR combinators in a single predicate are not supported; split the query", t.Line, t.Column)
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		pred.Conditions = append(pred.Conditions, cond)
	}
	return pred, nil
}

func (p *Parser) parseCondition() (statement.Condition, error) {
	var cond statement.Condition
	field, err := p.parseQualifiedName()
	if err != nil {
		return cond, err
	}
	cond.Field = field

	switch p.peek().Kind {
	case lexer.BETWEEN:
		p.advance()
		lo, err := p.parseLiteral()
		if err != nil {
			return cond, err
		}
		if _, err := p.consume(lexer.AND, "expected AND in BETWEEN"); err != nil {
			return cond, err
		}
		hi, err := p.parseLiteral()
		if err != nil {
			return cond, err
		}
		cond.Op = statement.OpBetween
		cond.Value = lo
		cond.SecondValue = hi
		return cond, nil
	case lexer.IN:
		p.advance()
		if _, err := p.consume(lexer.LPAREN, "expected ( after IN"); err != nil {
			return cond, err
		}
		var values []interface{}
		for {
			v, err := p.parseLiteral()
			if err != nil {
				return cond, err
			}
			values = append(values, v)
			if p.peek().Kind != lexer.COMMA {
				break
			}
			p.advance()
		}
		if _, err := p.consume(lexer.RPAREN, "expected ) after IN list"); err != nil {
			return cond, err
		}
		cond.Op = statement.OpIn
		cond.Value = values
		return cond, nil
	case lexer.LIKE:
		p.advance()
		v, err := p.parseLiteral()
		if err != nil {
			return cond, err
		}
		cond.Op = statement.OpLike
		cond.Value = v
		return cond, nil
	default:
		op, err := p.parseCompareOp()
		if err != nil {
			return cond, err
		}
		v, err := p.parseLiteral()
		if err != nil {
			return cond, err
		}
		cond.Op = op
		cond.Value = v
		return cond, nil
	}
}

func (p *Parser) parseLiteral() (interface{}, error) {
	t := p.peek()
	switch t.Kind {
	case lexer.STRING:
		p.advance()
		return t.Text, nil
	case lexer.NUMBER:
		p.advance()
		if strings.Contains(t.Text, ".") {
			f, err := strconv.ParseFloat(t.Text, 64)
			if err != nil {
				return nil, qerrors.Parse("invalid numeric literal "+t.Text, t.Line, t.Column)
			}
			return f, nil
		}
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, qerrors.Parse("invalid numeric literal "+t.Text, t.Line, t.Column)
		}
		return n, nil
	case lexer.TRUE:
		p.advance()
		return true, nil
	case lexer.FALSE:
		p.advance()
		return false, nil
	default:
		return nil, qerrors.Parse("expected a literal value", t.Line, t.Column)
	}
}

// --- GROUP BY / ORDER BY ---

func (p *Parser) parseIdentList() ([]string, error) {
	var fields []string
	for {
		name, err := p.parseNameToken()
		if err != nil {
			return nil, err
		}
		fields = append(fields, name)
		if p.peek().Kind != lexer.COMMA {
			break
		}
		p.advance()
	}
	return fields, nil
}

func (p *Parser) parseOrderTerms() ([]statement.OrderTerm, error) {
	var terms []statement.OrderTerm
	for {
		name, err := p.parseNameToken()
		if err != nil {
			return nil, err
		}
		dir := statement.Asc
		if p.peek().Kind == lexer.ASC {
			p.advance()
		} else if p.peek().Kind == lexer.DESC {
			p.advance()
			dir = statement.Desc
		}
		terms = append(terms, statement.OrderTerm{Field: name, Direction: dir})
		if p.peek().Kind != lexer.COMMA {
			break
		}
		p.advance()
	}
	return terms, nil
}

// --- TRACE ---

func (p *Parser) parseTrace() (*statement.Trace, error) {
	if _, err := p.consume(lexer.TRACE, "expected TRACE"); err != nil {
		return nil, err
	}
	ident, err := p.consume(lexer.IDENT, "expected identifier name after TRACE")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.EQ, "expected = after TRACE identifier"); err != nil {
		return nil, err
	}
	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	tr := &statement.Trace{Identifier: ident.Text, Value: value}
	if p.peek().Kind == lexer.THROUGH {
		p.advance()
		sources, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		tr.Through = sources
	}
	return tr, nil
}

// --- DESCRIBE ---

func (p *Parser) parseDescribe() (*statement.Describe, error) {
	if _, err := p.consume(lexer.DESCRIBE, "expected DESCRIBE"); err != nil {
		return nil, err
	}
	target, err := p.consume(lexer.IDENT, "expected table name after DESCRIBE")
	if err != nil {
		return nil, err
	}
	return &statement.Describe{Target: target.Text}, nil
}

// --- SHOW ---

func (p *Parser) parseShow() (*statement.Show, error) {
	if _, err := p.consume(lexer.SHOW, "expected SHOW"); err != nil {
		return nil, err
	}
	t := p.peek()
	switch t.Kind {
	case lexer.TABLES:
		p.advance()
		return &statement.Show{What: statement.ShowTables}, nil
	case lexer.PLUGINS:
		p.advance()
		return &statement.Show{What: statement.ShowPlugins}, nil
	case lexer.SOURCES:
		p.advance()
		return &statement.Show{What: statement.ShowSources}, nil
	default:
		return nil, qerrors.Parse("expected TABLES, PLUGINS, or SOURCES after SHOW", t.Line, t.Column)
	}
}

// --- CACHE ---

func (p *Parser) parseCache() (*statement.Cache, error) {
	if _, err := p.consume(lexer.CACHE, "expected CACHE"); err != nil {
		return nil, err
	}
	return p.parseCacheBody()
}

// parseCacheBody parses the tail of a CACHE command, after the CACHE
// keyword (or after "SHOW" when disambiguating "SHOW CACHE") has been
// consumed.
func (p *Parser) parseCacheBody() (*statement.Cache, error) {
	t := p.peek()
	switch t.Kind {
	case lexer.SHOW:
		p.advance()
		return &statement.Cache{Action: statement.CacheShow}, nil
	case lexer.CLEAR:
		p.advance()
		c := &statement.Cache{Action: statement.CacheClear}
		if p.peek().Kind == lexer.IDENT {
			table := p.advance()
			c.Table = table.Text
		}
		return c, nil
	case lexer.SET:
		p.advance()
		if _, err := p.consume(lexer.TTL, "expected TTL after SET"); err != nil {
			return nil, err
		}
		c := &statement.Cache{Action: statement.CacheSetTTL}
		if p.peek().Kind == lexer.IDENT {
			table := p.advance()
			c.Table = table.Text
		}
		n, err := p.parseIntLiteral("expected TTL in milliseconds")
		if err != nil {
			return nil, err
		}
		c.TTLMillis = int64(n)
		return c, nil
	case lexer.CACHE:
		// "SHOW CACHE" path: the CACHE token itself still needs consuming,
		// and the statement is a cache SHOW.
		p.advance()
		return &statement.Cache{Action: statement.CacheShow}, nil
	default:
		return nil, qerrors.Parse("expected SHOW, CLEAR, or SET TTL after CACHE", t.Line, t.Column)
	}
}
