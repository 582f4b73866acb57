package internal

import "strings"

type whereFragment struct {
	combinator string // "AND" or "OR"; ignored for the first fragment
	condition  string
}

// SelectStatementBuilder is a mutable, single-use assembler of SELECT
// statements. It performs structural assembly only: no fragment is
// escaped, quoted or parameterized here. Callers are fully responsible
// for ensuring every fragment is a constant, a validated identifier, or
// a properly represented literal; the field-type layer owns that
// safety, not the builder.
type SelectStatementBuilder struct {
	columns []string
	from    string
	joins   []string
	wheres  []whereFragment
	orders  []string
}

// Select starts a new statement with the given column expressions. With
// no columns the statement emits SELECT *.
func Select(columns ...string) *SelectStatementBuilder {
	b := &SelectStatementBuilder{}
	return b.Columns(columns...)
}

// Columns accumulates additional column expressions.
func (b *SelectStatementBuilder) Columns(columns ...string) *SelectStatementBuilder {
	for _, c := range columns {
		if strings.TrimSpace(c) == "" {
			continue
		}
		b.columns = append(b.columns, c)
	}
	return b
}

// From sets the single FROM target (table name, optionally aliased).
func (b *SelectStatementBuilder) From(tableExpression string) *SelectStatementBuilder {
	b.from = tableExpression
	return b
}

// Join appends an INNER JOIN clause. Joins render in call order.
func (b *SelectStatementBuilder) Join(tableExpression, on string) *SelectStatementBuilder {
	return b.joinKind("INNER JOIN", tableExpression, on)
}

// LeftJoin appends a LEFT JOIN clause.
func (b *SelectStatementBuilder) LeftJoin(tableExpression, on string) *SelectStatementBuilder {
	return b.joinKind("LEFT JOIN", tableExpression, on)
}

func (b *SelectStatementBuilder) joinKind(kind, tableExpression, on string) *SelectStatementBuilder {
	if strings.TrimSpace(tableExpression) == "" {
		return b
	}
	b.joins = append(b.joins, kind+" "+tableExpression+" ON "+on)
	return b
}

// AndWhere appends a boolean fragment joined with AND. Blank fragments
// are silently dropped.
func (b *SelectStatementBuilder) AndWhere(condition string) *SelectStatementBuilder {
	return b.where("AND", condition)
}

// OrWhere appends a boolean fragment joined with OR. Blank fragments
// are silently dropped.
func (b *SelectStatementBuilder) OrWhere(condition string) *SelectStatementBuilder {
	return b.where("OR", condition)
}

func (b *SelectStatementBuilder) where(combinator, condition string) *SelectStatementBuilder {
	if strings.TrimSpace(condition) == "" {
		return b
	}
	b.wheres = append(b.wheres, whereFragment{combinator: combinator, condition: condition})
	return b
}

// OrderBy accumulates comma-joined ORDER BY expressions. Blank
// expressions are dropped.
func (b *SelectStatementBuilder) OrderBy(expression string) *SelectStatementBuilder {
	if strings.TrimSpace(expression) == "" {
		return b
	}
	b.orders = append(b.orders, expression)
	return b
}

// Build renders the statement, omitting any clause whose contents are
// empty.
func (b *SelectStatementBuilder) Build() string {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	if len(b.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.columns, ", "))
	}

	if b.from != "" {
		sb.WriteString(" FROM ")
		sb.WriteString(b.from)
	}

	for _, join := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(join)
	}

	for i, w := range b.wheres {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" ")
			sb.WriteString(w.combinator)
			sb.WriteString(" ")
		}
		sb.WriteString(w.condition)
	}

	if len(b.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orders, ", "))
	}

	return strings.TrimSpace(sb.String())
}
