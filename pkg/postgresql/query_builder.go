package postgresql

import (
	"fmt"
	"strings"
)

// bindPlaceholders replaces each ? in condition with the next $n placeholder.
func bindPlaceholders(condition string, counter *int, argCount int) string {
	for range argCount {
		*counter++
		condition = strings.Replace(condition, "?", fmt.Sprintf("$%d", *counter), 1)
	}
	return condition
}

// queryBuilder implements QueryBuilder interface
type queryBuilder struct {
	selectCols  []string
	fromTable   string
	whereCond   []string
	whereArgs   []any
	orderByCols []string
	limitVal    *int
	offsetVal   *int
	forUpdate   bool
	argCounter  int
}

// NewQueryBuilder creates a new query builder
func NewQueryBuilder() QueryBuilder {
	return &queryBuilder{}
}

func (qb *queryBuilder) Select(columns ...string) QueryBuilder {
	qb.selectCols = append(qb.selectCols, columns...)
	return qb
}

func (qb *queryBuilder) From(table string) QueryBuilder {
	qb.fromTable = table
	return qb
}

// Where appends an AND-ed condition. Placeholders are written as ? and
// rewritten to PostgreSQL $n style.
func (qb *queryBuilder) Where(condition string, args ...any) QueryBuilder {
	qb.whereCond = append(qb.whereCond, bindPlaceholders(condition, &qb.argCounter, len(args)))
	qb.whereArgs = append(qb.whereArgs, args...)
	return qb
}

func (qb *queryBuilder) OrderBy(column string, desc ...bool) QueryBuilder {
	order := "ASC"
	if len(desc) > 0 && desc[0] {
		order = "DESC"
	}
	qb.orderByCols = append(qb.orderByCols, fmt.Sprintf("%s %s", column, order))
	return qb
}

// OrderByRaw appends an ordering expression as is, e.g. "CASE ... END".
func (qb *queryBuilder) OrderByRaw(expression string) QueryBuilder {
	qb.orderByCols = append(qb.orderByCols, expression)
	return qb
}

func (qb *queryBuilder) Limit(limit int) QueryBuilder {
	qb.limitVal = &limit
	return qb
}

func (qb *queryBuilder) Offset(offset int) QueryBuilder {
	qb.offsetVal = &offset
	return qb
}

func (qb *queryBuilder) ForUpdate() QueryBuilder {
	qb.forUpdate = true
	return qb
}

func (qb *queryBuilder) Build() (string, []any) {
	var query strings.Builder
	counter := qb.argCounter

	query.WriteString("SELECT ")
	if len(qb.selectCols) == 0 {
		query.WriteString("*")
	} else {
		query.WriteString(strings.Join(qb.selectCols, ", "))
	}

	if qb.fromTable != "" {
		query.WriteString(" FROM ")
		query.WriteString(qb.fromTable)
	}

	if len(qb.whereCond) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(qb.whereCond, " AND "))
	}

	if len(qb.orderByCols) > 0 {
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(qb.orderByCols, ", "))
	}

	args := make([]any, 0, len(qb.whereArgs)+2)
	args = append(args, qb.whereArgs...)

	if qb.limitVal != nil {
		counter++
		query.WriteString(fmt.Sprintf(" LIMIT $%d", counter))
		args = append(args, *qb.limitVal)
	}

	if qb.offsetVal != nil {
		counter++
		query.WriteString(fmt.Sprintf(" OFFSET $%d", counter))
		args = append(args, *qb.offsetVal)
	}

	if qb.forUpdate {
		query.WriteString(" FOR UPDATE")
	}

	return query.String(), args
}

func (qb *queryBuilder) Reset() QueryBuilder {
	return NewQueryBuilder()
}

// updateBuilder implements UpdateBuilder interface
type updateBuilder struct {
	table      string
	setCols    []string
	setArgs    []any
	whereCond  []string
	whereArgs  []any
	returning  []string
	argCounter int
}

// NewUpdateBuilder creates a new update builder
func NewUpdateBuilder() UpdateBuilder {
	return &updateBuilder{}
}

func (ub *updateBuilder) Table(table string) UpdateBuilder {
	ub.table = table
	return ub
}

// Set must be called before any Where so that SET placeholders come first.
func (ub *updateBuilder) Set(column string, value any) UpdateBuilder {
	ub.argCounter++
	ub.setCols = append(ub.setCols, fmt.Sprintf("%s = $%d", column, ub.argCounter))
	ub.setArgs = append(ub.setArgs, value)
	return ub
}

func (ub *updateBuilder) Where(condition string, args ...any) UpdateBuilder {
	ub.whereCond = append(ub.whereCond, bindPlaceholders(condition, &ub.argCounter, len(args)))
	ub.whereArgs = append(ub.whereArgs, args...)
	return ub
}

func (ub *updateBuilder) Returning(columns ...string) UpdateBuilder {
	ub.returning = columns
	return ub
}

func (ub *updateBuilder) Build() (string, []any) {
	var query strings.Builder

	query.WriteString("UPDATE ")
	query.WriteString(ub.table)
	query.WriteString(" SET ")
	query.WriteString(strings.Join(ub.setCols, ", "))

	if len(ub.whereCond) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(ub.whereCond, " AND "))
	}

	if len(ub.returning) > 0 {
		query.WriteString(" RETURNING ")
		query.WriteString(strings.Join(ub.returning, ", "))
	}

	args := make([]any, 0, len(ub.setArgs)+len(ub.whereArgs))
	args = append(args, ub.setArgs...)
	args = append(args, ub.whereArgs...)

	return query.String(), args
}

func (ub *updateBuilder) Reset() UpdateBuilder {
	return NewUpdateBuilder()
}
