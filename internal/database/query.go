package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Query builds a PostgREST query string. Filters are appended in call order
// so generated URLs are deterministic.
type Query struct {
	parts []string
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

func (q *Query) add(column, op, value string) *Query {
	q.parts = append(q.parts, url.QueryEscape(column)+"="+url.QueryEscape(op+"."+value))
	return q
}

// Select restricts the returned columns.
func (q *Query) Select(columns string) *Query {
	q.parts = append(q.parts, "select="+url.QueryEscape(columns))
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column, value string) *Query { return q.add(column, "eq", value) }

// Neq filters rows where column does not equal value.
func (q *Query) Neq(column, value string) *Query { return q.add(column, "neq", value) }

// Gt filters rows where column is greater than value.
func (q *Query) Gt(column, value string) *Query { return q.add(column, "gt", value) }

// Gte filters rows where column is at least value.
func (q *Query) Gte(column, value string) *Query { return q.add(column, "gte", value) }

// Lt filters rows where column is less than value.
func (q *Query) Lt(column, value string) *Query { return q.add(column, "lt", value) }

// Lte filters rows where column is at most value.
func (q *Query) Lte(column, value string) *Query { return q.add(column, "lte", value) }

// Is filters on null / true / false.
func (q *Query) Is(column, value string) *Query { return q.add(column, "is", value) }

// Ilike filters with a case-insensitive pattern; use * as the wildcard.
func (q *Query) Ilike(column, pattern string) *Query { return q.add(column, "ilike", pattern) }

// In filters rows where column is one of values.
func (q *Query) In(column string, values []string) *Query {
	return q.add(column, "in", "("+strings.Join(values, ",")+")")
}

// Contains filters array columns containing all values.
func (q *Query) Contains(column string, values []string) *Query {
	return q.add(column, "cs", "{"+strings.Join(values, ",")+"}")
}

// Or adds a disjunction of raw PostgREST conditions, e.g.
// "email.ilike.*x*,first_name.ilike.*x*".
func (q *Query) Or(conditions string) *Query {
	q.parts = append(q.parts, "or="+url.QueryEscape("("+conditions+")"))
	return q
}

// Order sorts by column; descending when desc is true.
func (q *Query) Order(column string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.parts = append(q.parts, "order="+url.QueryEscape(column+"."+dir))
	return q
}

// Limit caps the number of rows returned.
func (q *Query) Limit(n int) *Query {
	q.parts = append(q.parts, fmt.Sprintf("limit=%d", n))
	return q
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	q.parts = append(q.parts, fmt.Sprintf("offset=%d", n))
	return q
}

// Encode renders the query string without a leading "?".
func (q *Query) Encode() string {
	return strings.Join(q.parts, "&")
}
