package vra

import (
	"strconv"
	"strings"
)

// QueryOptions are the listing options appended to a request URL.
//
// Options are serialized in a fixed order: withExtendedData, withOperations,
// $filter, $orderby, limit, page. Unset options are omitted.
type QueryOptions struct {
	WithExtendedData bool
	WithOperations   bool
	Filters          []string
	OrderBy          string
	Descending       bool
	Limit            int
	Page             int
}

// IsZero reports whether no option is set.
func (q *QueryOptions) IsZero() bool {
	return q == nil || q.Encode() == ""
}

// Encode renders the options as a raw query string without a leading '?'.
//
// Filters are OData expressions using '+' for spaces; they are joined with
// "+and+". Literal spaces and query delimiters inside a filter are escaped,
// and so is a '+' inside a quoted string literal.
func (q *QueryOptions) Encode() string {
	if q == nil {
		return ""
	}

	parts := make([]string, 0, 6)

	if q.WithExtendedData {
		parts = append(parts, "withExtendedData=true")
	}

	if q.WithOperations {
		parts = append(parts, "withOperations=true")
	}

	if len(q.Filters) > 0 {
		filters := make([]string, len(q.Filters))
		for i, filter := range q.Filters {
			filters[i] = escapeFilter(filter)
		}

		parts = append(parts, "$filter="+strings.Join(filters, "+and+"))
	}

	if q.OrderBy != "" {
		orderBy := "$orderby=" + q.OrderBy
		if q.Descending {
			orderBy += "+desc"
		}

		parts = append(parts, orderBy)
	}

	if q.Limit > 0 {
		parts = append(parts, "limit="+strconv.Itoa(q.Limit))
	}

	if q.Page > 0 {
		parts = append(parts, "page="+strconv.Itoa(q.Page))
	}

	return strings.Join(parts, "&")
}

// escapeFilter percent-encodes the characters of filter that would break the
// raw query string.
func escapeFilter(filter string) string {
	var b strings.Builder

	inLiteral := false

	for _, r := range filter {
		switch r {
		case '\'':
			inLiteral = !inLiteral
			b.WriteRune(r)
		case '+':
			if inLiteral {
				b.WriteString("%2B")
			} else {
				b.WriteRune(r)
			}
		case '%':
			b.WriteString("%25")
		case ' ':
			b.WriteString("%20")
		case '&':
			b.WriteString("%26")
		case '#':
			b.WriteString("%23")
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// quoteLiteral renders value as an OData string literal.
func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// EqFilter builds an equality filter expression.
func EqFilter(field, value string) string {
	return field + "+eq+" + quoteLiteral(value)
}

// SearchFilter builds the case-insensitive substring predicate for term.
func SearchFilter(field, term string) string {
	return "substringof(" + quoteLiteral(strings.ToLower(term)) + ", tolower(" + field + "))"
}
