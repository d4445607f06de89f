package db

import (
	"fmt"
	"strings"
)

// TagFilter builds an exact-match TAG pre-filter clause with value escaping.
func TagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

// NumericMin builds a NUMERIC pre-filter clause with an inclusive lower bound.
func NumericMin(key string, minVal float64) string {
	return fmt.Sprintf("@%s:[%g +inf]", key, minVal)
}

// AndFilters joins clauses with implicit AND semantics, skipping empty ones.
func AndFilters(clauses ...string) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

// tagEscaper escapes FT.SEARCH query syntax characters inside TAG values.
var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
