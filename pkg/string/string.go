package string

import (
	"strings"
)

// TrimStrings trims surrounding whitespace in place.
func TrimStrings(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}

// TrimSlice trims every element in place and drops the empty ones.
func TrimSlice(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeEmail trims and lower-cases an address so that lookups keyed by
// email are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CollapseSpaces trims and folds internal whitespace runs to one space, so
// "John  Smith" and "John Smith" hit the same duplicate-guard key.
func CollapseSpaces(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
