// Package similarity scores how alike two names are.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns 1 - editDistance/maxLen over the lower-cased inputs,
// in [0,1]. Lengths are counted in runes. Two empty strings are identical.
func Similarity(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	maxLen := max(utf8.RuneCountInString(la), utf8.RuneCountInString(lb))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(la, lb))/float64(maxLen)
}
