package domain

import (
	"strings"

	dErrors "guidinghand/pkg/domain-errors"
)

// Parish is one of the fourteen administrative regions used as the location
// taxonomy for both missing and found reports.
type Parish string

const (
	ParishKingston     Parish = "Kingston"
	ParishStAndrew     Parish = "St. Andrew"
	ParishStThomas     Parish = "St. Thomas"
	ParishPortland     Parish = "Portland"
	ParishStMary       Parish = "St. Mary"
	ParishStAnn        Parish = "St. Ann"
	ParishTrelawny     Parish = "Trelawny"
	ParishStJames      Parish = "St. James"
	ParishHanover      Parish = "Hanover"
	ParishWestmoreland Parish = "Westmoreland"
	ParishStElizabeth  Parish = "St. Elizabeth"
	ParishManchester   Parish = "Manchester"
	ParishClarendon    Parish = "Clarendon"
	ParishStCatherine  Parish = "St. Catherine"
)

var parishes = []Parish{
	ParishKingston, ParishStAndrew, ParishStThomas, ParishPortland,
	ParishStMary, ParishStAnn, ParishTrelawny, ParishStJames,
	ParishHanover, ParishWestmoreland, ParishStElizabeth, ParishManchester,
	ParishClarendon, ParishStCatherine,
}

// Parishes returns the taxonomy in its canonical order.
func Parishes() []Parish {
	out := make([]Parish, len(parishes))
	copy(out, parishes)
	return out
}

// ParseParish matches s case-insensitively against the taxonomy and returns
// the canonical spelling.
func ParseParish(s string) (Parish, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "parish is required")
	}
	for _, p := range parishes {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown parish: "+s)
}

func (p Parish) String() string { return string(p) }

func (p Parish) IsValid() bool {
	_, err := ParseParish(string(p))
	return err == nil
}
