package models

import "strings"

// Division is the competition bracket a team competes in.
type Division string

const (
	DivisionA Division = "A"
	DivisionB Division = "B"
	DivisionC Division = "C"
)

// Divisions lists every division in canonical order.
var Divisions = []Division{DivisionA, DivisionB, DivisionC}

func (d Division) String() string { return string(d) }

// Valid reports whether d is one of the known divisions.
func (d Division) Valid() bool {
	switch d {
	case DivisionA, DivisionB, DivisionC:
		return true
	default:
		return false
	}
}

// ParseDivision converts a trimmed division letter into a Division.
func ParseDivision(s string) (Division, error) {
	d := Division(strings.TrimSpace(s))
	if !d.Valid() {
		allowed := make([]string, len(Divisions))
		for i, div := range Divisions {
			allowed[i] = string(div)
		}
		return "", &EnumError{Field: "Division", Value: s, Allowed: allowed}
	}
	return d, nil
}
