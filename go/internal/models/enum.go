package models

import (
	"fmt"
	"strings"
)

// EnumError reports a value outside one of the closed sets in this package.
type EnumError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("Unrecognized %s value '%s' (should be one of %s)",
		e.Field, e.Value, strings.Join(e.Allowed, ", "))
}
