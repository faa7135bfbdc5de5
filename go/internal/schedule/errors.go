package schedule

import (
	"fmt"
	"strings"
)

// ConfigError reports a schedule document that cannot be served. It names the
// tournament and event it was found in when those are known.
type ConfigError struct {
	Tournament string
	Event      string
	Err        error
}

func (e *ConfigError) Error() string {
	var where []string
	if e.Tournament != "" {
		where = append(where, fmt.Sprintf("tournament '%s'", e.Tournament))
	}
	if e.Event != "" {
		where = append(where, fmt.Sprintf("event '%s'", e.Event))
	}
	if len(where) == 0 {
		return fmt.Sprintf("invalid schedule: %v", e.Err)
	}
	return fmt.Sprintf("invalid schedule (%s): %v", strings.Join(where, ", "), e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
