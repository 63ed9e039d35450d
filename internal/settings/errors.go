package settings

import (
	"errors"
	"fmt"
)

// ErrConfigWrite is matched by every ConfigWriteError.
var ErrConfigWrite = errors.New("radio configuration write failed")

// ConfigWriteError reports a radio setter that rejected a configuration.
type ConfigWriteError struct {
	Subsystem string // "opmode", "station", "softap", "connect"
	Err       error
}

func (e *ConfigWriteError) Error() string {
	return fmt.Sprintf("failed to write %s configuration: %v", e.Subsystem, e.Err)
}

func (e *ConfigWriteError) Unwrap() []error {
	return []error{ErrConfigWrite, e.Err}
}

// IsConfigWrite reports whether err contains a ConfigWriteError.
func IsConfigWrite(err error) bool {
	return errors.Is(err, ErrConfigWrite)
}
