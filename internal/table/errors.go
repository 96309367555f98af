package table

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks an operation invoked with incomplete or invalid
// configuration. Such an operation produces no output at all.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError describes which operation refused to run and why.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s", e.Op, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Configf builds a ConfigurationError with a formatted reason.
func Configf(op, format string, args ...any) error {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
