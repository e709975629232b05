package opal

import (
	"fmt"
	"time"
)

// ConfigError reports an invalid or inconsistent configuration. It is always
// detected before any integration step executes and is never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// NewConfigError returns a ConfigError for the given field.
func NewConfigError(field, format string, args ...interface{}) ConfigError {
	return ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StepFailure reports that the integrator could not satisfy the accuracy
// requirement within the configured step size and attempt bounds. It is fatal
// to the current run, but all previously accepted samples remain valid.
type StepFailure struct {
	DT       time.Time
	StepSize float64 // seconds, last attempted step
	Attempts uint
	Reason   string
}

func (e StepFailure) Error() string {
	return fmt.Sprintf("step failure at %s (h=%gs after %d attempts): %s", e.DT, e.StepSize, e.Attempts, e.Reason)
}
