package engine

import "fmt"

// ConfigurationError reports a run that was rejected before any source data
// was read: an unknown metric, a bad tile size, a duplicate output name.
// Nothing is partially written when one of these is returned.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("run configuration: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
