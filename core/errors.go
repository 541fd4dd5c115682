package core

import "fmt"

// InvalidConfigError reports an option value the detector cannot run with.
// It is raised eagerly, before any training work begins.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NotFittedError reports an operation that requires a fitted detector.
type NotFittedError struct {
	Op string
}

func (e NotFittedError) Error() string {
	return fmt.Sprintf("%s requires a fitted detector; call Fit first", e.Op)
}
