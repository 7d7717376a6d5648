package path

import (
	"errors"
	"fmt"
)

// PathError reports an unparseable path or an impossible path operation.
type PathError struct {
	// Op is the operation that failed: "parse", "segment", "set", "relative".
	Op string

	// Input is the offending path text.
	Input string

	// Reason is a human-readable description.
	Reason string
}

// Error implements the error interface.
func (e *PathError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("path %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("path %s %q: %s", e.Op, e.Input, e.Reason)
}

// IsPathError returns true if err is or wraps a *PathError.
func IsPathError(err error) bool {
	var pe *PathError
	return errors.As(err, &pe)
}
