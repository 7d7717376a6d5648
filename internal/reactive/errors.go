package reactive

import (
	"errors"
	"fmt"
)

// StateError represents an error raised by a State operation.
//
// State errors include:
//   - Construction: a container reachable from the initial value is frozen
//   - Frozen: a written value contains a frozen container
//   - Not container / not list: the addressed value has the wrong shape
//   - Closed: the State was closed
type StateError struct {
	// Code identifies the error category.
	Code StateErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the canonical path involved, if any.
	Path string

	// Details contains additional context.
	Details map[string]string
}

// StateErrorCode categorizes state errors.
type StateErrorCode string

const (
	// ErrCodeConstruction indicates the initial value holds a frozen container.
	ErrCodeConstruction StateErrorCode = "CONSTRUCTION"

	// ErrCodeNotContainer indicates a path step that is not a container.
	ErrCodeNotContainer StateErrorCode = "NOT_CONTAINER"

	// ErrCodeNotList indicates a bulk operation on a non-list value.
	ErrCodeNotList StateErrorCode = "NOT_LIST"

	// ErrCodeClosed indicates the State has been closed.
	ErrCodeClosed StateErrorCode = "CLOSED"

	// ErrCodeFrozen indicates a write of, or into, a frozen container.
	ErrCodeFrozen StateErrorCode = "FROZEN"

	// ErrCodeObserverPanic indicates an observer panicked. It is logged,
	// never returned to the mutator.
	ErrCodeObserverPanic StateErrorCode = "OBSERVER_PANIC"

	// ErrCodeFlushLimit indicates a Flush stopped at its round limit with
	// paths still queued. It is logged, never returned.
	ErrCodeFlushLimit StateErrorCode = "FLUSH_LIMIT"
)

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConstructionError returns true if err is a construction error.
// Uses errors.As to handle wrapped errors.
func IsConstructionError(err error) bool {
	return hasCode(err, ErrCodeConstruction)
}

// IsClosedError returns true if err reports a closed State.
func IsClosedError(err error) bool {
	return hasCode(err, ErrCodeClosed)
}

// IsNotListError returns true if err reports a bulk operation on a non-list.
func IsNotListError(err error) bool {
	return hasCode(err, ErrCodeNotList)
}

// IsFrozenError returns true if err reports a frozen container.
func IsFrozenError(err error) bool {
	return hasCode(err, ErrCodeFrozen)
}

func hasCode(err error, code StateErrorCode) bool {
	var se *StateError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// ErrorPath returns the path carried by a StateError, or "".
func ErrorPath(err error) string {
	var se *StateError
	if errors.As(err, &se) {
		return se.Path
	}
	return ""
}

func newConstructionError(path string) *StateError {
	return &StateError{
		Code:    ErrCodeConstruction,
		Message: "initial value contains a frozen container",
		Path:    path,
	}
}

func newFrozenError(path string) *StateError {
	return &StateError{
		Code:    ErrCodeFrozen,
		Message: "value contains a frozen container",
		Path:    path,
	}
}

func newClosedError() *StateError {
	return &StateError{Code: ErrCodeClosed, Message: "state is closed"}
}

func newNotContainerError(path, kind string) *StateError {
	return &StateError{
		Code:    ErrCodeNotContainer,
		Message: "value is not a container",
		Path:    path,
		Details: map[string]string{"kind": kind},
	}
}

func newNotListError(path, kind string) *StateError {
	return &StateError{
		Code:    ErrCodeNotList,
		Message: "value is not a list",
		Path:    path,
		Details: map[string]string{"kind": kind},
	}
}
