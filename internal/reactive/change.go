package reactive

import (
	"fmt"

	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/value"
)

// Op is the kind of mutation a Change describes.
type Op int

const (
	// OpSet assigns a value.
	OpSet Op = iota + 1
	// OpDelete removes a key or empties a list slot.
	OpDelete
	// OpCall is a bulk list operation; Method and Args describe it.
	OpCall
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpDelete:
		return "delete"
	case OpCall:
		return "call"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Change is a pending mutation handed to change observers. Observers run
// before the mutation is applied; any of them may Cancel it. For OpSet an
// observer may also replace Proposed, and the replacement is what gets
// written.
type Change struct {
	// Seq is the logical clock value of this change.
	Seq int64

	// Path is the canonical path being written, or the list path for OpCall.
	Path *path.Path

	Op Op

	// Method and Args describe an OpCall, e.g. "splice" [1 1 99].
	Method string
	Args   []value.Value

	// Old is the current value at Path (Absent when missing). For OpCall
	// it is the list's Node.
	Old value.Value

	// Proposed is the value about to be written. Absent for OpDelete, nil
	// for OpCall.
	Proposed value.Value

	canceled bool
}

// Cancel stops the mutation. Remaining observers are still called.
func (c *Change) Cancel() { c.canceled = true }

// Canceled reports whether an observer canceled the mutation.
func (c *Change) Canceled() bool { return c.canceled }
