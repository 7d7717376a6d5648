package reactive

import "fmt"

// DefaultMaxFlushRounds is the round limit of a Flush unless
// WithMaxFlushRounds says otherwise.
const DefaultMaxFlushRounds = 1000

// flushQuota counts the rounds of one Flush against a limit. Observers
// that keep writing to the paths they observe requeue work every round;
// the quota ends such a Flush and leaves the rest queued for the next one.
type flushQuota struct {
	max     int
	current int
}

func newFlushQuota(max int) *flushQuota {
	return &flushQuota{max: max}
}

// check counts one more round and fails once the limit is passed.
func (q *flushQuota) check() error {
	q.current++
	if q.max > 0 && q.current > q.max {
		return &StateError{
			Code:    ErrCodeFlushLimit,
			Message: fmt.Sprintf("flush stopped after %d rounds", q.max),
			Details: map[string]string{"limit": fmt.Sprint(q.max)},
		}
	}
	return nil
}
