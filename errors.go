package pagesteer

import (
	"errors"
	"fmt"
)

// ErrCeiling is returned by a Driver's WaitUntil when the ceiling elapses
// before the predicate holds. The wait engine translates it into a
// *TimeoutError carrying the predicate and target.
var ErrCeiling = errors.New("wait ceiling elapsed")

// TimeoutError reports that a wait ceiling elapsed without the predicate
// becoming true.
type TimeoutError struct {
	Predicate Predicate
	Target    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s: %s", e.Predicate, e.Target)
}

// InterceptedError reports that a click was rejected because another element
// occupied the target's screen position. It is the one transient condition
// the click retry loop recovers from.
type InterceptedError struct {
	Target string
}

func (e *InterceptedError) Error() string {
	return fmt.Sprintf("click intercepted on %s", e.Target)
}

// NotFoundError reports that a locate call resolved zero elements.
type NotFoundError struct {
	Selector Selector
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no element matched %s=%q", e.Selector.Strategy, e.Selector.Pattern)
}

// EmptyMatchError reports that a multi-match query legitimately matched
// nothing after its presence wait succeeded. The element may have appeared
// and then been removed before the query ran.
type EmptyMatchError struct {
	Selector Selector
}

func (e *EmptyMatchError) Error() string {
	return fmt.Sprintf("selector %s=%q matched no elements", e.Selector.Strategy, e.Selector.Pattern)
}

// DriverError wraps any other failure from the underlying driver. These are
// fatal: never retried, never recovered.
type DriverError struct {
	Action string
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver error during %s: %v", e.Action, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// NewDriverError wraps err with the action that produced it.
func NewDriverError(action string, err error) error {
	return &DriverError{Action: action, Err: err}
}
