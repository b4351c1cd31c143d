package identity

import (
	"errors"
	"fmt"
)

// ErrUnknownUID indicates that a process uid has no corresponding record in
// the system identity database. An orphaned uid is fatal for the broker; it
// is never silently defaulted.
var ErrUnknownUID = errors.New("no user record for uid")

// LookupError carries the uid that failed to resolve.
type LookupError struct {
	UID int
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("identity lookup failed for uid %d: %v", e.UID, e.Err)
}

// Is enables errors.Is(err, ErrUnknownUID) comparisons.
func (e *LookupError) Is(target error) bool {
	return errors.Is(target, ErrUnknownUID)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
