package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrUntrustedSource indicates the policy source is not owned by the
	// trusted authority or is writable by someone other than it.
	ErrUntrustedSource = errors.New("policy source is not trusted")

	// ErrMalformedPolicy indicates the policy source contains a line that
	// does not conform to the policy grammar. A malformed line fails the
	// whole load: silently skipping it could widen access.
	ErrMalformedPolicy = errors.New("malformed policy")
)

// TrustError reports why a policy source failed the ownership and
// permission checks. The detail is for the administrator channel; the
// invoking user only ever sees a generic denial.
type TrustError struct {
	Path   string
	Reason string
}

func (e *TrustError) Error() string {
	return fmt.Sprintf("untrusted policy source %s: %s", e.Path, e.Reason)
}

// Is enables errors.Is(err, ErrUntrustedSource) comparisons.
func (e *TrustError) Is(target error) bool {
	return errors.Is(target, ErrUntrustedSource)
}

func (e *TrustError) Unwrap() error {
	return ErrUntrustedSource
}

// ParseError reports the line at which parsing the policy source failed.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

// Is enables errors.Is(err, ErrMalformedPolicy) comparisons.
func (e *ParseError) Is(target error) bool {
	return errors.Is(target, ErrMalformedPolicy)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedPolicy
}
