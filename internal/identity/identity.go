// Package identity resolves the real and effective user identifiers of the
// current process to canonical user records. Both identities are resolved
// exactly once per invocation and treated as immutable afterwards, so a
// uid change mid-run can never alter an authorization decision already in
// flight.
package identity

import (
	"fmt"
	"os/user"
	"strconv"
	"syscall"
)

// User is a canonical user record resolved from the system identity database.
type User struct {
	UID  int
	Name string
}

// Invocation holds the identities of a single broker run. Real is the user
// who invoked the tool; Effective is the privilege the process currently
// holds (expected to be root for a setuid installation).
type Invocation struct {
	Real      *User
	Effective *User
}

// Resolver maps process uids to canonical user records.
type Resolver interface {
	ResolveReal() (*User, error)
	ResolveEffective() (*User, error)
}

// SystemResolver resolves identities against the operating system's user
// database via os/user.
type SystemResolver struct{}

// NewResolver returns a resolver backed by the system identity database.
func NewResolver() *SystemResolver {
	return &SystemResolver{}
}

// ResolveReal resolves the real (invoking) user of the current process.
func (r *SystemResolver) ResolveReal() (*User, error) {
	return lookupUID(syscall.Getuid())
}

// ResolveEffective resolves the effective user of the current process.
func (r *SystemResolver) ResolveEffective() (*User, error) {
	return lookupUID(syscall.Geteuid())
}

// Resolve resolves both identities for this invocation.
func Resolve(r Resolver) (*Invocation, error) {
	real, err := r.ResolveReal()
	if err != nil {
		return nil, fmt.Errorf("resolving real identity: %w", err)
	}
	effective, err := r.ResolveEffective()
	if err != nil {
		return nil, fmt.Errorf("resolving effective identity: %w", err)
	}
	return &Invocation{Real: real, Effective: effective}, nil
}

func lookupUID(uid int) (*User, error) {
	record, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return nil, &LookupError{UID: uid, Err: err}
	}
	parsed, err := strconv.Atoi(record.Uid)
	if err != nil {
		return nil, &LookupError{UID: uid, Err: fmt.Errorf("non-numeric uid %q in user record: %w", record.Uid, err)}
	}
	return &User{UID: parsed, Name: record.Username}, nil
}
