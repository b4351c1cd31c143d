package broker

import "errors"

var (
	// ErrNotPrivileged indicates the process does not hold the elevated
	// effective identity it needs to perform a handoff. Checked before the
	// credential prompt: there is no point asking for a password when the
	// broker could not escalate anyway.
	ErrNotPrivileged = errors.New("not running with elevated privileges")

	// ErrNotAuthorized indicates the policy denies the real user the
	// requested escalation.
	ErrNotAuthorized = errors.New("not authorized by policy")

	// ErrInvalidTransition indicates an attempt to move the state machine
	// out of order. This is a programming error surfaced as a denial, never
	// as a bypass.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAlreadyRun indicates the engine was asked to run twice. A wrong
	// password is retried by reinvoking the tool, never by looping inside
	// one run; one process gets one attempt.
	ErrAlreadyRun = errors.New("engine has already run")
)
