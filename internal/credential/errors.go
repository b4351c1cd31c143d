package credential

import "errors"

var (
	// ErrNonInteractive indicates the credential prompt channel is not a
	// genuine interactive terminal. Redirected input is refused rather than
	// read: automating the password prompt must be an explicit decision.
	ErrNonInteractive = errors.New("credential prompt requires an interactive terminal")

	// ErrMismatch indicates the supplied secret does not match the stored
	// credential for the claimed identity.
	ErrMismatch = errors.New("credential mismatch")

	// ErrNoCredentialRecord indicates the claimed identity has no enrolled
	// credential. This is a denial, never "no password needed".
	ErrNoCredentialRecord = errors.New("no credential record for identity")

	// ErrPromptTimeout indicates the interactive prompt expired before a
	// secret was supplied. The timeout is a hardening feature: it maps to
	// denial, never to a relaxed check.
	ErrPromptTimeout = errors.New("credential prompt timed out")

	// ErrUntrustedStore indicates the credential store file is not owned by
	// the trusted authority or is readable or writable by anyone else.
	ErrUntrustedStore = errors.New("credential store is not trusted")

	// ErrMalformedStore indicates the credential store contains a line that
	// does not conform to the store format.
	ErrMalformedStore = errors.New("malformed credential store")
)
