// Package cmdcommon provides defaults and exit-code mapping shared by the
// command-line tools.
package cmdcommon

import (
	"github.com/McRaeAlex/execas/internal/broker"
)

// Default installation paths. All three live in a root-owned directory;
// the broker verifies ownership and permissions on every read regardless.
const (
	DefaultConfigPath     = "/etc/execas/config.toml"
	DefaultPolicyPath     = "/etc/execas/policy"
	DefaultCredentialPath = "/etc/execas/credentials"
)

// Exit codes, one per failure category, so a shell or test harness can
// distinguish causes. Zero is only ever produced by the replaced program
// itself: a successful handoff leaves no broker code to exit.
const (
	ExitSuccess        = 0
	ExitUsage          = 1
	ExitIdentity       = 2
	ExitAuthentication = 3
	ExitAuthorization  = 4
	ExitHandoff        = 5
)

// ExitCodeFor maps a denial reason to its exit code.
func ExitCodeFor(reason broker.Reason) int {
	switch reason {
	case broker.ReasonIdentity, broker.ReasonPrivilege:
		return ExitIdentity
	case broker.ReasonAuthentication:
		return ExitAuthentication
	case broker.ReasonAuthorization:
		return ExitAuthorization
	case broker.ReasonHandoff:
		return ExitHandoff
	case broker.ReasonNone:
		return ExitSuccess
	default:
		return ExitUsage
	}
}
