// Package broker sequences the escalation pipeline: identity resolution,
// credential verification, policy lookup, and privileged handoff. The
// engine owns all fail-fast logic; every failure is terminal for the
// invocation, and there is no local recovery, partial grant, or
// reduced-checks path.
package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/McRaeAlex/execas/internal/handoff"
	"github.com/McRaeAlex/execas/internal/identity"
	"github.com/McRaeAlex/execas/internal/logging"
	"github.com/McRaeAlex/execas/internal/policy"
)

// elevatedUID is the uid of the trusted authority the broker must be
// running as (effective) to perform a handoff.
const elevatedUID = 0

// Reason classifies a denial for the audit log and the exit code.
type Reason string

// Denial reasons, one per failure category.
const (
	ReasonNone           Reason = ""
	ReasonIdentity       Reason = "identity_failure"
	ReasonPrivilege      Reason = "privilege_failure"
	ReasonAuthentication Reason = "authentication_failure"
	ReasonAuthorization  Reason = "authorization_failure"
	ReasonHandoff        Reason = "handoff_failure"
)

// Request is the untrusted escalation request: the command the real user
// wants to run with elevated privilege, plus its argument vector. Nothing
// in it is trusted until authorization succeeds.
type Request struct {
	Command string
	Args    []string
}

// Decision is the terminal value of one invocation, produced exactly once.
// When Approved is true the handoff was reached; if the process is still
// alive afterwards the exec itself failed and Err carries the cause.
type Decision struct {
	Approved bool
	Reason   Reason
	Err      error
}

// CredentialVerifier re-authenticates the real user.
type CredentialVerifier interface {
	Verify(ctx context.Context, real *identity.User) error
}

// PolicyProvider loads the authorization policy.
type PolicyProvider interface {
	Load() (*policy.Document, error)
}

// PolicyFunc adapts a function to the PolicyProvider interface.
type PolicyFunc func() (*policy.Document, error)

// Load calls f.
func (f PolicyFunc) Load() (*policy.Document, error) { return f() }

// Config wires an Engine's collaborators.
type Config struct {
	Resolver     identity.Resolver
	Verifier     CredentialVerifier
	Policy       PolicyProvider
	Executor     handoff.Executor
	Audit        *logging.AuditLogger
	Logger       *slog.Logger
	InvocationID string
}

// Engine is the escalation state machine for a single invocation. It is
// not reusable: one process run gets exactly one attempt, which bounds
// brute forcing per process lifetime and leaves rate limiting to the
// session layer.
type Engine struct {
	cfg   Config
	state State

	inv   *identity.Invocation
	start time.Time
}

// New creates an engine in the Init state.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{cfg: cfg, state: StateInit}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	return e.state
}

// Run drives the pipeline for the given request. On an approved request it
// calls the executor, which replaces the process image and never returns;
// if Run does return, the returned Decision says why, and the caller must
// exit with the matching nonzero status.
func (e *Engine) Run(ctx context.Context, req Request) Decision {
	if e.state != StateInit {
		return Decision{Reason: ReasonIdentity, Err: ErrAlreadyRun}
	}
	e.start = time.Now()

	if decision, ok := e.resolveIdentity(); !ok {
		return e.record(req, decision)
	}
	if decision, ok := e.authenticate(ctx); !ok {
		return e.record(req, decision)
	}
	if decision, ok := e.authorize(req); !ok {
		return e.record(req, decision)
	}

	return e.record(req, e.handoff(req))
}

// resolveIdentity performs Init → IdentityResolved: both identities are
// resolved once and become immutable, and the effective identity must be
// the elevated authority before anything else happens. No prompt is ever
// shown from a non-elevated process.
func (e *Engine) resolveIdentity() (Decision, bool) {
	inv, err := identity.Resolve(e.cfg.Resolver)
	if err != nil {
		e.deny()
		return Decision{Reason: ReasonIdentity, Err: err}, false
	}

	if inv.Effective.UID != elevatedUID {
		e.deny()
		e.cfg.Logger.Warn("effective identity is not elevated",
			"effective_uid", inv.Effective.UID,
			"required_uid", elevatedUID)
		return Decision{Reason: ReasonPrivilege, Err: ErrNotPrivileged}, false
	}

	if err := e.advance(StateIdentityResolved); err != nil {
		e.deny()
		return Decision{Reason: ReasonIdentity, Err: err}, false
	}
	e.inv = inv

	e.cfg.Logger.Debug("identity resolved",
		"real_uid", inv.Real.UID,
		"real_name", inv.Real.Name,
		"effective_uid", inv.Effective.UID)
	return Decision{}, true
}

// authenticate performs IdentityResolved → Authenticated by verifying the
// real identity's credential. The verifier's signature only accepts the
// real identity; the elevated identity cannot be substituted.
func (e *Engine) authenticate(ctx context.Context) (Decision, bool) {
	if err := e.cfg.Verifier.Verify(ctx, e.inv.Real); err != nil {
		e.deny()
		return Decision{Reason: ReasonAuthentication, Err: err}, false
	}
	if err := e.advance(StateAuthenticated); err != nil {
		e.deny()
		return Decision{Reason: ReasonAuthentication, Err: err}, false
	}
	return Decision{}, true
}

// authorize performs Authenticated → Authorized. A policy that cannot be
// loaded or trusted denies outright; the broker never proceeds with a
// partially trusted policy.
func (e *Engine) authorize(req Request) (Decision, bool) {
	doc, err := e.cfg.Policy.Load()
	if err != nil {
		e.deny()
		return Decision{Reason: ReasonAuthorization, Err: err}, false
	}

	if !doc.IsAuthorized(e.inv.Real.Name, req.Command) {
		e.deny()
		e.cfg.Logger.Warn("authorization denied by policy",
			"principal", e.inv.Real.Name,
			"command", req.Command)
		return Decision{Reason: ReasonAuthorization, Err: ErrNotAuthorized}, false
	}

	if err := e.advance(StateAuthorized); err != nil {
		e.deny()
		return Decision{Reason: ReasonAuthorization, Err: err}, false
	}
	return Decision{}, true
}

// handoff performs Authorized → HandoffReady and replaces the process
// image. The audit record is written before exec: after a successful exec
// this process no longer exists to write anything.
func (e *Engine) handoff(req Request) Decision {
	if err := e.advance(StateHandoffReady); err != nil {
		e.deny()
		return Decision{Reason: ReasonHandoff, Err: err}
	}

	e.audit(req, Decision{Approved: true})

	if err := e.cfg.Executor.Exec(req.Command, req.Args); err != nil {
		return Decision{Approved: true, Reason: ReasonHandoff, Err: err}
	}

	// Unreachable: Exec either replaced the process or returned an error.
	return Decision{Approved: true}
}

// record writes the audit record for a denial and passes the decision
// through. Approved decisions are audited in handoff, before exec.
func (e *Engine) record(req Request, decision Decision) Decision {
	if !decision.Approved {
		e.audit(req, decision)
	}
	return decision
}

func (e *Engine) audit(req Request, decision Decision) {
	if e.cfg.Audit == nil {
		return
	}

	record := logging.AuditRecord{
		InvocationID: e.cfg.InvocationID,
		Outcome:      logging.OutcomeApproved,
		Reason:       "approved",
		Command:      req.Command,
		Args:         req.Args,
		Duration:     time.Since(e.start),
	}
	if !decision.Approved {
		record.Outcome = logging.OutcomeDenied
		record.Reason = string(decision.Reason)
	}
	if e.inv != nil {
		record.Principal = e.inv.Real.Name
		record.RealUID = e.inv.Real.UID
		record.EffectiveUID = e.inv.Effective.UID
	}
	e.cfg.Audit.Log(record)
}
