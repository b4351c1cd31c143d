package broker

import "fmt"

// State is one position in the escalation pipeline. The engine advances
// strictly Init → IdentityResolved → Authenticated → Authorized →
// HandoffReady, or drops to Denied; transitions are guarded, so a state
// can never be skipped, reordered, or re-entered within one run.
type State int

// Pipeline states, in traversal order.
const (
	StateInit State = iota
	StateIdentityResolved
	StateAuthenticated
	StateAuthorized
	StateHandoffReady
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateIdentityResolved:
		return "identity_resolved"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthorized:
		return "authorized"
	case StateHandoffReady:
		return "handoff_ready"
	case StateDenied:
		return "denied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// predecessor maps each forward state to the only state it may be entered
// from.
var predecessor = map[State]State{
	StateIdentityResolved: StateInit,
	StateAuthenticated:    StateIdentityResolved,
	StateAuthorized:       StateAuthenticated,
	StateHandoffReady:     StateAuthorized,
}

// advance moves the engine to the next forward state, failing if the
// current state is not the unique allowed predecessor.
func (e *Engine) advance(to State) error {
	expected, ok := predecessor[to]
	if !ok {
		return fmt.Errorf("%w: no transition into %s", ErrInvalidTransition, to)
	}
	if e.state != expected {
		return fmt.Errorf("%w: %s -> %s (requires %s)", ErrInvalidTransition, e.state, to, expected)
	}
	e.state = to
	return nil
}

// deny is terminal and reachable from any state after Init.
func (e *Engine) deny() {
	e.state = StateDenied
}
