// Package fsm implements the Session State Machine (spec.md §4.5, C5):
// the eleven-state (see the note below on the table's twelfth row)
// machine sequencing idle, authorized-running, grace, timeout and
// shutdown, modeled as a tagged variant over State with a single
// dispatch function per spec.md §9's design note ("Re-implement as a
// tagged variant over the eleven states with a single dispatch function
// that takes (&mut SessionContext, &InputFrame, &mut ExternalCollaborators)
// -> Option<NextState>"), grounded in the teacher's role-interface and
// mock-facade style (nfc/manager.go, nfc/manager_mock.go) rather than any
// state-machine library in the retrieval pack, since none of the example
// repos implement one.
//
// spec.md's §4.5 prose says "eleven states" but its own table enumerates
// twelve rows (Setup, IdleNoCard, IdleUnknownCard, IdleUnauthCard,
// RunningAuthUser, RunningProxyCard, RunningTrainingCard, RunningNoCard,
// RunningTimeout, IdleAuthCard, AccessComplete, Shutdown). "RunningUnknownCard",
// named only in RunningTimeout's button-pressed exit and in the
// state-bounce guard's prose, never appears as its own table row with
// entry actions — the Input Fuser (C4) always resolves a card's type and
// authorization *before* the Session State Machine sees the InputFrame,
// so there is nothing left for the Session State Machine to classify.
// This package therefore implements all twelve named table rows as State
// values and treats a RunningTimeout button-press as a direct transition
// to RunningNoCard, which is the state the bounce guard describes
// RunningUnknownCard collapsing into immediately.
package fsm

// State tags one of the Session State Machine's states.
type State int

const (
	StateSetup State = iota
	StateIdleNoCard
	StateIdleUnknownCard
	StateIdleUnauthCard
	StateRunningAuthUser
	StateRunningProxyCard
	StateRunningTrainingCard
	StateRunningNoCard
	StateRunningTimeout
	StateIdleAuthCard
	StateAccessComplete
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "Setup"
	case StateIdleNoCard:
		return "IdleNoCard"
	case StateIdleUnknownCard:
		return "IdleUnknownCard"
	case StateIdleUnauthCard:
		return "IdleUnauthCard"
	case StateRunningAuthUser:
		return "RunningAuthUser"
	case StateRunningProxyCard:
		return "RunningProxyCard"
	case StateRunningTrainingCard:
		return "RunningTrainingCard"
	case StateRunningNoCard:
		return "RunningNoCard"
	case StateRunningTimeout:
		return "RunningTimeout"
	case StateIdleAuthCard:
		return "IdleAuthCard"
	case StateAccessComplete:
		return "AccessComplete"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// PowerOn reports whether equipment power must be energized while in s
// (spec.md §3 invariant: relay+interlock ON only in these three states).
func (s State) PowerOn() bool {
	switch s {
	case StateRunningAuthUser, StateRunningProxyCard, StateRunningTrainingCard:
		return true
	default:
		return false
	}
}

// Running reports whether s is one of the three power-on Running* states
// or their grace/timeout successors that still belong to an active
// session.
func (s State) Running() bool {
	switch s {
	case StateRunningAuthUser, StateRunningProxyCard, StateRunningTrainingCard,
		StateRunningNoCard, StateRunningTimeout:
		return true
	default:
		return false
	}
}
