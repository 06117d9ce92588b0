package engine

// Phase is the authoritative stage of one live session. Transitions are
// monotonic: no phase is ever revisited.
type Phase string

const (
	PhasePending  Phase = "pending"
	PhaseJoining  Phase = "joining"
	PhaseDebating Phase = "debating"
	PhaseVoting   Phase = "voting"
	PhaseEnded    Phase = "ended"
)

// Phase control actions accepted from the moderator (and from internal
// timers, which reuse end_session).
const (
	ActionStartJoining = "start_joining"
	ActionStartDebate  = "start_debate"
	ActionStartVoting  = "start_voting"
	ActionEndSession   = "end_session"
)

var phaseTransitions = map[string]struct {
	from Phase
	to   Phase
}{
	ActionStartJoining: {PhasePending, PhaseJoining},
	ActionStartDebate:  {PhaseJoining, PhaseDebating},
	ActionStartVoting:  {PhaseDebating, PhaseVoting},
}

// advance validates a phase control action against the current phase and
// returns the next phase. end_session is accepted from any state; calling it
// when already ended is an idempotent no-op signalled by returning the same
// phase with no error.
func advance(current Phase, action string) (Phase, error) {
	if action == ActionEndSession {
		return PhaseEnded, nil
	}
	t, ok := phaseTransitions[action]
	if !ok {
		return current, ErrInvalidTransition
	}
	if current != t.from {
		return current, ErrInvalidTransition
	}
	return t.to, nil
}

// canJoin reports whether a connection with the desired role may attach in
// the given phase. New participants are only admitted before the debate
// starts; viewers may attach any time before the session ends.
func canJoin(p Phase, role Role) bool {
	if p == PhaseEnded {
		return false
	}
	if role == RoleParticipant {
		return p == PhasePending || p == PhaseJoining
	}
	return true
}
