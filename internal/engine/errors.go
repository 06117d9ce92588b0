package engine

import "errors"

// Validation failures are reported to the originating connection as a unicast
// error event and leave session state untouched. Structural failures reject
// the attach before any registration happens.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSessionNotFound      = errors.New("session not found")
	ErrPhaseNotJoinable     = errors.New("phase not joinable")
	ErrSessionFull          = errors.New("session full")
	ErrInvalidTransition    = errors.New("invalid phase transition")
	ErrPreconditionNotMet   = errors.New("precondition not met")
	ErrForbidden            = errors.New("forbidden")
	ErrMuted                = errors.New("muted")
	ErrPhaseNotSendable     = errors.New("phase not sendable")
	ErrEmptyMessage         = errors.New("empty message")
	ErrMessageTooLong       = errors.New("message too long")
	ErrTargetNotAttached    = errors.New("target not attached")
	ErrRemovedFromSession   = errors.New("removed from session")
	ErrSessionEnded         = errors.New("session ended")
)

// errorCode maps engine errors to stable wire codes clients can branch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		return "authentication_failed"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrPhaseNotJoinable):
		return "phase_not_joinable"
	case errors.Is(err, ErrSessionFull):
		return "session_full"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrPreconditionNotMet):
		return "precondition_not_met"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrMuted):
		return "muted"
	case errors.Is(err, ErrPhaseNotSendable):
		return "phase_not_sendable"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, ErrTargetNotAttached):
		return "target_not_attached"
	case errors.Is(err, ErrRemovedFromSession):
		return "removed_from_session"
	case errors.Is(err, ErrSessionEnded):
		return "session_ended"
	default:
		return "internal_error"
	}
}
