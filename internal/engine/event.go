package engine

import "time"

type EventType string

const (
	EventUserJoined         EventType = "user_joined"
	EventUserLeft           EventType = "user_left"
	EventMessage            EventType = "message"
	EventTypingNotification EventType = "typing_notification"
	EventPhaseChanged       EventType = "phase_changed"
	EventModerationAction   EventType = "moderation_action"
	EventVoteTallyUpdate    EventType = "vote_tally_update"
	EventError              EventType = "error"
	EventPong               EventType = "pong"
)

// Event is the outbound envelope. Seq is assigned per session, strictly
// increasing, and only on broadcast events; unicast events (error, pong)
// carry Seq 0 so consumers attached for a whole interval observe a gap-free
// broadcast stream.
type Event struct {
	Type      EventType   `json:"type"`
	Seq       uint64      `json:"seq,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Close codes, private range, so clients can branch on cause.
const (
	CloseNormal        = 4000
	CloseRemoved       = 4001
	CloseIdleTimeout   = 4002
	CloseSessionEnded  = 4003
	CloseProtocolError = 4004
	CloseReplaced      = 4005
	CloseSlowConsumer  = 4006
)

// RosterEntry describes one attached identity in roster broadcasts.
type RosterEntry struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	Side     Side      `json:"side,omitempty"`
	Muted    bool      `json:"muted"`
	Warnings int       `json:"warnings"`
	JoinedAt time.Time `json:"joined_at"`
}

// Roster is the full participant/viewer listing broadcast after every
// attach, detach and moderation change.
type Roster struct {
	Participants []RosterEntry `json:"participants"`
	Viewers      []RosterEntry `json:"viewers"`
}

type PresencePayload struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Roster   Roster `json:"roster"`
}

type MessagePayload struct {
	Seq        uint64      `json:"seq"`
	AuthorID   uint        `json:"author_id"`
	AuthorName string      `json:"author_name"`
	Content    string      `json:"content"`
	Type       MessageType `json:"message_type"`
	Phase      Phase       `json:"phase"`
	SentAt     time.Time   `json:"sent_at"`
}

type TypingPayload struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Action   string `json:"action"`
}

type PhaseChangedPayload struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

type ModerationPayload struct {
	Action         string `json:"action"`
	TargetID       uint   `json:"target_id"`
	TargetUsername string `json:"target_username"`
	ModeratorID    uint   `json:"moderator_id"`
	Reason         string `json:"reason,omitempty"`
	WarningCount   int    `json:"warning_count,omitempty"`
}

type TallyPayload struct {
	Proposition int `json:"proposition"`
	Opposition  int `json:"opposition"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Command is the inbound frame read from a connection.
type Command struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	Action      string `json:"action,omitempty"`
	Target      uint   `json:"target,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Side        Side   `json:"side,omitempty"`
}

const (
	CommandSendMessage  = "send_message"
	CommandTyping       = "typing"
	CommandSubmitVote   = "submit_vote"
	CommandModerate     = "moderate"
	CommandPhaseControl = "phase_control"
	CommandPing         = "ping"
)
