package engine

import (
	"context"
	"time"
)

// Identity is what the external verifier vouches for on attach.
type Identity struct {
	ID       uint
	Username string
	BaseRole string
}

// CredentialVerifier validates a presented credential. Called once per
// connection attempt, never under a session lock.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, token string) (Identity, error)
}

// SessionConfig is the durable configuration read from the session store
// when a session's first connection attaches.
type SessionConfig struct {
	ID              uint
	TopicTitle      string
	ModeratorID     uint
	ScheduledStart  *time.Time
	Duration        time.Duration
	MaxParticipants int
	MinPerSide      int
}

// SessionLoader reads session configuration from the external store.
type SessionLoader interface {
	LoadSession(ctx context.Context, sessionID uint) (SessionConfig, error)
}

// Archiver receives the durable remnants of a session when it ends. The
// engine retries a bounded number of times and then degrades to in-memory
// state with a logged warning; it never blocks other sessions on these calls.
type Archiver interface {
	PersistTranscript(ctx context.Context, sessionID uint, messages []Message, actions []ModerationAction, participations []ParticipationRecord) error
	PersistTally(ctx context.Context, sessionID uint, result TallyResult) error
}

// ParticipationRecord is one attachment interval of an identity, archived so
// past rosters can be reconstructed.
type ParticipationRecord struct {
	UserID   uint
	Username string
	Role     Role
	Side     Side
	JoinedAt time.Time
	LeftAt   *time.Time
}

type Role string

const (
	RoleParticipant Role = "participant"
	RoleViewer      Role = "viewer"
)

type Side string

const (
	SideProposition Side = "proposition"
	SideOpposition  Side = "opposition"
)

type MessageType string

const (
	MessageArgument MessageType = "argument"
	MessageRebuttal MessageType = "rebuttal"
	MessageQuestion MessageType = "question"
	MessageClosing  MessageType = "closing"
)

func (t MessageType) valid() bool {
	switch t {
	case MessageArgument, MessageRebuttal, MessageQuestion, MessageClosing:
		return true
	}
	return false
}

// Message is one accepted transcript entry, never mutated after creation.
type Message struct {
	Seq        uint64
	AuthorID   uint
	AuthorName string
	Content    string
	Type       MessageType
	Phase      Phase
	SentAt     time.Time
}

// Moderation action kinds accepted from the session moderator.
const (
	ModerationMute   = "mute"
	ModerationUnmute = "unmute"
	ModerationWarn   = "warn"
	ModerationRemove = "remove"
)

// ModerationAction is one append-only audit entry.
type ModerationAction struct {
	Seq         uint64
	ModeratorID uint
	TargetID    uint
	Action      string
	Reason      string
	Timestamp   time.Time
}

// Vote is the current vote of one identity. A later vote from the same
// identity replaces the earlier one.
type Vote struct {
	VoterID   uint
	Side      Side
	Timestamp time.Time
}

// TallyResult is the final outcome handed to the archiver at session end.
// Votes carries the collapsed per-identity ledger (one entry per voter).
type TallyResult struct {
	Proposition int
	Opposition  int
	Total       int
	WinningSide string
	Votes       []Vote
}

// VoteEligibility selects who may vote during the voting phase.
type VoteEligibility string

const (
	VoteViewersOnly VoteEligibility = "viewers"
	VoteEveryone    VoteEligibility = "all"
)

// Options are the engine-wide tuning knobs.
type Options struct {
	SendQueueDepth     int
	IdleTimeout        time.Duration
	VotingWindow       time.Duration
	ClosingGrace       time.Duration
	MaxMessageLength   int
	VoteEligibility    VoteEligibility
	AllowRemovedViewer bool
}

// DefaultOptions mirrors the documented configuration defaults.
func DefaultOptions() Options {
	return Options{
		SendQueueDepth:     64,
		IdleTimeout:        5 * time.Minute,
		VotingWindow:       30 * time.Second,
		ClosingGrace:       30 * time.Second,
		MaxMessageLength:   2000,
		VoteEligibility:    VoteViewersOnly,
		AllowRemovedViewer: false,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SendQueueDepth <= 0 {
		o.SendQueueDepth = d.SendQueueDepth
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.VotingWindow <= 0 {
		o.VotingWindow = d.VotingWindow
	}
	if o.ClosingGrace <= 0 {
		o.ClosingGrace = d.ClosingGrace
	}
	if o.MaxMessageLength <= 0 {
		o.MaxMessageLength = d.MaxMessageLength
	}
	if o.VoteEligibility == "" {
		o.VoteEligibility = d.VoteEligibility
	}
	return o
}
