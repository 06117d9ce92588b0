package engine

import (
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

const typingAutoStop = 3 * time.Second

// room owns every piece of mutable state for one live session: the phase,
// the connection registry, the transcript buffer, the moderation log and the
// vote ledger. All of it is guarded by a single mutex, so two operations on
// the same session never interleave while different sessions proceed fully
// in parallel. Network I/O never happens under the mutex; outbound delivery
// goes through each client's bounded queue.
type room struct {
	engine *Engine
	cfg    SessionConfig
	opts   Options

	mu             sync.Mutex
	phase          Phase
	seq            uint64
	clients        map[uint]*client
	removed        map[uint]bool
	transcript     []Message
	actions        []ModerationAction
	votes          map[uint]Vote
	participations []*ParticipationRecord
	typingTimers   map[uint]*time.Timer
	durationTimer  *time.Timer
	votingTimer    *time.Timer
	votingStarted  time.Time
	ended          bool
}

func newRoom(e *Engine, cfg SessionConfig) *room {
	return &room{
		engine:       e,
		cfg:          cfg,
		opts:         e.opts,
		phase:        PhasePending,
		clients:      make(map[uint]*client),
		removed:      make(map[uint]bool),
		votes:        make(map[uint]Vote),
		typingTimers: make(map[uint]*time.Timer),
	}
}

// admit runs steps 3-6 of the attach protocol: reconnect handling, phase and
// capacity validation, registry insert and the roster broadcast. Credential
// verification and the session load already happened outside the lock.
func (r *room) admit(c *client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return ErrSessionEnded
	}
	if r.removed[c.identity.ID] {
		if !(r.opts.AllowRemovedViewer && c.role == RoleViewer) {
			return ErrRemovedFromSession
		}
	}

	// An identity holds at most one live connection per session. A
	// reconnect force-closes the old connection before the new one is
	// admitted, so the registry never carries duplicates.
	if old, ok := r.clients[c.identity.ID]; ok {
		r.detachLocked(old, CloseReplaced)
	}

	if !canJoin(r.phase, c.role) {
		return ErrPhaseNotJoinable
	}
	if c.role == RoleParticipant {
		if c.side != SideProposition && c.side != SideOpposition {
			return ErrPreconditionNotMet
		}
		if r.participantCountLocked() >= r.cfg.MaxParticipants {
			return ErrSessionFull
		}
	}

	r.clients[c.identity.ID] = c
	rec := &ParticipationRecord{
		UserID:   c.identity.ID,
		Username: c.identity.Username,
		Role:     c.role,
		Side:     c.side,
		JoinedAt: c.joinedAt,
	}
	c.part = rec
	r.participations = append(r.participations, rec)

	r.broadcastLocked(EventUserJoined, PresencePayload{
		UserID:   c.identity.ID,
		Username: c.identity.Username,
		Role:     c.role,
		Roster:   r.rosterLocked(),
	})
	return nil
}

// detach removes a connection from the registry and announces the
// departure. It is idempotent: detaching a connection that was already
// replaced or removed is a no-op.
func (r *room) detach(c *client, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachLocked(c, code)
}

func (r *room) detachLocked(c *client, code int) {
	if r.clients[c.identity.ID] != c {
		c.closed = true
		c.shutdown(code)
		return
	}
	delete(r.clients, c.identity.ID)
	if t, ok := r.typingTimers[c.identity.ID]; ok {
		t.Stop()
		delete(r.typingTimers, c.identity.ID)
	}
	if c.part != nil && c.part.LeftAt == nil {
		now := time.Now()
		c.part.LeftAt = &now
	}
	c.closed = true
	c.shutdown(code)

	if !r.ended {
		r.broadcastLocked(EventUserLeft, PresencePayload{
			UserID:   c.identity.ID,
			Username: c.identity.Username,
			Role:     c.role,
			Roster:   r.rosterLocked(),
		})
	}
}

// broadcastLocked assigns the next session sequence number, mirrors the
// frame onto the bus and fans it out to every registered connection. A
// client whose bounded queue is full is force-detached instead of stalling
// the others.
func (r *room) broadcastLocked(t EventType, payload interface{}) {
	r.seq++
	evt := Event{Type: t, Seq: r.seq, Payload: payload, Timestamp: time.Now()}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("engine: marshal %s event for session %d: %v", t, r.cfg.ID, err)
		return
	}

	r.engine.bus.Publish(r.cfg.ID, data)

	var slow []*client
	for _, c := range r.clients {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		log.Printf("engine: session %d dropping slow consumer %s (user %d)",
			r.cfg.ID, c.id, c.identity.ID)
		r.detachLocked(c, CloseSlowConsumer)
	}
}

// unicastLocked sends an event to a single connection only. Unicast frames
// carry no sequence number so the broadcast stream stays gap-free.
func (r *room) unicastLocked(c *client, t EventType, payload interface{}) {
	evt := Event{Type: t, Payload: payload, Timestamp: time.Now()}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("engine: marshal %s event for session %d: %v", t, r.cfg.ID, err)
		return
	}
	if !c.enqueue(data) {
		r.detachLocked(c, CloseSlowConsumer)
	}
}

func (r *room) unicastError(c *client, code, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unicastLocked(c, EventError, ErrorPayload{Code: code, Message: message})
}

func (r *room) rejectLocked(c *client, err error) {
	r.unicastLocked(c, EventError, ErrorPayload{Code: errorCode(err), Message: err.Error()})
}

// handleCommand executes one inbound frame under the session mutex.
// Validation failures are reported back to the sender and leave the session
// state untouched.
func (r *room) handleCommand(c *client, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return
	}

	var err error
	switch cmd.Type {
	case CommandPing:
		r.unicastLocked(c, EventPong, nil)
		return
	case CommandSendMessage:
		err = r.sendMessageLocked(c, cmd.Content, MessageType(cmd.MessageType))
	case CommandTyping:
		err = r.typingLocked(c, cmd.Action)
	case CommandSubmitVote:
		err = r.submitVoteLocked(c, cmd.Side)
	case CommandModerate:
		err = r.moderateLocked(c, cmd.Action, cmd.Target, cmd.Reason)
	case CommandPhaseControl:
		err = r.phaseControlLocked(c.identity.ID, cmd.Action, "")
	default:
		r.unicastLocked(c, EventError, ErrorPayload{Code: "protocol_error", Message: "unknown command type"})
		return
	}
	if err != nil {
		r.rejectLocked(c, err)
	}
}

func (r *room) sendMessageLocked(c *client, content string, mtype MessageType) error {
	if c.role != RoleParticipant {
		return ErrForbidden
	}
	if c.muted {
		return ErrMuted
	}
	if mtype == "" {
		mtype = MessageArgument
	}
	if !mtype.valid() {
		return ErrPhaseNotSendable
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	if len(content) > r.opts.MaxMessageLength {
		return ErrMessageTooLong
	}

	// Closing remarks ride a short grace window after the voting
	// transition; everything else requires the debating phase.
	if mtype == MessageClosing {
		if r.phase != PhaseVoting || time.Since(r.votingStarted) > r.opts.ClosingGrace {
			return ErrPhaseNotSendable
		}
	} else if r.phase != PhaseDebating {
		return ErrPhaseNotSendable
	}

	msg := Message{
		Seq:        r.seq + 1,
		AuthorID:   c.identity.ID,
		AuthorName: c.identity.Username,
		Content:    content,
		Type:       mtype,
		Phase:      r.phase,
		SentAt:     time.Now(),
	}
	r.transcript = append(r.transcript, msg)
	r.broadcastLocked(EventMessage, MessagePayload{
		Seq:        msg.Seq,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		Type:       msg.Type,
		Phase:      msg.Phase,
		SentAt:     msg.SentAt,
	})
	return nil
}

func (r *room) typingLocked(c *client, action string) error {
	if c.role != RoleParticipant {
		return ErrForbidden
	}
	if action != "start" && action != "stop" {
		return ErrPreconditionNotMet
	}

	if t, ok := r.typingTimers[c.identity.ID]; ok {
		t.Stop()
		delete(r.typingTimers, c.identity.ID)
	}
	if action == "start" {
		id := c.identity.ID
		name := c.identity.Username
		r.typingTimers[id] = time.AfterFunc(typingAutoStop, func() {
			r.autoStopTyping(id, name)
		})
	}

	r.broadcastLocked(EventTypingNotification, TypingPayload{
		UserID:   c.identity.ID,
		Username: c.identity.Username,
		Action:   action,
	})
	return nil
}

func (r *room) autoStopTyping(userID uint, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	if _, ok := r.typingTimers[userID]; !ok {
		return
	}
	delete(r.typingTimers, userID)
	r.broadcastLocked(EventTypingNotification, TypingPayload{
		UserID:   userID,
		Username: username,
		Action:   "stop",
	})
}

func (r *room) submitVoteLocked(c *client, side Side) error {
	if r.phase != PhaseVoting {
		return ErrPhaseNotSendable
	}
	if r.opts.VoteEligibility == VoteViewersOnly && c.role != RoleViewer {
		return ErrForbidden
	}
	if side != SideProposition && side != SideOpposition {
		return ErrPreconditionNotMet
	}

	// Replace, never append: at most one vote per identity per session.
	r.votes[c.identity.ID] = Vote{
		VoterID:   c.identity.ID,
		Side:      side,
		Timestamp: time.Now(),
	}
	r.broadcastLocked(EventVoteTallyUpdate, r.tallyLocked())
	return nil
}

func (r *room) moderateLocked(c *client, action string, targetID uint, reason string) error {
	if c.identity.ID != r.cfg.ModeratorID {
		return ErrForbidden
	}

	target, attached := r.clients[targetID]
	if action != ModerationRemove && !attached {
		return ErrTargetNotAttached
	}

	rec := ModerationAction{
		Seq:         r.seq + 1,
		ModeratorID: c.identity.ID,
		TargetID:    targetID,
		Action:      action,
		Reason:      reason,
		Timestamp:   time.Now(),
	}
	payload := ModerationPayload{
		Action:      action,
		TargetID:    targetID,
		ModeratorID: c.identity.ID,
		Reason:      reason,
	}
	if attached {
		payload.TargetUsername = target.identity.Username
	}

	switch action {
	case ModerationMute:
		target.muted = true
	case ModerationUnmute:
		target.muted = false
	case ModerationWarn:
		target.warnings++
		payload.WarningCount = target.warnings
	case ModerationRemove:
		// Recorded even when the target already dropped, so the audit
		// log reflects the moderator's decision.
	default:
		return ErrPreconditionNotMet
	}

	r.actions = append(r.actions, rec)
	// The moderation broadcast precedes any user_left it causes, so
	// observers can tell a removal from a voluntary leave.
	r.broadcastLocked(EventModerationAction, payload)

	if action == ModerationRemove {
		r.removed[targetID] = true
		if attached {
			r.detachLocked(target, CloseRemoved)
		}
	}
	return nil
}

// phaseControlLocked applies a moderator phase action. Internal timers call
// applyTransitionLocked directly and bypass the moderator check.
func (r *room) phaseControlLocked(actorID uint, action, reason string) error {
	if actorID != r.cfg.ModeratorID {
		return ErrForbidden
	}
	return r.applyTransitionLocked(action, reason)
}

func (r *room) applyTransitionLocked(action, reason string) error {
	if r.phase == PhaseEnded {
		if action == ActionEndSession {
			return nil
		}
		return ErrInvalidTransition
	}

	next, err := advance(r.phase, action)
	if err != nil {
		return err
	}
	if action == ActionStartDebate {
		prop, opp := r.sideCountsLocked()
		if prop < r.cfg.MinPerSide || opp < r.cfg.MinPerSide {
			return ErrPreconditionNotMet
		}
	}

	r.phase = next
	// The transition event is sequenced before any traffic that follows
	// the accepted transition; everything here runs under the one mutex.
	r.broadcastLocked(EventPhaseChanged, PhaseChangedPayload{Phase: next, Reason: reason})

	switch action {
	case ActionStartDebate:
		r.durationTimer = time.AfterFunc(r.cfg.Duration, func() {
			r.expire(ActionEndSession, "duration_expired")
		})
	case ActionStartVoting:
		if r.durationTimer != nil {
			r.durationTimer.Stop()
		}
		r.votingStarted = time.Now()
		r.votingTimer = time.AfterFunc(r.opts.VotingWindow, func() {
			r.expire(ActionEndSession, "voting_window_closed")
		})
	case ActionEndSession:
		r.endLocked()
	}
	return nil
}

// expire is the timer path into the state machine; it takes the lock itself.
func (r *room) expire(action, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	if err := r.applyTransitionLocked(action, reason); err != nil {
		log.Printf("engine: session %d timer transition %s: %v", r.cfg.ID, action, err)
	}
}

// endLocked tears the session down: the phase_changed frame is already in
// every outbound queue, so closing the queues here still delivers it before
// the close frame.
func (r *room) endLocked() {
	r.ended = true
	if r.durationTimer != nil {
		r.durationTimer.Stop()
	}
	if r.votingTimer != nil {
		r.votingTimer.Stop()
	}
	for _, t := range r.typingTimers {
		t.Stop()
	}
	r.typingTimers = make(map[uint]*time.Timer)

	now := time.Now()
	for _, c := range r.clients {
		if c.part != nil && c.part.LeftAt == nil {
			left := now
			c.part.LeftAt = &left
		}
		c.closed = true
		c.shutdown(CloseSessionEnded)
	}
	r.clients = make(map[uint]*client)

	transcript := append([]Message(nil), r.transcript...)
	actions := append([]ModerationAction(nil), r.actions...)
	parts := make([]ParticipationRecord, 0, len(r.participations))
	for _, p := range r.participations {
		parts = append(parts, *p)
	}
	r.engine.finishSession(r.cfg.ID, transcript, actions, parts, r.resultLocked())
}

func (r *room) resultLocked() TallyResult {
	tally := r.tallyLocked()
	res := TallyResult{
		Proposition: tally.Proposition,
		Opposition:  tally.Opposition,
		Total:       tally.Proposition + tally.Opposition,
		Votes:       make([]Vote, 0, len(r.votes)),
	}
	for _, v := range r.votes {
		res.Votes = append(res.Votes, v)
	}
	sort.Slice(res.Votes, func(i, j int) bool { return res.Votes[i].VoterID < res.Votes[j].VoterID })
	switch {
	case res.Proposition > res.Opposition:
		res.WinningSide = string(SideProposition)
	case res.Opposition > res.Proposition:
		res.WinningSide = string(SideOpposition)
	default:
		res.WinningSide = "tie"
	}
	return res
}

func (r *room) tallyLocked() TallyPayload {
	var t TallyPayload
	for _, v := range r.votes {
		switch v.Side {
		case SideProposition:
			t.Proposition++
		case SideOpposition:
			t.Opposition++
		}
	}
	return t
}

func (r *room) participantCountLocked() int {
	n := 0
	for _, c := range r.clients {
		if c.role == RoleParticipant {
			n++
		}
	}
	return n
}

func (r *room) sideCountsLocked() (prop, opp int) {
	for _, c := range r.clients {
		if c.role != RoleParticipant {
			continue
		}
		switch c.side {
		case SideProposition:
			prop++
		case SideOpposition:
			opp++
		}
	}
	return prop, opp
}

func (r *room) rosterLocked() Roster {
	roster := Roster{
		Participants: make([]RosterEntry, 0),
		Viewers:      make([]RosterEntry, 0),
	}
	for _, c := range r.clients {
		e := c.rosterEntry()
		if c.role == RoleParticipant {
			roster.Participants = append(roster.Participants, e)
		} else {
			roster.Viewers = append(roster.Viewers, e)
		}
	}
	sort.Slice(roster.Participants, func(i, j int) bool {
		return roster.Participants[i].UserID < roster.Participants[j].UserID
	})
	sort.Slice(roster.Viewers, func(i, j int) bool {
		return roster.Viewers[i].UserID < roster.Viewers[j].UserID
	})
	return roster
}

// Snapshot queries serve the synchronous status surface from a consistent
// point-in-time copy without holding the lock longer than the copy takes.

func (r *room) snapshotPhase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *room) snapshotRoster() Roster {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

func (r *room) snapshotTally() TallyPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tallyLocked()
}

func (r *room) snapshotVotes() []Vote {
	r.mu.Lock()
	defer r.mu.Unlock()
	votes := make([]Vote, 0, len(r.votes))
	for _, v := range r.votes {
		votes = append(votes, v)
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].VoterID < votes[j].VoterID })
	return votes
}
