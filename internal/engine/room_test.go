package engine

import (
	"errors"
	"testing"
	"time"
)

func rosterNames(entries []RosterEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Username)
	}
	return names
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRosterTracksAttachDetach(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)

	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	bob := admit(t, r, 2, "bob", RoleParticipant, SideOpposition)
	viewer := admit(t, r, 3, "carol", RoleViewer, "")

	frames := drain(t, viewer)
	joined, ok := lastOfType(frames, EventUserJoined)
	if !ok {
		t.Fatal("viewer saw no user_joined")
	}
	var p PresencePayload
	decodePayload(t, joined, &p)
	if !equalNames(rosterNames(p.Roster.Participants), []string{"alice", "bob"}) {
		t.Errorf("participants = %v, want [alice bob]", rosterNames(p.Roster.Participants))
	}
	if !equalNames(rosterNames(p.Roster.Viewers), []string{"carol"}) {
		t.Errorf("viewers = %v, want [carol]", rosterNames(p.Roster.Viewers))
	}

	r.detach(bob, CloseNormal)
	frames = drain(t, viewer)
	left, ok := lastOfType(frames, EventUserLeft)
	if !ok {
		t.Fatal("viewer saw no user_left")
	}
	decodePayload(t, left, &p)
	if p.UserID != 2 {
		t.Errorf("user_left for user %d, want 2", p.UserID)
	}
	if !equalNames(rosterNames(p.Roster.Participants), []string{"alice"}) {
		t.Errorf("participants after leave = %v, want [alice]", rosterNames(p.Roster.Participants))
	}

	// Detach is idempotent.
	r.detach(bob, CloseNormal)
	if frames = drain(t, viewer); len(frames) != 0 {
		t.Errorf("second detach produced %d frames, want 0", len(frames))
	}
	_ = alice
}

func TestReconnectReplacesOldConnection(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)

	first := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	second := admit(t, r, 1, "alice", RoleParticipant, SideProposition)

	r.mu.Lock()
	registered := r.clients[1]
	count := len(r.clients)
	r.mu.Unlock()

	if registered != second {
		t.Error("registry should hold the new connection")
	}
	if count != 1 {
		t.Errorf("registry size = %d, want 1", count)
	}
	if first.closeCode != CloseReplaced {
		t.Errorf("old connection close code = %d, want %d", first.closeCode, CloseReplaced)
	}
}

func TestParticipantJoinWindowCloses(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	admit(t, r, 2, "bob", RoleParticipant, SideOpposition)
	toDebating(t, r)

	c := newClient(r, newFakeConn(), Identity{ID: 3, Username: "carol"}, RoleParticipant, SideProposition)
	if err := r.admit(c); !errors.Is(err, ErrPhaseNotJoinable) {
		t.Fatalf("participant admit in debating = %v, want ErrPhaseNotJoinable", err)
	}

	// The same identity may still attach as a viewer.
	admit(t, r, 3, "carol", RoleViewer, "")
}

func TestSessionCapacity(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	eng.mu.Lock()
	delete(eng.rooms, testSessionID)
	eng.mu.Unlock()
	cfg := testConfig()
	cfg.MaxParticipants = 2
	r := newRoom(eng, cfg)

	admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	admit(t, r, 2, "bob", RoleParticipant, SideOpposition)

	c := newClient(r, newFakeConn(), Identity{ID: 3, Username: "carol"}, RoleParticipant, SideProposition)
	if err := r.admit(c); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("admit over capacity = %v, want ErrSessionFull", err)
	}

	// Capacity only caps participants.
	admit(t, r, 3, "carol", RoleViewer, "")
}

func TestParticipantRequiresSide(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	c := newClient(r, newFakeConn(), Identity{ID: 1, Username: "alice"}, RoleParticipant, "")
	if err := r.admit(c); !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("admit without side = %v, want ErrPreconditionNotMet", err)
	}
}

func TestStartDebateRequiresBothSides(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	admit(t, r, 1, "alice", RoleParticipant, SideProposition)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.phaseControlLocked(testModeratorID, ActionStartJoining, ""); err != nil {
		t.Fatalf("start_joining: %v", err)
	}
	if err := r.phaseControlLocked(testModeratorID, ActionStartDebate, ""); !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("start_debate with one side = %v, want ErrPreconditionNotMet", err)
	}
	if r.phase != PhaseJoining {
		t.Errorf("phase = %s, want joining (unchanged on failed transition)", r.phase)
	}
}

func TestPhaseControlRequiresModerator(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.phaseControlLocked(1, ActionStartJoining, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-moderator phase control = %v, want ErrForbidden", err)
	}
}

func TestEndSessionIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.phaseControlLocked(testModeratorID, ActionEndSession, ""); err != nil {
		t.Fatalf("end_session: %v", err)
	}
	if err := r.phaseControlLocked(testModeratorID, ActionEndSession, ""); err != nil {
		t.Fatalf("repeated end_session = %v, want nil (idempotent no-op)", err)
	}
	if err := r.phaseControlLocked(testModeratorID, ActionStartJoining, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("start_joining after end = %v, want ErrInvalidTransition", err)
	}
}

func TestViewerCannotSendMessages(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	admit(t, r, 2, "bob", RoleParticipant, SideOpposition)
	viewer := admit(t, r, 3, "carol", RoleViewer, "")
	toDebating(t, r)
	drain(t, viewer)

	r.handleCommand(viewer, Command{Type: CommandSendMessage, Content: "hi"})

	frames := drain(t, viewer)
	errFrame, ok := lastOfType(frames, EventError)
	if !ok {
		t.Fatal("viewer got no error event")
	}
	var ep ErrorPayload
	decodePayload(t, errFrame, &ep)
	if ep.Code != "forbidden" {
		t.Errorf("error code = %s, want forbidden", ep.Code)
	}
	if _, ok := lastOfType(frames, EventMessage); ok {
		t.Error("viewer send must not produce a message broadcast")
	}
}

func TestMutedSendRejected(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	mod := admit(t, r, testModeratorID, "mod", RoleViewer, "")
	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	bob := admit(t, r, 2, "bob", RoleParticipant, SideOpposition)
	toDebating(t, r)

	r.handleCommand(mod, Command{Type: CommandModerate, Action: ModerationMute, Target: 1, Reason: "spam"})
	drain(t, bob)

	r.handleCommand(alice, Command{Type: CommandSendMessage, Content: "let me speak"})

	frames := drain(t, alice)
	errFrame, ok := lastOfType(frames, EventError)
	if !ok {
		t.Fatal("muted sender got no error event")
	}
	var ep ErrorPayload
	decodePayload(t, errFrame, &ep)
	if ep.Code != "muted" {
		t.Errorf("error code = %s, want muted", ep.Code)
	}
	if frames := drain(t, bob); len(frames) != 0 {
		t.Errorf("muted send broadcast %d frames, want 0", len(frames))
	}

	// Unmute restores sending.
	r.handleCommand(mod, Command{Type: CommandModerate, Action: ModerationUnmute, Target: 1})
	r.handleCommand(alice, Command{Type: CommandSendMessage, Content: "thanks"})
	if _, ok := lastOfType(drain(t, bob), EventMessage); !ok {
		t.Error("unmuted send did not broadcast")
	}
}

func TestMessagePhaseGates(t *testing.T) {
	eng, _ := newTestEngine(t, Options{ClosingGrace: time.Minute})
	r := testRoom(t, eng)
	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	admit(t, r, 2, "bob", RoleParticipant, SideOpposition)

	// Arguments need the debating phase.
	r.handleCommand(alice, Command{Type: CommandSendMessage, Content: "too early"})
	frames := drain(t, alice)
	if f, ok := lastOfType(frames, EventError); ok {
		var ep ErrorPayload
		decodePayload(t, f, &ep)
		if ep.Code != "phase_not_sendable" {
			t.Errorf("error code = %s, want phase_not_sendable", ep.Code)
		}
	} else {
		t.Fatal("pre-debate send got no error")
	}

	toVoting(t, r)
	drain(t, alice)

	// Closing remarks ride the grace window after the voting transition.
	r.handleCommand(alice, Command{Type: CommandSendMessage, Content: "in summary", MessageType: string(MessageClosing)})
	if _, ok := lastOfType(drain(t, alice), EventMessage); !ok {
		t.Error("closing remark in grace window was not broadcast")
	}

	// Arguments are no longer accepted during voting.
	r.handleCommand(alice, Command{Type: CommandSendMessage, Content: "one more point", MessageType: string(MessageArgument)})
	if _, ok := lastOfType(drain(t, alice), EventMessage); ok {
		t.Error("argument during voting must not broadcast")
	}
}

func TestMessageContentValidation(t *testing.T) {
	eng, _ := newTestEngine(t, Options{MaxMessageLength: 10})
	r := testRoom(t, eng)
	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	admit(t, r, 2, "bob", RoleParticipant, SideOpposition)
	toDebating(t, r)
	drain(t, alice)

	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"blank after trim", "   ", "empty_message"},
		{"over length cap", "this is far too long", "message_too_long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.handleCommand(alice, Command{Type: CommandSendMessage, Content: tt.content})
			f, ok := lastOfType(drain(t, alice), EventError)
			if !ok {
				t.Fatal("no error event")
			}
			var ep ErrorPayload
			decodePayload(t, f, &ep)
			if ep.Code != tt.code {
				t.Errorf("error code = %s, want %s", ep.Code, tt.code)
			}
		})
	}
}

func TestRemoveOrderingAndReattach(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	mod := admit(t, r, testModeratorID, "mod", RoleViewer, "")
	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	bob := admit(t, r, 2, "bob", RoleParticipant, SideOpposition)
	drain(t, bob)

	r.handleCommand(mod, Command{Type: CommandModerate, Action: ModerationRemove, Target: 1, Reason: "conduct"})

	frames := drain(t, bob)
	var sawModeration, sawLeft bool
	for _, f := range frames {
		switch f.Type {
		case EventModerationAction:
			if sawLeft {
				t.Error("moderation_action must precede user_left for removals")
			}
			sawModeration = true
		case EventUserLeft:
			sawLeft = true
		}
	}
	if !sawModeration || !sawLeft {
		t.Fatalf("observer frames missing moderation/left: moderation=%v left=%v", sawModeration, sawLeft)
	}
	if alice.closeCode != CloseRemoved {
		t.Errorf("removed close code = %d, want %d", alice.closeCode, CloseRemoved)
	}

	// Removed identities stay out by default, in any role.
	c := newClient(r, newFakeConn(), Identity{ID: 1, Username: "alice"}, RoleViewer, "")
	if err := r.admit(c); !errors.Is(err, ErrRemovedFromSession) {
		t.Fatalf("removed re-attach = %v, want ErrRemovedFromSession", err)
	}
}

func TestRemovedMayReturnAsViewerWhenAllowed(t *testing.T) {
	eng, _ := newTestEngine(t, Options{AllowRemovedViewer: true})
	r := testRoom(t, eng)
	mod := admit(t, r, testModeratorID, "mod", RoleViewer, "")
	admit(t, r, 1, "alice", RoleParticipant, SideProposition)

	r.handleCommand(mod, Command{Type: CommandModerate, Action: ModerationRemove, Target: 1})

	viewer := admit(t, r, 1, "alice", RoleViewer, "")
	r.detach(viewer, CloseNormal)

	c := newClient(r, newFakeConn(), Identity{ID: 1, Username: "alice"}, RoleParticipant, SideProposition)
	if err := r.admit(c); !errors.Is(err, ErrRemovedFromSession) {
		t.Fatalf("removed re-attach as participant = %v, want ErrRemovedFromSession", err)
	}
}

func TestWarnIncrementsCount(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	mod := admit(t, r, testModeratorID, "mod", RoleViewer, "")
	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	drain(t, alice)

	r.handleCommand(mod, Command{Type: CommandModerate, Action: ModerationWarn, Target: 1, Reason: "tone"})
	r.handleCommand(mod, Command{Type: CommandModerate, Action: ModerationWarn, Target: 1, Reason: "tone again"})

	f, ok := lastOfType(drain(t, alice), EventModerationAction)
	if !ok {
		t.Fatal("no moderation_action broadcast")
	}
	var mp ModerationPayload
	decodePayload(t, f, &mp)
	if mp.WarningCount != 2 {
		t.Errorf("warning count = %d, want 2", mp.WarningCount)
	}
	if alice.warnings != 2 {
		t.Errorf("connection warnings = %d, want 2", alice.warnings)
	}
}

func TestModerateRejectsUnknownAction(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	mod := admit(t, r, testModeratorID, "mod", RoleViewer, "")
	admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	drain(t, mod)

	r.handleCommand(mod, Command{Type: CommandModerate, Action: "banish", Target: 1})
	f, ok := lastOfType(drain(t, mod), EventError)
	if !ok {
		t.Fatal("unknown action got no error")
	}
	var ep ErrorPayload
	decodePayload(t, f, &ep)
	if ep.Code != "precondition_not_met" {
		t.Errorf("error code = %s, want precondition_not_met", ep.Code)
	}

	r.mu.Lock()
	audits := len(r.actions)
	r.mu.Unlock()
	if audits != 0 {
		t.Errorf("audit log has %d entries, want 0 for a rejected action", audits)
	}
}

func TestModerationRequiresModerator(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	admit(t, r, 2, "bob", RoleParticipant, SideOpposition)
	drain(t, alice)

	r.handleCommand(alice, Command{Type: CommandModerate, Action: ModerationMute, Target: 2})
	f, ok := lastOfType(drain(t, alice), EventError)
	if !ok {
		t.Fatal("no error event")
	}
	var ep ErrorPayload
	decodePayload(t, f, &ep)
	if ep.Code != "forbidden" {
		t.Errorf("error code = %s, want forbidden", ep.Code)
	}
}

func TestSlowConsumerIsDetached(t *testing.T) {
	eng, _ := newTestEngine(t, Options{SendQueueDepth: 1})
	r := testRoom(t, eng)
	slow := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	// alice's own user_joined already fills her queue of one; the next
	// broadcast cannot be delivered and must force a detach instead of
	// blocking the hub.
	admit(t, r, 2, "bob", RoleParticipant, SideOpposition)

	r.mu.Lock()
	_, still := r.clients[1]
	r.mu.Unlock()
	if still {
		t.Fatal("slow consumer should have been detached")
	}
	if slow.closeCode != CloseSlowConsumer {
		t.Errorf("close code = %d, want %d", slow.closeCode, CloseSlowConsumer)
	}
}

func TestTypingNotifications(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	bob := admit(t, r, 2, "bob", RoleParticipant, SideOpposition)
	drain(t, bob)

	r.handleCommand(alice, Command{Type: CommandTyping, Action: "start"})
	f, ok := lastOfType(drain(t, bob), EventTypingNotification)
	if !ok {
		t.Fatal("no typing_notification broadcast")
	}
	var tp TypingPayload
	decodePayload(t, f, &tp)
	if tp.Action != "start" || tp.UserID != 1 {
		t.Errorf("typing payload = %+v, want start from user 1", tp)
	}

	r.handleCommand(alice, Command{Type: CommandTyping, Action: "stop"})
	f, ok = lastOfType(drain(t, bob), EventTypingNotification)
	if !ok {
		t.Fatal("no stop notification")
	}
	decodePayload(t, f, &tp)
	if tp.Action != "stop" {
		t.Errorf("typing action = %s, want stop", tp.Action)
	}
}

func TestPingPong(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	r := testRoom(t, eng)
	alice := admit(t, r, 1, "alice", RoleParticipant, SideProposition)
	drain(t, alice)

	r.handleCommand(alice, Command{Type: CommandPing})
	frames := drain(t, alice)
	pong, ok := lastOfType(frames, EventPong)
	if !ok {
		t.Fatal("ping got no pong")
	}
	if pong.Seq != 0 {
		t.Errorf("pong seq = %d, want 0 (unicast events are unsequenced)", pong.Seq)
	}
}
