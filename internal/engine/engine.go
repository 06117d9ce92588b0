package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	persistAttempts = 3
	persistTimeout  = 10 * time.Second
)

// Engine coordinates every live session in the process. Each session gets
// its own room with its own lock; the engine-level lock only guards the
// room map.
type Engine struct {
	verifier CredentialVerifier
	loader   SessionLoader
	archiver Archiver
	bus      Bus
	opts     Options

	mu          sync.RWMutex
	rooms       map[uint]*room
	endedLocal  map[uint]bool
	persistErrs map[uint]string
}

func New(verifier CredentialVerifier, loader SessionLoader, archiver Archiver, bus Bus, opts Options) *Engine {
	if bus == nil {
		bus = NewMemoryBus()
	}
	return &Engine{
		verifier:    verifier,
		loader:      loader,
		archiver:    archiver,
		bus:         bus,
		opts:        opts.withDefaults(),
		rooms:       make(map[uint]*room),
		endedLocal:  make(map[uint]bool),
		persistErrs: make(map[uint]string),
	}
}

// Attach runs the attach protocol for one incoming connection. Credential
// verification and the session-store read happen before any room lock is
// taken; only registry mutation is exclusive. On success the engine owns the
// connection and its pump goroutines until detach.
func (e *Engine) Attach(ctx context.Context, token string, sessionID uint, role Role, side Side, conn Conn) error {
	if role != RoleParticipant && role != RoleViewer {
		return ErrPreconditionNotMet
	}

	identity, err := e.verifier.VerifyCredential(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	r, err := e.roomFor(ctx, sessionID)
	if err != nil {
		return err
	}

	c := newClient(r, conn, identity, role, side)
	if err := r.admit(c); err != nil {
		return err
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// roomFor returns the live room for a session, creating it from the session
// store on first use. The store read happens outside every lock.
func (e *Engine) roomFor(ctx context.Context, sessionID uint) (*room, error) {
	e.mu.RLock()
	r, ok := e.rooms[sessionID]
	ended := e.endedLocal[sessionID]
	e.mu.RUnlock()
	if ok {
		return r, nil
	}
	if ended {
		return nil, ErrSessionEnded
	}

	cfg, err := e.loader.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.rooms[sessionID]; ok {
		return r, nil
	}
	if e.endedLocal[sessionID] {
		return nil, ErrSessionEnded
	}
	r = newRoom(e, cfg)
	e.rooms[sessionID] = r
	log.Printf("engine: session %d live (topic %q)", cfg.ID, cfg.TopicTitle)
	return r, nil
}

// PhaseControl applies a moderator lifecycle action from the synchronous
// surface. The same guards run for actions arriving over a connection.
func (e *Engine) PhaseControl(ctx context.Context, sessionID, actorID uint, action, reason string) error {
	r, err := e.roomFor(ctx, sessionID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phaseControlLocked(actorID, action, reason)
}

// Live reports whether a session currently has an engine instance.
func (e *Engine) Live(sessionID uint) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.rooms[sessionID]
	return ok
}

// PhaseOf returns the live phase of a session.
func (e *Engine) PhaseOf(sessionID uint) (Phase, bool) {
	if r := e.room(sessionID); r != nil {
		return r.snapshotPhase(), true
	}
	return "", false
}

// RosterOf returns a point-in-time copy of the session roster.
func (e *Engine) RosterOf(sessionID uint) (Roster, bool) {
	if r := e.room(sessionID); r != nil {
		return r.snapshotRoster(), true
	}
	return Roster{}, false
}

// TallyOf returns the aggregate vote counts. Per-voter detail is never
// exposed here; see VotesOf for the moderator view.
func (e *Engine) TallyOf(sessionID uint) (TallyPayload, bool) {
	if r := e.room(sessionID); r != nil {
		return r.snapshotTally(), true
	}
	return TallyPayload{}, false
}

// VotesOf returns the individual votes of a live session. Callers must have
// already established that the requester is the session moderator.
func (e *Engine) VotesOf(sessionID uint) ([]Vote, bool) {
	if r := e.room(sessionID); r != nil {
		return r.snapshotVotes(), true
	}
	return nil, false
}

// PersistWarning reports a degraded-persistence condition for the moderator
// view after a session's archival failed all retries.
func (e *Engine) PersistWarning(sessionID uint) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	msg, ok := e.persistErrs[sessionID]
	return msg, ok
}

func (e *Engine) room(sessionID uint) *room {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rooms[sessionID]
}

// finishSession detaches the room from the engine and hands the durable
// remnants to the archiver off the session lock. Persistence failures are
// retried a bounded number of times and then degrade to a logged warning;
// they never block other sessions.
func (e *Engine) finishSession(sessionID uint, messages []Message, actions []ModerationAction, parts []ParticipationRecord, result TallyResult) {
	e.mu.Lock()
	delete(e.rooms, sessionID)
	e.endedLocal[sessionID] = true
	e.mu.Unlock()

	go func() {
		err := e.withRetries(func(ctx context.Context) error {
			return e.archiver.PersistTranscript(ctx, sessionID, messages, actions, parts)
		})
		if err == nil {
			err = e.withRetries(func(ctx context.Context) error {
				return e.archiver.PersistTally(ctx, sessionID, result)
			})
		}
		if err != nil {
			log.Printf("engine: session %d archive failed: %v", sessionID, err)
			e.mu.Lock()
			e.persistErrs[sessionID] = err.Error()
			e.mu.Unlock()
			return
		}
		log.Printf("engine: session %d archived (%d messages, %d votes)",
			sessionID, len(messages), result.Total)
	}()
}

func (e *Engine) withRetries(fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err = fn(ctx)
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}
