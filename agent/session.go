package agent

import (
	"sync"
	"time"

	"tanyabot/metrics"
)

// State is where a session is in the learning conversation.
type State int

const (
	StateIdle State = iota
	StateAwaitingLearningAnswer
	StateAwaitingFeedback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLearningAnswer:
		return "awaiting_learning_answer"
	case StateAwaitingFeedback:
		return "awaiting_feedback"
	}
	return "unknown"
}

// Pending is the unresolved question of a session. ProposedAnswer is set when
// an answer waits for the user's confirmation before being learned.
type Pending struct {
	Query          string
	ProposedAnswer *string
}

// Session holds one conversation's state. The store hands it out locked, so
// the fields are only touched by the goroutine handling that session's message.
type Session struct {
	ID         string
	State      State
	Pending    *Pending
	LastActive time.Time

	mu      sync.Mutex
	removed bool
}

func (s *Session) reset() {
	s.State = StateIdle
	s.Pending = nil
}

func (s *Session) await(state State, p *Pending) {
	s.State = state
	s.Pending = p
}

// SessionStore keeps sessions in memory keyed by session id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSessionStore(m *metrics.Metrics) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		metrics:  m,
		now:      time.Now,
	}
}

// Acquire returns the session for id, creating it when needed, locked for
// the caller. Release must be called when done.
func (ss *SessionStore) Acquire(id string) *Session {
	for {
		ss.mu.Lock()
		s, ok := ss.sessions[id]
		if !ok {
			s = &Session{ID: id, LastActive: ss.now()}
			ss.sessions[id] = s
			ss.metrics.SetActiveSessions(len(ss.sessions))
		}
		ss.mu.Unlock()

		s.mu.Lock()
		if !s.removed {
			return s
		}
		// swept between lookup and lock
		s.mu.Unlock()
	}
}

// Release marks the session active and unlocks it.
func (ss *SessionStore) Release(s *Session) {
	s.LastActive = ss.now()
	s.mu.Unlock()
}

// Snapshot returns a copy of the session's state, for inspection outside the pipeline.
func (ss *SessionStore) Snapshot(id string) (State, *Pending, bool) {
	ss.mu.Lock()
	s, ok := ss.sessions[id]
	ss.mu.Unlock()
	if !ok {
		return StateIdle, nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return StateIdle, nil, false
	}
	var p *Pending
	if s.Pending != nil {
		cp := *s.Pending
		p = &cp
	}
	return s.State, p, true
}

// Len returns the number of sessions held.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Sweep drops sessions idle for longer than maxAge and returns how many were
// removed. Sessions busy with a message are skipped.
func (ss *SessionStore) Sweep(maxAge time.Duration) int {
	cutoff := ss.now().Add(-maxAge)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for id, s := range ss.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.LastActive.Before(cutoff) {
			s.removed = true
			delete(ss.sessions, id)
			removed++
		}
		s.mu.Unlock()
	}
	ss.metrics.SetActiveSessions(len(ss.sessions))
	return removed
}
