package services

import (
	"context"
	"log"
	"sync"
	"time"

	"cropadvisor/models"
)

// DefaultSessionTTL is how long an idle chat session is kept
const DefaultSessionTTL = 30 * time.Minute

// ChatSession is one user's conversation
type ChatSession struct {
	ID        string
	Language  models.Language
	Stage     Stage
	CreatedAt time.Time
	LastSeen  time.Time
}

// Transition is applied to a session under the store lock. It must not block.
type Transition func(ChatSession) (ChatSession, Reply)

// Advance runs one conversation turn on a session
func Advance(message string) Transition {
	return func(s ChatSession) (ChatSession, Reply) {
		next, reply := s.Stage.Next(message, s.Language)
		s.Stage = next
		return s, reply
	}
}

// SessionStore keeps chat sessions in memory with an idle TTL
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]ChatSession
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store. A ttl of zero selects DefaultSessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]ChatSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Apply looks up or creates the session and runs fn on it. An expired
// session is replaced by a fresh one. The language of the turn becomes the
// session language.
func (s *SessionStore) Apply(id string, lang models.Language, fn Transition) (ChatSession, Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session, ok := s.sessions[id]
	if !ok || s.expired(session, now) {
		session = ChatSession{ID: id, Stage: StartStage{}, CreatedAt: now}
	}
	session.Language = lang

	session, reply := fn(session)
	session.LastSeen = now
	s.sessions[id] = session
	return session, reply
}

// Update runs fn on an existing live session. It reports whether the
// session was found.
func (s *SessionStore) Update(id string, fn Transition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || s.expired(session, s.now()) {
		return false
	}
	session, _ = fn(session)
	s.sessions[id] = session
	return true
}

// Get returns a live session
func (s *SessionStore) Get(id string) (ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || s.expired(session, s.now()) {
		return ChatSession{}, false
	}
	return session, true
}

// Close removes a session. It reports whether the session existed.
func (s *SessionStore) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of stored sessions, including expired ones not yet swept
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if s.expired(session, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("Sessions: expired %d idle sessions", n)
			}
		}
	}
}

func (s *SessionStore) expired(session ChatSession, now time.Time) bool {
	return now.Sub(session.LastSeen) > s.ttl
}

// GetStatus returns the status of the session store
func (s *SessionStore) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"active_sessions": s.Len(),
		"ttl":             s.ttl.String(),
	}
}
