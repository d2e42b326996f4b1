package application

import (
	"sync"

	"github.com/bnema/fleet-cli/internal/domain"
)

// SessionState is the in-memory session. Only SessionManager mutates it;
// everyone else reads snapshots.
type SessionState struct {
	mu      sync.RWMutex
	session domain.Session
}

func NewSessionState() *SessionState {
	return &SessionState{}
}

func (s *SessionState) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneSession(s.session)
}

// update applies fn under the write lock and re-establishes the session
// invariant before publishing.
func (s *SessionState) update(fn func(*domain.Session)) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneSession(s.session)
	fn(&next)
	s.session = next.Normalize()
	return cloneSession(s.session)
}

func cloneSession(session domain.Session) domain.Session {
	if session.User != nil {
		user := *session.User
		session.User = &user
	}
	return session
}
