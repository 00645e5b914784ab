package repository

import (
	"io"
	"sync"

	"NSSaDS/ftp/internal/domain"
)

type sessionEntry struct {
	session *domain.Session
	closer  io.Closer
}

// SessionRegistry tracks live sessions so the server can report them and
// close their connections on shutdown. Sessions are never persisted.
type SessionRegistry struct {
	sessions      map[string]sessionEntry
	sessionsMutex sync.RWMutex
	closed        bool
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]sessionEntry),
	}
}

// Add registers a session. It reports false once CloseAll has run; the
// caller owns closer and should drop the connection.
func (r *SessionRegistry) Add(session *domain.Session, closer io.Closer) bool {
	r.sessionsMutex.Lock()
	defer r.sessionsMutex.Unlock()

	if r.closed {
		return false
	}
	r.sessions[session.ID] = sessionEntry{session: session, closer: closer}
	return true
}

func (r *SessionRegistry) Remove(sessionID string) {
	r.sessionsMutex.Lock()
	defer r.sessionsMutex.Unlock()

	delete(r.sessions, sessionID)
}

func (r *SessionRegistry) Get(sessionID string) (*domain.Session, bool) {
	r.sessionsMutex.RLock()
	defer r.sessionsMutex.RUnlock()

	entry, ok := r.sessions[sessionID]
	return entry.session, ok
}

func (r *SessionRegistry) Count() int {
	r.sessionsMutex.RLock()
	defer r.sessionsMutex.RUnlock()

	return len(r.sessions)
}

// CloseAll closes every registered connection and refuses later Adds.
// Handlers notice on their next read and unregister themselves.
func (r *SessionRegistry) CloseAll() {
	r.sessionsMutex.Lock()
	r.closed = true
	closers := make([]io.Closer, 0, len(r.sessions))
	for _, entry := range r.sessions {
		closers = append(closers, entry.closer)
	}
	r.sessionsMutex.Unlock()

	for _, c := range closers {
		c.Close()
	}
}
