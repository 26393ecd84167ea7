package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// session is one websocket connection. Outbound messages go through the
// buffered send channel so the writer goroutine is the only place that
// touches the connection for writes.
type session struct {
	id   uint64
	conn *websocket.Conn
	send chan any

	mu     sync.Mutex
	userID uint64
	authed bool
	closed bool
}

// trySend queues a message, dropping it if the session is backlogged or
// closing. Slow consumers miss updates rather than stalling the
// scheduler.
func (s *session) trySend(msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- msg:
	default:
	}
}

func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()
	_ = s.conn.Close()
}

func (s *session) isAuthed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *session) user() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.authed
}

func (s *session) writeLoop() {
	for msg := range s.send {
		if err := s.conn.WriteJSON(msg); err != nil {
			_ = s.conn.Close()
			return
		}
	}
}

// sessionRegistry owns the connection maps: session id to session, and
// exchange user id to the session currently bound to it.
type sessionRegistry struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*session
	byUser map[uint64]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		byID:   make(map[uint64]*session),
		byUser: make(map[uint64]*session),
	}
}

func (r *sessionRegistry) add(conn *websocket.Conn) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	sess := &session{id: r.nextID, conn: conn, send: make(chan any, 32)}
	r.byID[sess.id] = sess
	return sess
}

func (r *sessionRegistry) remove(sess *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, sess.id)
	if userID, ok := sess.user(); ok && r.byUser[userID] == sess {
		delete(r.byUser, userID)
	}
}

// bind marks the session authenticated as userID. When the user already
// has a live session, that one is returned for eviction; a second login
// replaces the first.
func (r *sessionRegistry) bind(sess *session, userID uint64) (evicted *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byUser[userID]; ok && prev != sess {
		evicted = prev
	}
	r.byUser[userID] = sess

	sess.mu.Lock()
	sess.userID = userID
	sess.authed = true
	sess.mu.Unlock()
	return evicted
}

// byUserID returns the session bound to a user, if any.
func (r *sessionRegistry) byUserID(userID uint64) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byUser[userID]
	return sess, ok
}

// authed snapshots all authenticated sessions.
func (r *sessionRegistry) authed() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.byUser))
	for _, sess := range r.byUser {
		out = append(out, sess)
	}
	return out
}
