package server

import (
	"sort"
	"sync"
)

// Registry is the authoritative mapping from user id to live session. At
// most one session exists per user; registering a second connection for the
// same user evicts the first.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int]*Session),
	}
}

// Register installs sess as the sole live session for its user and returns
// the session it replaced, if any. The caller is responsible for closing
// the replaced session.
func (r *Registry) Register(sess *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[sess.user.Id]
	r.sessions[sess.user.Id] = sess

	return prev
}

// Unregister removes sess only if it is still the registered session for
// its user. A disconnect from a session that has already been replaced is
// ignored, so an old connection's close event can never evict a newer one.
// Returns true when an entry was actually removed.
func (r *Registry) Unregister(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.sessions[sess.user.Id]
	if !ok || cur.id != sess.id {
		return false
	}

	delete(r.sessions, sess.user.Id)
	return true
}

func (r *Registry) Get(userId int) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[userId]
	return sess, ok
}

func (r *Registry) IsOnline(userId int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[userId]
	return ok
}

// Snapshot returns the ids of all online users, sorted for deterministic
// payloads.
func (r *Registry) Snapshot() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	online := make([]int, 0, len(r.sessions))
	for userId := range r.sessions {
		online = append(online, userId)
	}
	sort.Ints(online)

	return online
}

// Sessions returns every live session. The slice is a copy; sessions may
// still close concurrently.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}

	return sessions
}

func (r *Registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
