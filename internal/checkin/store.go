package checkin

import (
	"sync"
	"time"

	apperrors "skylane/internal/errors"
	"skylane/internal/logger"
)

// Store holds the live workflow sessions. Sessions are in-memory only; the
// durable record is the event archive written by the consumers.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 45 * time.Minute
	}

	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (st *Store) Put(sess *Session) {
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return sess, nil
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// janitor drops sessions idle past the TTL. Completed sessions age out the
// same way; their record already lives in the archive.
func (st *Store) janitor() {
	interval := st.ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
			st.sweep()
		}
	}
}

func (st *Store) sweep() {
	cutoff := time.Now().Add(-st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	for id, sess := range st.sessions {
		sess.mu.Lock()
		idle := sess.UpdatedAt.Before(cutoff) && !sess.inFlight
		sess.mu.Unlock()

		if idle {
			delete(st.sessions, id)
			logger.Get().Debug("evicted idle session", "session_id", id)
		}
	}
}

func (st *Store) Close() {
	st.stopOnce.Do(func() { close(st.stop) })
}
