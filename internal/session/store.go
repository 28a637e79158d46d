package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

const (
	maxMessages          = 50
	defaultHistoryWindow = 20
	defaultLevel         = 1
)

// LevelFunc recomputes the frustration level after a user turn. The store
// calls it with the number of user turns seen so far.
type LevelFunc func(userTurns int) int

// Store owns every live session. State is process-lifetime only.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timeout  time.Duration
	level    LevelFunc
	now      func() time.Time
}

func NewStore(timeout time.Duration, level LevelFunc) *Store {
	if timeout <= 0 {
		timeout = time.Hour
	}
	if level == nil {
		level = func(int) int { return defaultLevel }
	}
	return &Store{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		level:    level,
		now:      time.Now,
	}
}

// SetClock overrides the store's time source. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// GetOrCreate returns the session for id, refreshing its last-access time,
// or creates a fresh one. It never fails.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	if sess, ok := s.sessions[id]; ok {
		sess.LastAccessAt = now
		return clone(sess)
	}

	sess := &Session{
		ID:               id,
		CreatedAt:        now,
		LastAccessAt:     now,
		Messages:         []Message{},
		MessageCount:     0,
		FrustrationLevel: defaultLevel,
		Context:          map[string]string{},
	}
	s.sessions[id] = sess
	return clone(sess)
}

// Get looks a session up without creating it.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(sess), nil
}

// Append adds a message to the session history, recomputes the frustration
// level on user turns and trims the history to the most recent 50 entries.
// Unlike GetOrCreate it never creates a session implicitly.
func (s *Store) Append(id string, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	now := s.now().Unix()
	sess.Messages = append(sess.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	sess.MessageCount++

	if role == RoleUser {
		sess.FrustrationLevel = s.level(countUserTurns(sess.Messages))
	}

	if len(sess.Messages) > maxMessages {
		trimmed := make([]Message, maxMessages)
		copy(trimmed, sess.Messages[len(sess.Messages)-maxMessages:])
		sess.Messages = trimmed
	}

	sess.LastAccessAt = now
	return nil
}

// RecentHistory returns up to n of the most recent messages in order.
// n <= 0 selects the default 20-message window. Unknown ids yield an
// empty slice, not an error.
func (s *Store) RecentHistory(id string, n int) []Message {
	if n <= 0 {
		n = defaultHistoryWindow
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}

	msgs := sess.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Delete removes a session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// SweepExpired removes every session idle longer than the store timeout
// and returns how many were dropped.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	cutoff := int64(s.timeout / time.Second)
	removed := 0
	for id, sess := range s.sessions {
		if now-sess.LastAccessAt > cutoff {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor runs the expiry sweep on a ticker until ctx is cancelled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := s.SweepExpired()
				if onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// All returns a snapshot of every live session for the debug surface.
func (s *Store) All() Overview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	details := make(map[string]*Session, len(s.sessions))
	for id, sess := range s.sessions {
		ids = append(ids, id)
		details[id] = clone(sess)
	}
	return Overview{
		TotalSessions: len(s.sessions),
		Sessions:      ids,
		Details:       details,
	}
}

func countUserTurns(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

func clone(sess *Session) *Session {
	c := *sess
	c.Messages = make([]Message, len(sess.Messages))
	copy(c.Messages, sess.Messages)
	c.Context = make(map[string]string, len(sess.Context))
	for k, v := range sess.Context {
		c.Context[k] = v
	}
	return &c
}
