package history

import (
	"sync"
	"time"
)

// DefaultCapacity is how many turns are kept per user.
const DefaultCapacity = 3

// Turn is one question and the answer that was sent for it.
type Turn struct {
	UserInput   string
	BotResponse string
}

type session struct {
	mu       sync.Mutex
	turns    []Turn
	lastSeen time.Time
	evicted  bool
}

// Manager keeps the most recent turns of every user in memory. Appends for
// one user are serialized by that user's lock; different users never block
// each other beyond the map lookup.
type Manager struct {
	mu       sync.RWMutex
	capacity int
	sessions map[string]*session
	now      func() time.Time
}

func NewManager() *Manager {
	return NewManagerWithCapacity(DefaultCapacity)
}

func NewManagerWithCapacity(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		capacity: capacity,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (m *Manager) Reset(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.mu.Lock()
		s.evicted = true
		s.mu.Unlock()
		delete(m.sessions, userID)
	}
}

// Append records a turn, dropping the oldest one when the user already has
// capacity turns.
func (m *Manager) Append(userID string, turn Turn) {
	for {
		s := m.session(userID)
		s.mu.Lock()
		if s.evicted {
			// Swept or reset between lookup and lock; retry on a fresh session.
			s.mu.Unlock()
			continue
		}
		s.turns = append(s.turns, turn)
		if over := len(s.turns) - m.capacity; over > 0 {
			s.turns = append(s.turns[:0:0], s.turns[over:]...)
		}
		s.lastSeen = m.now()
		s.mu.Unlock()
		return
	}
}

// Recent returns a copy of the user's turns, oldest first.
func (m *Manager) Recent(userID string) []Turn {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Sweep forgets users whose last turn is older than cutoff and returns how
// many were removed.
func (m *Manager) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		if s.lastSeen.Before(cutoff) {
			s.evicted = true
			delete(m.sessions, id)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Users returns the number of users with stored turns.
func (m *Manager) Users() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) session(userID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[userID]; ok {
		return s
	}
	s = &session{lastSeen: m.now()}
	m.sessions[userID] = s
	return s
}
