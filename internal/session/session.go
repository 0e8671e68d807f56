// Package session owns per-user conversation state: an append-only,
// size-capped turn sequence plus the lock that serializes concurrent asks
// from the same session.
package session

import (
	"sync"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one conversation entry. Turns are never mutated after creation.
type Turn struct {
	Role          Role   `json:"role"`
	Text          string `json:"text"`
	SQL           string `json:"sql,omitempty"`
	ResultSummary string `json:"result_summary,omitempty"`
}

// Session holds the conversation history for one user interaction lifetime.
// mu guards the turn slice for short reads and writes; inflightMu is held
// across an entire ask to serialize concurrent requests.
type Session struct {
	ID string

	mu         sync.Mutex
	inflightMu sync.Mutex
	turns      []Turn
	maxTurns   int
}

func New(maxTurns int) *Session {
	return &Session{ID: uuid.NewString(), maxTurns: maxTurns}
}

// Append records turns, evicting the oldest beyond the cap.
func (s *Session) Append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
	if s.maxTurns > 0 && len(s.turns) > s.maxTurns {
		s.turns = s.turns[len(s.turns)-s.maxTurns:]
	}
}

// Recent returns a copy of the last k turns (all turns when k <= 0).
func (s *Session) Recent(k int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if k > 0 && len(s.turns) > k {
		start = len(s.turns) - k
	}
	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// Lock serializes in-flight requests for this session so history append
// ordering stays deterministic. Callers must call the returned unlock.
func (s *Session) Lock() func() {
	s.inflightMu.Lock()
	return s.inflightMu.Unlock
}

// Registry tracks live sessions by ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxTurns int
}

func NewRegistry(maxTurns int) *Registry {
	return &Registry{sessions: make(map[string]*Session), maxTurns: maxTurns}
}

// Create registers and returns a new session.
func (r *Registry) Create() *Session {
	s := New(r.maxTurns)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for an ID, if it exists.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Drop removes a session.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
