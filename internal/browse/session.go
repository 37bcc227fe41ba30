package browse

import (
	"sync"

	"github.com/skiffbot/skiff/internal/alist"
)

// Radio holds the two locators a radio job needs. It survives
// navigation until consumed or the session closes.
type Radio struct {
	Audio string
	Image string
}

// State is one chat's browsing session.
type State struct {
	Path    string
	Page    int
	Entries []alist.Entry // full sorted listing of Path
	Radio   Radio
}

// Store maps a chat key to its browsing session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*State)}
}

func (s *Store) get(key string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[key]
	return st, ok
}

// ensure returns the session for key, creating it if absent.
func (s *Store) ensure(key string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[key]
	if !ok {
		st = &State{}
		s.sessions[key] = st
	}
	return st
}

func (s *Store) drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}
