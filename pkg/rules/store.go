package rules

import (
	"sync"
)

// Store holds the live rule list. The list is read-mostly: the scheduler
// takes a copy at the start of each tick and the configuration/HTTP layer
// replaces it wholesale. There is no partial update.
type Store struct {
	mu    sync.RWMutex
	rules []LinkRule
}

// NewStore creates a store seeded with the given rules.
func NewStore(list []LinkRule) *Store {
	s := &Store{}
	s.Replace(list)
	return s
}

// Rules returns a copy of the current rule list.
func (s *Store) Rules() []LinkRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LinkRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Replace swaps in a new rule list wholesale.
func (s *Store) Replace(list []LinkRule) {
	s.mu.Lock()
	s.rules = make([]LinkRule, len(list))
	copy(s.rules, list)
	s.mu.Unlock()
}

// Len returns the number of rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}
