package dialog

import (
	"context"
	"sync"
)

// Session serializes the events of one user on a Dialogue.
type Session struct {
	mu       sync.Mutex
	dialogue *Dialogue
}

// NewSession wraps d.
func NewSession(d *Dialogue) *Session {
	return &Session{dialogue: d}
}

// Dispatch hands ev to the dialogue under the session lock and reports the states
// before and after the event.
func (s *Session) Dispatch(ctx context.Context, ev Event) (before, after State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before = s.dialogue.State()
	err = s.dialogue.Dispatch(ctx, ev)
	return before, s.dialogue.State(), err
}

// State returns the current state of the dialogue.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue.State()
}

// Draft returns the answers collected so far.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue.Draft()
}
