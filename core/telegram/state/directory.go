package state

import "sync"

// Directory is an in-memory, concurrency-safe table of sessions keyed by Telegram user id.
// Sessions live until Delete is called or the process exits.
type Directory[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]T
}

// NewDirectory returns an empty directory.
func NewDirectory[T any]() *Directory[T] {
	return &Directory[T]{sessions: make(map[int64]T)}
}

// Lookup returns the session of userID if one exists.
func (d *Directory[T]) Lookup(userID int64) (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[userID]
	return s, ok
}

// GetOrCreate returns the session of userID, calling create to build it on first use.
// The boolean reports whether a new session was created. create runs under the
// directory lock, so two concurrent first events of one user yield one session.
func (d *Directory[T]) GetOrCreate(userID int64, create func() (T, error)) (T, bool, error) {
	if s, ok := d.Lookup(userID); ok {
		return s, false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[userID]; ok {
		return s, false, nil
	}
	s, err := create()
	if err != nil {
		var zero T
		return zero, false, err
	}
	d.sessions[userID] = s
	return s, true, nil
}

// Delete forgets the session of userID.
func (d *Directory[T]) Delete(userID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, userID)
}

// Len returns the number of sessions.
func (d *Directory[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// Range calls fn for every session until fn returns false.
// fn must not call back into the directory.
func (d *Directory[T]) Range(fn func(userID int64, session T) bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for id, s := range d.sessions {
		if !fn(id, s) {
			return
		}
	}
}
