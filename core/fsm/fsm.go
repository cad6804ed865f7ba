// Package fsm provides a small table-driven finite-state machine.
//
// A machine is built once from a closed list of state values and a table that binds
// each state to an optional enter handler and an optional event handler. Entering a
// state runs its enter handler first and commits the new state only after the handler
// returns without error, so the handler still observes the state being left.
package fsm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotEnumeration reports that the state list handed to New is not a proper enumeration.
var ErrNotEnumeration = errors.New("fsm: state type is not an enumeration")

// EnterFunc runs when the machine enters a state. prev is the state being left.
type EnterFunc[S comparable] func(ctx context.Context, prev S) error

// EventFunc handles an inbound event while the machine sits in a state.
type EventFunc[E any] func(ctx context.Context, ev E) error

// Handlers binds the optional enter and event handlers of a single state.
type Handlers[S comparable, E any] struct {
	Enter  EnterFunc[S]
	Handle EventFunc[E]
}

// Table maps state values to their handlers. States without an entry have no handlers.
type Table[S comparable, E any] map[S]Handlers[S, E]

// Observer is notified after every committed transition.
type Observer[S comparable] func(ctx context.Context, from, to S)

// Option customises a Machine at construction.
type Option[S comparable] func(*options[S])

type options[S comparable] struct {
	observers []Observer[S]
}

// WithObserver registers fn to be called after each committed transition.
func WithObserver[S comparable](fn Observer[S]) Option[S] {
	return func(o *options[S]) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// Machine holds the current state and the dispatch tables resolved at construction.
// It performs no locking; callers serialize access to a single machine.
type Machine[S comparable, E any] struct {
	state     S
	states    []S
	enter     map[S]EnterFunc[S]
	events    map[S]EventFunc[E]
	observers []Observer[S]
}

// New resolves the handlers of every state in states and returns a machine sitting in initial.
// It fails with ErrNotEnumeration when states is empty, holds duplicates, does not contain
// initial, or when table binds a value outside of states.
func New[S comparable, E any](initial S, states []S, table Table[S, E], opts ...Option[S]) (*Machine[S, E], error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: empty state list", ErrNotEnumeration)
	}

	known := make(map[S]struct{}, len(states))
	for _, s := range states {
		if _, dup := known[s]; dup {
			return nil, fmt.Errorf("%w: duplicate state %v", ErrNotEnumeration, s)
		}
		known[s] = struct{}{}
	}
	if _, ok := known[initial]; !ok {
		return nil, fmt.Errorf("%w: initial state %v is not enumerated", ErrNotEnumeration, initial)
	}
	for s := range table {
		if _, ok := known[s]; !ok {
			return nil, fmt.Errorf("%w: handlers bound to unknown state %v", ErrNotEnumeration, s)
		}
	}

	var o options[S]
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	m := &Machine[S, E]{
		state:     initial,
		states:    append([]S(nil), states...),
		enter:     make(map[S]EnterFunc[S]),
		events:    make(map[S]EventFunc[E]),
		observers: o.observers,
	}
	for _, s := range states {
		h, ok := table[s]
		if !ok {
			continue
		}
		if h.Enter != nil {
			m.enter[s] = h.Enter
		}
		if h.Handle != nil {
			m.events[s] = h.Handle
		}
	}
	return m, nil
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	return m.state
}

// States returns the enumeration the machine was built from.
func (m *Machine[S, E]) States() []S {
	return append([]S(nil), m.states...)
}

// Transition runs the enter handler of next with the current state as argument and then
// commits next. When the enter handler fails the state is left untouched.
func (m *Machine[S, E]) Transition(ctx context.Context, next S) error {
	prev := m.state
	if fn, ok := m.enter[next]; ok {
		if err := fn(ctx, prev); err != nil {
			return fmt.Errorf("fsm: enter %v: %w", next, err)
		}
	}
	m.state = next
	for _, obs := range m.observers {
		obs(ctx, prev, next)
	}
	return nil
}

// Dispatch hands ev to the event handler of the current state. Without a handler it is a no-op.
func (m *Machine[S, E]) Dispatch(ctx context.Context, ev E) error {
	fn, ok := m.events[m.state]
	if !ok {
		return nil
	}
	return fn(ctx, ev)
}

// Handles reports whether the current state has an event handler.
func (m *Machine[S, E]) Handles() bool {
	_, ok := m.events[m.state]
	return ok
}
