package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// ErrStageNotFound is returned when a stage is positioned relative to a name that is not on the stack.
var ErrStageNotFound = errors.New("stage not found")

// ErrStackFrozen is returned when a stage is added to a stack that has already been resolved.
var ErrStackFrozen = errors.New("stack already resolved")

type stage struct {
	name       string
	middleware Middleware
}

// Stack is an ordered list of named middleware wrapped around a terminal handler. The first stage is
// the outermost one: it sees the request first and the response last.
//
// A stack may be modified until Resolve is called; after that its composition is fixed.
type Stack struct {
	handler Handler
	stages  []stage

	mu       sync.Mutex
	resolved Handler
}

// NewStack creates a stack around the given terminal handler.
func NewStack(handler Handler) *Stack {
	return &Stack{handler: handler}
}

// Push adds a middleware at the inner end of the stack.
func (s *Stack) Push(m Middleware, name string) error {
	return s.insert(len(s.stages), m, name)
}

// Unshift adds a middleware at the outer end of the stack.
func (s *Stack) Unshift(m Middleware, name string) error {
	return s.insert(0, m, name)
}

// Before adds a middleware directly outside the stage called findName.
func (s *Stack) Before(findName string, m Middleware, name string) error {
	idx := s.index(findName)
	if idx < 0 {
		return fmt.Errorf("before %q: %w", findName, ErrStageNotFound)
	}

	return s.insert(idx, m, name)
}

// After adds a middleware directly inside the stage called findName.
func (s *Stack) After(findName string, m Middleware, name string) error {
	idx := s.index(findName)
	if idx < 0 {
		return fmt.Errorf("after %q: %w", findName, ErrStageNotFound)
	}

	return s.insert(idx+1, m, name)
}

// Remove drops every stage with the given name.
func (s *Stack) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved != nil {
		return ErrStackFrozen
	}

	kept := s.stages[:0]
	for _, st := range s.stages {
		if st.name != name {
			kept = append(kept, st)
		}
	}
	s.stages = kept

	return nil
}

// Names returns the stage names from the outermost to the innermost stage.
func (s *Stack) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.stages))
	for _, st := range s.stages {
		names = append(names, st.name)
	}

	return names
}

// Resolve composes the stack into a single handler and freezes it. Subsequent calls return the same
// handler.
func (s *Stack) Resolve() Handler {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved != nil {
		return s.resolved
	}

	h := s.handler
	for i := len(s.stages) - 1; i >= 0; i-- {
		h = s.stages[i].middleware.Wrap(h)
	}
	s.resolved = h

	return h
}

func (s *Stack) index(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, st := range s.stages {
		if st.name == name {
			return i
		}
	}

	return -1
}

func (s *Stack) insert(idx int, m Middleware, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved != nil {
		return ErrStackFrozen
	}

	s.stages = append(s.stages, stage{})
	copy(s.stages[idx+1:], s.stages[idx:])
	s.stages[idx] = stage{name: name, middleware: m}

	return nil
}
