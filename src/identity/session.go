package identity

import (
	"context"
	"sync"

	"neotrade/src/model"
)

type State int

const (
	StatePending State = iota
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	}
	return "pending"
}

type Resolver interface {
	Resolve(ctx context.Context, credential string) (*Grant, error)
}

// Session resolves an identity in the background. Until it settles, Identity
// reports an unresolved identity and dependent ledger work must wait.
type Session struct {
	resolver   Resolver
	credential string

	start sync.Once
	done  chan struct{}

	mu        sync.Mutex
	state     State
	grant     *Grant
	err       error
	listeners map[int]func(State)
	nextID    int
}

func NewSession(resolver Resolver, credential string) *Session {
	return &Session{
		resolver:   resolver,
		credential: credential,
		done:       make(chan struct{}),
		listeners:  make(map[int]func(State)),
	}
}

// Start begins resolution once; later calls are no-ops.
func (s *Session) Start(ctx context.Context) {
	s.start.Do(func() {
		go s.resolve(ctx)
	})
}

func (s *Session) resolve(ctx context.Context) {
	grant, err := s.resolver.Resolve(ctx, s.credential)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.err = err
	} else {
		s.state = StateResolved
		s.grant = grant
	}
	state := s.state
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	close(s.done)
	for _, fn := range listeners {
		fn(state)
	}
}

// Wait blocks until the session settles or ctx is done.
func (s *Session) Wait(ctx context.Context) (model.Identity, error) {
	select {
	case <-ctx.Done():
		return model.Identity{}, ctx.Err()
	case <-s.done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Identity{}, s.err
	}
	return s.grant.Identity, nil
}

// Done is closed once the session has settled.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the resolved identity, or false while pending or failed.
func (s *Session) Identity() (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grant == nil {
		return model.Identity{}, false
	}
	return s.grant.Identity, true
}

// Credential is the credential issued during resolution, if any.
func (s *Session) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grant == nil {
		return ""
	}
	return s.grant.Credential
}

// OnChange registers fn for the settle notification. A session that already
// settled calls fn right away. The returned func unregisters fn.
func (s *Session) OnChange(fn func(State)) func() {
	s.mu.Lock()
	if s.state != StatePending {
		state := s.state
		s.mu.Unlock()
		fn(state)
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
