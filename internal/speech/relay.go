package speech

import (
	"context"
	"fmt"
	"sync"
)

// Pusher is implemented by sessions whose events are delivered from outside
// the process, such as the browser relay.
type Pusher interface {
	Push(results []Result) error
	PushSeq(seq uint64, results []Result) error
	Fail(err error) error
}

// Relay is a recognizer backed by the client's own speech recognition. The
// browser does the capture and posts its cumulative results back, which are
// pushed into the session here.
type Relay struct {
	supported bool
}

// NewRelay returns a relay for a client that reported whether it supports
// speech recognition.
func NewRelay(supported bool) *Relay {
	return &Relay{supported: supported}
}

func (r *Relay) Name() string    { return "browser" }
func (r *Relay) Available() bool { return r.supported }

func (r *Relay) NewSession(ctx context.Context, cfg Config, h Handler) (Session, error) {
	if !r.supported {
		return nil, ErrUnavailable
	}
	return &RelaySession{ctx: ctx, cfg: cfg, h: h}, nil
}

type RelaySession struct {
	ctx context.Context
	cfg Config
	h   Handler

	mu      sync.Mutex
	started bool
	stopped bool

	// deliver serializes handler calls so lastSeq and the applied result
	// list advance together. Stop does not take it, so a handler may stop
	// the session.
	deliver sync.Mutex
	lastSeq uint64
}

func (s *RelaySession) Config() Config { return s.cfg }

func (s *RelaySession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSessionStopped
	}
	s.started = true
	return nil
}

func (s *RelaySession) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

func (s *RelaySession) active() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return ErrSessionStopped
	}
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("relay session: %w", err)
	}
	return nil
}

// Push delivers the client's cumulative result list as the next one in
// arrival order.
func (s *RelaySession) Push(results []Result) error {
	return s.PushSeq(0, results)
}

// PushSeq delivers the result list the client numbered seq. Lists numbered
// at or below one already delivered are dropped with ErrStaleResults. A zero
// seq means the next in arrival order.
func (s *RelaySession) PushSeq(seq uint64, results []Result) error {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if err := s.active(); err != nil {
		return err
	}
	if seq == 0 {
		seq = s.lastSeq + 1
	}
	if seq <= s.lastSeq {
		return ErrStaleResults
	}
	s.lastSeq = seq
	if s.h.OnResult != nil {
		s.h.OnResult(results)
	}
	return nil
}

// Fail delivers a client-side recognition error.
func (s *RelaySession) Fail(err error) error {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if aerr := s.active(); aerr != nil {
		return aerr
	}
	if s.h.OnError != nil {
		s.h.OnError(err)
	}
	return nil
}
