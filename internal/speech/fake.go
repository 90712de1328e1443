package speech

import (
	"context"
	"sync"
	"time"
)

// Fake replays scripted result events. Each event is the cumulative result
// list a real recognizer would report at that point.
type Fake struct {
	Events [][]Result
	Err    error
	Delay  time.Duration
}

func NewFake(events ...[]Result) *Fake {
	return &Fake{Events: events, Delay: 100 * time.Millisecond}
}

func (f *Fake) Name() string    { return "fake" }
func (f *Fake) Available() bool { return true }

func (f *Fake) NewSession(ctx context.Context, cfg Config, h Handler) (Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	return &fakeSession{
		ctx:    ctx,
		cancel: cancel,
		fake:   f,
		h:      h,
		done:   make(chan struct{}),
	}, nil
}

type fakeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	fake   *Fake
	h      Handler

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

func (s *fakeSession) Start() error {
	s.startOnce.Do(func() {
		go s.run()
	})
	return nil
}

func (s *fakeSession) run() {
	defer close(s.done)
	for _, ev := range s.fake.Events {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.fake.Delay):
		}
		if s.h.OnResult != nil {
			s.h.OnResult(ev)
		}
	}
	if s.fake.Err != nil && s.h.OnError != nil && s.ctx.Err() == nil {
		s.h.OnError(s.fake.Err)
	}
}

func (s *fakeSession) Stop() error {
	s.stopOnce.Do(s.cancel)
	return nil
}
