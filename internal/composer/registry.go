package composer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrComposerNotFound = errors.New("composer not found")

// Registry tracks the composers of open dialogs. Opening a dialog creates a
// fresh composer; closing it tears the composer down.
type Registry struct {
	onCreate CreateFunc
	opts     []Option
	log      *slog.Logger

	mu        sync.Mutex
	composers map[string]*Composer
}

// NewRegistry returns a registry whose composers deliver notes to onCreate.
// opts are applied to every composer it opens.
func NewRegistry(onCreate CreateFunc, log *slog.Logger, opts ...Option) *Registry {
	return &Registry{
		onCreate:  onCreate,
		opts:      opts,
		log:       log,
		composers: make(map[string]*Composer),
	}
}

func (r *Registry) Open() *Composer {
	id := uuid.NewString()
	opts := append([]Option{WithLogger(r.log)}, r.opts...)
	opts = append(opts, WithID(id))
	c := New(r.onCreate, opts...)

	r.mu.Lock()
	r.composers[id] = c
	r.mu.Unlock()

	r.log.Debug("composer opened", "composer", id)
	return c
}

func (r *Registry) Get(id string) (*Composer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.composers[id]
	if !ok {
		return nil, ErrComposerNotFound
	}
	return c, nil
}

// Close tears down the composer with the given id. Unknown ids are ignored.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	c, ok := r.composers[id]
	delete(r.composers, id)
	r.mu.Unlock()

	if ok {
		c.Close()
		r.log.Debug("composer closed", "composer", id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.composers)
}

// Sweep closes composers with no user activity for longer than maxIdle and
// returns how many were closed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Composer
	for id, c := range r.composers {
		if c.IdleSince().Before(cutoff) {
			stale = append(stale, c)
			delete(r.composers, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	if len(stale) > 0 {
		r.log.Info("closed idle composers", "count", len(stale))
	}
	return len(stale)
}

// CloseAll tears down every open composer.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.composers
	r.composers = make(map[string]*Composer)
	r.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
