// Package composer implements the note composer: a dialog-scoped draft that is
// filled by typing or by live speech transcription and handed to a creation
// callback on save.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"notecards/internal/speech"
	"notecards/internal/toast"
)

var (
	ErrEmptyContent          = errors.New("note content is empty")
	ErrCapabilityUnavailable = errors.New("speech recognition is not available")
	ErrRecordingActive       = errors.New("recording in progress")
)

// User-facing notification texts.
const (
	MsgEmptyContent   = "Não é possivel salvar nota sem conteúdo"
	MsgNoSpeechAPI    = "Infelizmente seu navegador não suporta a API de gravação!"
	MsgNoteCreated    = "Nota criada com sucesso!"
	MsgSaveFailed     = "Não foi possível salvar a nota."
	MsgSpeechStopped  = "A gravação foi interrompida por um erro."
	MsgSpeechNotStart = "Não foi possível iniciar a gravação."
)

// Mode is what the composer currently shows.
type Mode int

const (
	Onboarding Mode = iota
	Editing
	Recording
)

func (m Mode) String() string {
	switch m {
	case Onboarding:
		return "onboarding"
	case Editing:
		return "editing"
	case Recording:
		return "recording"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// SpeechErrorPolicy decides what a recognition error during capture does.
type SpeechErrorPolicy int

const (
	// SpeechErrorLog only logs the error; capture continues.
	SpeechErrorLog SpeechErrorPolicy = iota
	// SpeechErrorStop stops capture and warns the user.
	SpeechErrorStop
)

// ParseSpeechErrorPolicy accepts "log" or "stop".
func ParseSpeechErrorPolicy(s string) (SpeechErrorPolicy, error) {
	switch s {
	case "", "log":
		return SpeechErrorLog, nil
	case "stop":
		return SpeechErrorStop, nil
	}
	return SpeechErrorLog, fmt.Errorf("unknown speech error policy %q", s)
}

// CreateFunc receives the finished note text.
type CreateFunc func(ctx context.Context, content string) error

// Snapshot is a consistent view of the composer for rendering.
type Snapshot struct {
	ID      string
	Mode    Mode
	Content string
}

type Option func(*Composer)

func WithID(id string) Option { return func(c *Composer) { c.id = id } }

func WithNotifier(n toast.Notifier) Option { return func(c *Composer) { c.notify = n } }

func WithLogger(l *slog.Logger) Option { return func(c *Composer) { c.log = l } }

func WithSpeechConfig(cfg speech.Config) Option { return func(c *Composer) { c.speechCfg = cfg } }

func WithSpeechErrorPolicy(p SpeechErrorPolicy) Option {
	return func(c *Composer) { c.errPolicy = p }
}

// Composer holds one dialog session. It is safe for concurrent use: speech
// callbacks and user actions may arrive on different goroutines.
type Composer struct {
	id        string
	onCreate  CreateFunc
	notify    toast.Notifier
	queue     *toast.Queue
	log       *slog.Logger
	speechCfg speech.Config
	errPolicy SpeechErrorPolicy

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	mode     Mode
	content  string
	session  speech.Session
	gen      uint64 // bumped on every session start/stop
	closed   bool
	lastSeen time.Time
}

// New returns a composer in Onboarding mode with an empty draft. Without
// WithNotifier, notifications are queued and collected with Pending.
func New(onCreate CreateFunc, opts ...Option) *Composer {
	c := &Composer{
		onCreate:  onCreate,
		log:       slog.Default(),
		speechCfg: speech.DefaultConfig(),
		lastSeen:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notify == nil {
		c.queue = &toast.Queue{}
		c.notify = c.queue
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.log = c.log.With("composer", c.id)
	return c
}

func (c *Composer) ID() string { return c.id }

// Pending drains notifications queued since the last call. It returns nil
// when the composer was built with its own notifier.
func (c *Composer) Pending() []toast.Toast {
	if c.queue == nil {
		return nil
	}
	return c.queue.Drain()
}

func (c *Composer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{ID: c.id, Mode: c.mode, Content: c.content}
}

// Session returns the active capture session, or nil.
func (c *Composer) Session() speech.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Composer) touch() { c.lastSeen = time.Now() }

// IdleSince reports when the composer last handled a user action or a
// speech event.
func (c *Composer) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// StartEditor switches from the onboarding prompt to the text editor.
func (c *Composer) StartEditor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	if c.mode == Onboarding {
		c.mode = Editing
	}
}

// Edit replaces the draft with text typed by the user. Clearing the draft
// brings the onboarding prompt back.
func (c *Composer) Edit(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.content = text
	if c.mode == Recording {
		return
	}
	if text == "" {
		c.mode = Onboarding
	} else {
		c.mode = Editing
	}
}

// StartRecording opens a capture session on rec. Starting while already
// recording is a no-op.
func (c *Composer) StartRecording(rec speech.Recognizer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.closed {
		return context.Canceled
	}
	if rec == nil || !rec.Available() {
		c.notify.Notify(toast.LevelWarning, MsgNoSpeechAPI)
		return ErrCapabilityUnavailable
	}
	if c.mode == Recording {
		return nil
	}

	c.gen++
	gen := c.gen
	sess, err := rec.NewSession(c.ctx, c.speechCfg, speech.Handler{
		OnResult: func(results []speech.Result) { c.applyResults(gen, results) },
		OnError:  func(err error) { c.speechError(gen, err) },
	})
	if err != nil {
		if errors.Is(err, speech.ErrUnavailable) {
			c.notify.Notify(toast.LevelWarning, MsgNoSpeechAPI)
			return ErrCapabilityUnavailable
		}
		c.notify.Notify(toast.LevelError, MsgSpeechNotStart)
		return fmt.Errorf("new %s session: %w", rec.Name(), err)
	}

	c.session = sess
	c.mode = Recording
	if err := sess.Start(); err != nil {
		c.releaseSession()
		c.mode = c.restingMode()
		c.notify.Notify(toast.LevelError, MsgSpeechNotStart)
		return fmt.Errorf("start %s session: %w", rec.Name(), err)
	}
	c.log.Debug("recording started", "recognizer", rec.Name(), "lang", c.speechCfg.Language)
	return nil
}

// ApplyResults replaces the draft with the transcript of the cumulative
// result list. It is ignored when no session is active.
func (c *Composer) ApplyResults(results []speech.Result) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.applyResults(gen, results)
}

func (c *Composer) applyResults(gen uint64, results []speech.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.session == nil {
		return
	}
	c.touch()
	c.content = speech.Transcript(results)
}

func (c *Composer) speechError(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.session == nil {
		return
	}
	c.touch()
	c.log.Warn("speech recognition error", "error", err)
	if c.errPolicy != SpeechErrorStop {
		return
	}
	c.releaseSession()
	c.mode = Editing
	c.notify.Notify(toast.LevelWarning, MsgSpeechStopped)
}

// StopRecording ends capture and shows the editor with whatever was
// transcribed, even when that is nothing. Stopping with no active session
// changes nothing.
func (c *Composer) StopRecording() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	if c.mode != Recording && c.session == nil {
		return
	}
	c.releaseSession()
	c.mode = Editing
}

// restingMode is the mode to fall back to when capture fails to start.
func (c *Composer) restingMode() Mode {
	if c.content == "" {
		return Onboarding
	}
	return Editing
}

// releaseSession must be called with mu held.
func (c *Composer) releaseSession() {
	c.gen++
	if c.session == nil {
		return
	}
	if err := c.session.Stop(); err != nil {
		c.log.Warn("failed to stop speech session", "error", err)
	}
	c.session = nil
	c.log.Debug("recording stopped")
}

// Save hands the draft to the creation callback. On success the draft is
// cleared and the composer returns to the onboarding prompt.
func (c *Composer) Save(ctx context.Context) error {
	c.mu.Lock()
	c.touch()
	if c.mode == Recording {
		c.mu.Unlock()
		return ErrRecordingActive
	}
	content := c.content
	if content == "" {
		c.mu.Unlock()
		c.notify.Notify(toast.LevelError, MsgEmptyContent)
		return ErrEmptyContent
	}
	c.mu.Unlock()

	if err := c.onCreate(ctx, content); err != nil {
		c.log.Error("failed to create note", "error", err)
		c.notify.Notify(toast.LevelError, MsgSaveFailed)
		return fmt.Errorf("create note: %w", err)
	}

	c.mu.Lock()
	// Only clear what was saved; a concurrent edit wins.
	if c.content == content {
		c.content = ""
		c.mode = Onboarding
	}
	c.mu.Unlock()

	c.notify.Notify(toast.LevelSuccess, MsgNoteCreated)
	return nil
}

// Close stops any capture session and releases the composer. It is safe to
// call more than once.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.releaseSession()
	c.cancel()
}
