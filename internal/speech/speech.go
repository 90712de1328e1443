// Package speech defines the capture-service contract used by the note
// composer and the recognizers that implement it.
package speech

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnavailable    = errors.New("speech recognition unavailable")
	ErrSessionStopped = errors.New("speech session stopped")
	ErrStaleResults   = errors.New("speech results out of date")
)

// Config mirrors the knobs of the browser SpeechRecognition object.
type Config struct {
	Language        string
	Continuous      bool
	MaxAlternatives int
	InterimResults  bool
}

// DefaultConfig is the capture configuration used by the composer.
func DefaultConfig() Config {
	return Config{
		Language:        "pt-BR",
		Continuous:      true,
		MaxAlternatives: 1,
		InterimResults:  true,
	}
}

type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Result is one entry of the recognizer's cumulative result list.
type Result struct {
	Alternatives []Alternative `json:"alternatives"`
	Final        bool          `json:"final,omitempty"`
}

// Handler receives session events. Either hook may be nil.
type Handler struct {
	// OnResult is called with every result accumulated so far, in arrival order.
	OnResult func(results []Result)
	OnError  func(err error)
}

type Session interface {
	Start() error
	// Stop ends the session. Calling it more than once is a no-op.
	Stop() error
}

type Recognizer interface {
	Name() string
	Available() bool
	NewSession(ctx context.Context, cfg Config, h Handler) (Session, error)
}

// Transcript joins the first alternative of every result, in order.
func Transcript(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		b.WriteString(r.Alternatives[0].Transcript)
	}
	return b.String()
}

// FromStrings builds results where each inner slice is the alternative list
// of one result.
func FromStrings(alts [][]string) []Result {
	results := make([]Result, len(alts))
	for i, list := range alts {
		results[i].Alternatives = make([]Alternative, len(list))
		for j, s := range list {
			results[i].Alternatives[j] = Alternative{Transcript: s}
		}
	}
	return results
}

// Unavailable is a recognizer for runtimes with no speech capability.
type Unavailable struct{}

func (Unavailable) Name() string    { return "none" }
func (Unavailable) Available() bool { return false }

func (Unavailable) NewSession(context.Context, Config, Handler) (Session, error) {
	return nil, ErrUnavailable
}
