// Package toast carries transient user notifications from server handlers to
// the client, where they are shown as auto-dismissing toasts.
package toast

import (
	"encoding/json"
	"net/http"
	"sync"
)

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelSuccess Level = "success"
)

// Toast is a single notification.
type Toast struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier is fire-and-forget: it never blocks and never fails.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Level, string) {})

// Queue collects toasts raised while handling one request.
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
}

func (q *Queue) Notify(level Level, message string) {
	q.mu.Lock()
	q.toasts = append(q.toasts, Toast{Level: level, Message: message})
	q.mu.Unlock()
}

// Drain returns the queued toasts and empties the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	return out
}

// TriggerEvent is the client-side event name toasts are dispatched under.
const TriggerEvent = "showToast"

// WriteTrigger drains the queue into an HX-Trigger header. See WriteTrigger.
func (q *Queue) WriteTrigger(w http.ResponseWriter, events ...string) error {
	return WriteTrigger(w, q.Drain(), events...)
}

// WriteTrigger sets an HX-Trigger header carrying the toasts, merged with any
// extra events. It must run before the response header is written.
func WriteTrigger(w http.ResponseWriter, toasts []Toast, events ...string) error {
	payload := map[string]any{}
	for _, ev := range events {
		payload[ev] = true
	}
	if len(toasts) > 0 {
		payload[TriggerEvent] = toasts
	}
	if len(payload) == 0 {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w.Header().Set("HX-Trigger", string(data))
	return nil
}
