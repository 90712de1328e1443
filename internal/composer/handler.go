package composer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"notecards/internal/speech"
	"notecards/internal/toast"
	"notecards/views/components"
	"notecards/views/models"
)

// SpeechSupportedHeader is set by the client after feature-detecting speech
// recognition.
const SpeechSupportedHeader = "X-Speech-Supported"

// NotesChangedEvent tells the page to refresh its note list.
const NotesChangedEvent = "notesChanged"

// RecognizerFunc picks the recognizer for a record request.
type RecognizerFunc func(r *http.Request) speech.Recognizer

// BrowserRecognizer relays the client's own speech recognition.
func BrowserRecognizer(r *http.Request) speech.Recognizer {
	return speech.NewRelay(r.Header.Get(SpeechSupportedHeader) == "true")
}

// StaticRecognizer always uses rec.
func StaticRecognizer(rec speech.Recognizer) RecognizerFunc {
	return func(*http.Request) speech.Recognizer { return rec }
}

type Handler struct {
	reg        *Registry
	recognizer RecognizerFunc
	speech     models.SpeechView
	log        *slog.Logger
}

func NewHandler(reg *Registry, recognizer RecognizerFunc, sv models.SpeechView, log *slog.Logger) *Handler {
	return &Handler{reg: reg, recognizer: recognizer, speech: sv, log: log}
}

// Register mounts the composer routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /composer", h.Open)
	mux.HandleFunc("GET /composer/{id}", h.Dialog)
	mux.HandleFunc("DELETE /composer/{id}", h.Close)
	mux.HandleFunc("POST /composer/{id}/editor", h.StartEditor)
	mux.HandleFunc("POST /composer/{id}/content", h.Edit)
	mux.HandleFunc("POST /composer/{id}/record", h.StartRecording)
	mux.HandleFunc("POST /composer/{id}/stop", h.StopRecording)
	mux.HandleFunc("POST /composer/{id}/save", h.Save)
	mux.HandleFunc("POST /composer/{id}/results", h.Results)
	mux.HandleFunc("POST /composer/{id}/speech-error", h.SpeechError)
	mux.HandleFunc("GET /composer/{id}/state", h.State)
}

// Open handles POST /composer
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	c := h.reg.Open()
	h.renderDialog(w, r, c, http.StatusOK)
}

// Dialog handles GET /composer/{id}
func (h *Handler) Dialog(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.renderDialog(w, r, c, http.StatusOK)
}

// Close handles DELETE /composer/{id}
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.reg.Close(r.PathValue("id"))
	w.WriteHeader(http.StatusOK)
}

// StartEditor handles POST /composer/{id}/editor
func (h *Handler) StartEditor(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	c.StartEditor()
	h.renderDialog(w, r, c, http.StatusOK)
}

// Edit handles POST /composer/{id}/content. The textarea is left alone unless
// the edit brought back the onboarding prompt.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	c.Edit(r.PostForm.Get("content"))

	if c.Snapshot().Mode == Onboarding {
		w.Header().Set("HX-Retarget", "#composer")
		w.Header().Set("HX-Reswap", "outerHTML")
		h.renderDialog(w, r, c, http.StatusOK)
		return
	}
	h.writeToasts(w, c)
	w.WriteHeader(http.StatusNoContent)
}

// StartRecording handles POST /composer/{id}/record
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	err := c.StartRecording(h.recognizer(r))
	switch {
	case err == nil:
		h.renderDialog(w, r, c, http.StatusOK)
	case errors.Is(err, ErrCapabilityUnavailable):
		h.renderDialog(w, r, c, http.StatusUnprocessableEntity)
	default:
		h.log.Error("failed to start recording", "composer", c.ID(), "error", err)
		h.renderDialog(w, r, c, http.StatusInternalServerError)
	}
}

// StopRecording handles POST /composer/{id}/stop
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	c.StopRecording()
	h.renderDialog(w, r, c, http.StatusOK)
}

// Save handles POST /composer/{id}/save. A submitted content field is
// applied first so a save right after typing is not lost.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if vals, ok := r.PostForm["content"]; ok && len(vals) > 0 && c.Snapshot().Mode != Recording {
		c.Edit(vals[0])
	}

	err := c.Save(r.Context())
	switch {
	case err == nil:
		h.renderDialog(w, r, c, http.StatusOK, NotesChangedEvent)
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrRecordingActive):
		h.renderDialog(w, r, c, http.StatusUnprocessableEntity)
	default:
		h.renderDialog(w, r, c, http.StatusInternalServerError)
	}
}

type resultsRequest struct {
	// Seq numbers the client's result events. Zero means unnumbered.
	Seq uint64 `json:"seq"`
	// Results holds the alternatives of each result, in arrival order.
	Results [][]string `json:"results"`
}

type speechErrorRequest struct {
	Error string `json:"error"`
}

type stateResponse struct {
	Content string `json:"content"`
	Mode    string `json:"mode"`
}

// Results handles POST /composer/{id}/results, the client's onresult hook.
// Result lists older than one already applied leave the draft alone.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req resultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	p, ok := c.Session().(speech.Pusher)
	if !ok {
		h.jsonError(w, "not recording", http.StatusConflict)
		return
	}
	err := p.PushSeq(req.Seq, speech.FromStrings(req.Results))
	switch {
	case errors.Is(err, speech.ErrStaleResults):
		h.log.Debug("dropped stale speech results", "composer", c.ID(), "seq", req.Seq)
	case err != nil:
		h.jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	h.jsonState(w, c)
}

// SpeechError handles POST /composer/{id}/speech-error, the client's onerror hook.
func (h *Handler) SpeechError(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req speechErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	p, ok := c.Session().(speech.Pusher)
	if !ok {
		h.jsonError(w, "not recording", http.StatusConflict)
		return
	}
	if err := p.Fail(errors.New(req.Error)); err != nil {
		h.jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	h.jsonState(w, c)
}

// State handles GET /composer/{id}/state. Clients poll it while a
// server-side recognizer is capturing.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.jsonState(w, c)
}

// --- Helper methods ---

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Composer, bool) {
	c, err := h.reg.Get(r.PathValue("id"))
	if errors.Is(err, ErrComposerNotFound) {
		http.Error(w, "composer not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.log.Error("failed to get composer", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return c, true
}

func (h *Handler) writeToasts(w http.ResponseWriter, c *Composer, events ...string) {
	if err := toast.WriteTrigger(w, c.Pending(), events...); err != nil {
		h.log.Error("failed to encode toasts", "error", err)
	}
}

func (h *Handler) renderDialog(w http.ResponseWriter, r *http.Request, c *Composer, status int, events ...string) {
	h.writeToasts(w, c, events...)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := components.ComposerDialog(h.view(c.Snapshot())).Render(r.Context(), w); err != nil {
		h.log.Error("failed to render composer", "composer", c.ID(), "error", err)
	}
}

func (h *Handler) view(s Snapshot) models.ComposerView {
	return models.ComposerView{
		ID:         s.ID,
		Content:    s.Content,
		Onboarding: s.Mode == Onboarding,
		Recording:  s.Mode == Recording,
		Speech:     h.speech,
	}
}

func (h *Handler) jsonState(w http.ResponseWriter, c *Composer) {
	h.writeToasts(w, c)
	s := c.Snapshot()
	h.jsonResponse(w, stateResponse{Content: s.Content, Mode: s.Mode.String()}, http.StatusOK)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
