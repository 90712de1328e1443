package notes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"notecards/views/components"
	"notecards/views/models"
	"notecards/views/pages"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts the REST API and web UI routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/notes", h.CreateNote)
	mux.HandleFunc("GET /api/notes", h.ListNotes)
	mux.HandleFunc("GET /api/notes/search", h.SearchNotes)
	mux.HandleFunc("GET /api/notes/{id}", h.GetNote)
	mux.HandleFunc("DELETE /api/notes/{id}", h.DeleteNote)

	mux.HandleFunc("GET /", h.HomePage)
	mux.HandleFunc("GET /fragments/notes", h.NotesFragment)
}

// --- REST API Handlers ---

// CreateNote handles POST /api/notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var input CreateNoteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	note, err := h.svc.Create(r.Context(), input)
	if errors.Is(err, ErrContentRequired) {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("failed to create note", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, note, http.StatusCreated)
}

// GetNote handles GET /api/notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, ErrInvalidID) {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, ErrNoteNotFound) {
		h.jsonError(w, "note not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("failed to get note", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, note, http.StatusOK)
}

// ListNotes handles GET /api/notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{
		Limit:  h.parseInt(r.URL.Query().Get("limit"), defaultLimit),
		Offset: h.parseInt(r.URL.Query().Get("offset"), 0),
	}

	notes, err := h.svc.List(r.Context(), q)
	if err != nil {
		h.log.Error("failed to list notes", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, nonNil(notes), http.StatusOK)
}

// SearchNotes handles GET /api/notes/search
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q := SearchQuery{
		Query:  r.URL.Query().Get("q"),
		Limit:  h.parseInt(r.URL.Query().Get("limit"), defaultLimit),
		Offset: h.parseInt(r.URL.Query().Get("offset"), 0),
	}

	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := ParseDate(since); err == nil {
			q.Since = &t
		}
	}
	if until := r.URL.Query().Get("until"); until != "" {
		if t, err := ParseDate(until); err == nil {
			q.Until = &t
		}
	}

	notes, err := h.svc.Search(r.Context(), q)
	if err != nil {
		h.log.Error("failed to search notes", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, nonNil(notes), http.StatusOK)
}

// DeleteNote handles DELETE /api/notes/{id}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, ErrInvalidID) {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, ErrNoteNotFound) {
		h.jsonError(w, "note not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("failed to delete note", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helper methods ---

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

func (h *Handler) parseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func nonNil(notes []*Note) []*Note {
	if notes == nil {
		return []*Note{}
	}
	return notes
}

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// --- View model converters ---

func (h *Handler) notesToViews(notes []*Note) []models.NoteView {
	views := make([]models.NoteView, len(notes))
	for i, note := range notes {
		views[i] = models.NoteView{
			ID:        note.ID.Hex(),
			Content:   note.Content,
			HTML:      h.svc.RenderMarkdown(note.Content),
			Label:     h.svc.RelativeTime(note.CreatedAt),
			CreatedAt: note.CreatedAt,
		}
	}
	return views
}

// --- HTMX Web Handlers ---

// HomePage handles GET /
func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	noteList, err := h.svc.List(r.Context(), ListQuery{Limit: defaultLimit})
	if err != nil {
		h.log.Error("failed to list notes", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	total, err := h.svc.Count(r.Context())
	if err != nil {
		h.log.Warn("failed to count notes", "error", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	pages.HomePage(h.notesToViews(noteList), total).Render(r.Context(), w)
}

// NotesFragment handles GET /fragments/notes (HTMX partial). The note count
// label rides along as an out-of-band swap.
func (h *Handler) NotesFragment(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{
		Limit:  h.parseInt(r.URL.Query().Get("limit"), defaultLimit),
		Offset: h.parseInt(r.URL.Query().Get("offset"), 0),
	}

	noteList, err := h.svc.List(r.Context(), q)
	if err != nil {
		h.log.Error("failed to list notes", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	total, err := h.svc.Count(r.Context())
	if err != nil {
		h.log.Error("failed to count notes", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	components.NoteCardList(h.notesToViews(noteList)).Render(r.Context(), w)
	components.NoteCount(total, true).Render(r.Context(), w)
}
