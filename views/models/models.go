package models

import "time"

// NoteView represents a note for template rendering
type NoteView struct {
	ID        string
	Content   string
	HTML      string // rendered markdown
	Label     string // relative creation time, e.g. "há 4 dias"
	CreatedAt time.Time
}

// ComposerView represents an open composer dialog for template rendering
type ComposerView struct {
	ID         string
	Content    string
	Onboarding bool
	Recording  bool
	Speech     SpeechView
}

// SpeechView carries the capture settings the client applies to its
// recognizer.
type SpeechView struct {
	Provider        string
	Language        string
	Continuous      bool
	MaxAlternatives int
	InterimResults  bool
}
