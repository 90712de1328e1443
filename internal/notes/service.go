package notes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrContentRequired = errors.New("content is required")
	ErrInvalidID       = errors.New("invalid note ID")
)

type Service struct {
	store Store
	md    goldmark.Markdown
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		md:    goldmark.New(),
		now:   time.Now,
	}
}

// Create creates a new note. Content is stored as given.
func (s *Service) Create(ctx context.Context, input CreateNoteInput) (*Note, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrContentRequired
	}

	note := &Note{Content: input.Content}
	if err := s.store.Insert(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// CreateContent is the composer's creation callback.
func (s *Service) CreateContent(ctx context.Context, content string) error {
	_, err := s.Create(ctx, CreateNoteInput{Content: content})
	return err
}

// GetByID retrieves a note by ID
func (s *Service) GetByID(ctx context.Context, id string) (*Note, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, oid)
}

// List retrieves notes, newest first
func (s *Service) List(ctx context.Context, q ListQuery) ([]*Note, error) {
	return s.store.List(ctx, q)
}

// Search performs full-text search
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]*Note, error) {
	return s.store.Search(ctx, q)
}

// GetRecent retrieves most recent notes
func (s *Service) GetRecent(ctx context.Context, q SearchQuery) ([]*Note, error) {
	return s.store.GetRecent(ctx, q.Limit, q.Since)
}

// Delete removes a note by ID
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, oid)
}

// Count returns total note count
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// RenderMarkdown converts markdown content to HTML
func (s *Service) RenderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(content), &buf); err != nil {
		return content // Return raw content on error
	}
	return buf.String()
}

var ptBRMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Second, Format: "agora", DivBy: time.Second},
	{D: 2 * time.Second, Format: "%s 1 segundo", DivBy: 1},
	{D: time.Minute, Format: "%s %d segundos", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "%s 1 minuto", DivBy: 1},
	{D: time.Hour, Format: "%s %d minutos", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "%s 1 hora", DivBy: 1},
	{D: humanize.Day, Format: "%s %d horas", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "%s 1 dia", DivBy: 1},
	{D: humanize.Month, Format: "%s %d dias", DivBy: humanize.Day},
	{D: 2 * humanize.Month, Format: "%s 1 mês", DivBy: 1},
	{D: humanize.Year, Format: "%s %d meses", DivBy: humanize.Month},
	{D: 2 * humanize.Year, Format: "%s 1 ano", DivBy: 1},
	{D: humanize.LongTime, Format: "%s %d anos", DivBy: humanize.Year},
}

// RelativeTime labels t relative to now, e.g. "há 4 dias".
func (s *Service) RelativeTime(t time.Time) string {
	return humanize.CustomRelTime(t, s.now(), "há", "daqui a", ptBRMagnitudes)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return oid, nil
}
