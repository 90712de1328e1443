package notes

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Note is a saved note.
type Note struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Content   string             `bson:"content" json:"content"` // markdown
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// CreateNoteInput is the input for creating a note
type CreateNoteInput struct {
	Content string `json:"content"`
}

// SearchQuery represents search parameters
type SearchQuery struct {
	Query  string     // full-text search query
	Since  *time.Time // notes after this date
	Until  *time.Time // notes before this date
	Limit  int
	Offset int
}

// ListQuery represents list parameters
type ListQuery struct {
	Limit  int
	Offset int
}

const (
	defaultLimit = 50
	maxLimit     = 200

	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
