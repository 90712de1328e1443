package notes

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNoteNotFound = errors.New("note not found")
)

// Store persists notes. Repo is the MongoDB implementation and MemStore the
// in-memory one.
type Store interface {
	Insert(ctx context.Context, n *Note) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Note, error)
	List(ctx context.Context, q ListQuery) ([]*Note, error)
	Search(ctx context.Context, q SearchQuery) ([]*Note, error)
	GetRecent(ctx context.Context, limit int, since *time.Time) ([]*Note, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}
