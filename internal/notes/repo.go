package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repo stores notes in a MongoDB collection.
type Repo struct {
	coll *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{coll: db.Collection("notes")}
}

// EnsureIndexes creates necessary indexes for the notes collection
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "content", Value: "text"}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// Insert creates a new note
func (r *Repo) Insert(ctx context.Context, n *Note) error {
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt

	_, err := r.coll.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// FindByID retrieves a note by its ID
func (r *Repo) FindByID(ctx context.Context, id primitive.ObjectID) (*Note, error) {
	var note Note
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&note)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find note %s: %w", id.Hex(), err)
	}
	return &note, nil
}

// List retrieves notes sorted by created_at desc
func (r *Repo) List(ctx context.Context, q ListQuery) ([]*Note, error) {
	opts := options.Find().
		SetLimit(int64(clampLimit(q.Limit, defaultLimit, maxLimit))).
		SetSkip(int64(q.Offset)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer cursor.Close(ctx)

	var notes []*Note
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return notes, nil
}

// Search performs full-text search with optional date filters
func (r *Repo) Search(ctx context.Context, q SearchQuery) ([]*Note, error) {
	filter := bson.M{}

	if q.Query != "" {
		filter["$text"] = bson.M{"$search": q.Query}
	}

	if df := dateFilter(q.Since, q.Until); df != nil {
		filter["created_at"] = df
	}

	opts := options.Find().
		SetLimit(int64(clampLimit(q.Limit, defaultLimit, maxLimit))).
		SetSkip(int64(q.Offset)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	// Relevance first when doing text search
	if q.Query != "" {
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
		opts.SetSort(bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "created_at", Value: -1},
		})
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	defer cursor.Close(ctx)

	var notes []*Note
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	return notes, nil
}

// GetRecent retrieves the most recent notes
func (r *Repo) GetRecent(ctx context.Context, limit int, since *time.Time) ([]*Note, error) {
	filter := bson.M{}
	if df := dateFilter(since, nil); df != nil {
		filter["created_at"] = df
	}

	opts := options.Find().
		SetLimit(int64(clampLimit(limit, defaultRecentLimit, maxRecentLimit))).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("get recent notes: %w", err)
	}
	defer cursor.Close(ctx)

	var notes []*Note
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("decode recent notes: %w", err)
	}
	return notes, nil
}

// Delete removes a note by ID
func (r *Repo) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// Count returns the total number of notes
func (r *Repo) Count(ctx context.Context) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

func dateFilter(since, until *time.Time) bson.M {
	if since == nil && until == nil {
		return nil
	}
	f := bson.M{}
	if since != nil {
		f["$gte"] = *since
	}
	if until != nil {
		f["$lte"] = *until
	}
	return f
}
