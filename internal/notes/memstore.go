package notes

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore keeps notes in memory. Search matches every query word
// case-insensitively against the content.
type MemStore struct {
	mu    sync.RWMutex
	notes map[primitive.ObjectID]*Note
	now   func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		notes: make(map[primitive.ObjectID]*Note),
		now:   time.Now,
	}
}

func (m *MemStore) Insert(_ context.Context, n *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = primitive.NewObjectID()
	n.CreatedAt = m.now()
	n.UpdatedAt = n.CreatedAt
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *MemStore) FindByID(_ context.Context, id primitive.ObjectID) (*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notes[id]
	if !ok {
		return nil, ErrNoteNotFound
	}
	cp := *n
	return &cp, nil
}

// sorted returns copies of the notes matching keep, newest first.
func (m *MemStore) sorted(keep func(*Note) bool) []*Note {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Note
	for _, n := range m.notes {
		if keep(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func page(notes []*Note, offset, limit int) []*Note {
	if offset >= len(notes) {
		return nil
	}
	if offset > 0 {
		notes = notes[offset:]
	}
	if len(notes) > limit {
		notes = notes[:limit]
	}
	return notes
}

func (m *MemStore) List(_ context.Context, q ListQuery) ([]*Note, error) {
	all := m.sorted(func(*Note) bool { return true })
	return page(all, q.Offset, clampLimit(q.Limit, defaultLimit, maxLimit)), nil
}

func (m *MemStore) Search(_ context.Context, q SearchQuery) ([]*Note, error) {
	words := strings.Fields(strings.ToLower(q.Query))
	all := m.sorted(func(n *Note) bool {
		if q.Since != nil && n.CreatedAt.Before(*q.Since) {
			return false
		}
		if q.Until != nil && n.CreatedAt.After(*q.Until) {
			return false
		}
		content := strings.ToLower(n.Content)
		for _, w := range words {
			if !strings.Contains(content, w) {
				return false
			}
		}
		return true
	})
	return page(all, q.Offset, clampLimit(q.Limit, defaultLimit, maxLimit)), nil
}

func (m *MemStore) GetRecent(_ context.Context, limit int, since *time.Time) ([]*Note, error) {
	all := m.sorted(func(n *Note) bool {
		return since == nil || !n.CreatedAt.Before(*since)
	})
	return page(all, 0, clampLimit(limit, defaultRecentLimit, maxRecentLimit)), nil
}

func (m *MemStore) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *MemStore) Count(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.notes)), nil
}
