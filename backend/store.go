// Package backend is the reference recipe API: REST handlers over a pluggable
// recipe store plus an image upload endpoint.
package backend

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"recipevault/models"
)

// ErrNotFound is returned by stores for unknown ids and image names.
var ErrNotFound = errors.New("not found")

// Store persists recipes. Create assigns the id.
type Store interface {
	List(ctx context.Context) ([]models.Recipe, error)
	Get(ctx context.Context, id string) (models.Recipe, error)
	Create(ctx context.Context, r models.Recipe) (models.Recipe, error)
	Update(ctx context.Context, id string, r models.Recipe) (models.Recipe, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps recipes in insertion order. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	recipes map[string]models.Recipe
}

// NewMemoryStore returns a store seeded with recipes. Seeds without an id get
// one; a repeated id replaces the earlier seed in place.
func NewMemoryStore(seed ...models.Recipe) *MemoryStore {
	s := &MemoryStore{recipes: make(map[string]models.Recipe)}
	for _, r := range seed {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if _, ok := s.recipes[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.recipes[r.ID] = r
	}
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]models.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Recipe, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.recipes[id])
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return models.Recipe{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) Create(_ context.Context, r models.Recipe) (models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.New().String()
	s.order = append(s.order, r.ID)
	s.recipes[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, r models.Recipe) (models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[id]; !ok {
		return models.Recipe{}, ErrNotFound
	}
	r.ID = id
	s.recipes[id] = r
	return r, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[id]; !ok {
		return ErrNotFound
	}
	delete(s.recipes, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
