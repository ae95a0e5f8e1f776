package idea

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory implementation of Store for testing and
// single-instance deployments.
type InMemoryStore struct {
	mu    sync.RWMutex
	ideas map[string]*Idea
}

// NewInMemoryStore creates a new in-memory idea store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		ideas: make(map[string]*Idea),
	}
}

// Create creates a new idea.
func (s *InMemoryStore) Create(ctx context.Context, idea *Idea) (*Idea, error) {
	if err := idea.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idea.ID == "" {
		idea.ID = uuid.New().String()
	}

	now := time.Now()
	idea.CreatedAt = now
	idea.UpdatedAt = now

	stored := *idea
	s.ideas[idea.ID] = &stored
	return idea, nil
}

// GetByID retrieves an idea by ID.
func (s *InMemoryStore) GetByID(ctx context.Context, id string) (*Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.ideas[id]
	if !ok {
		return nil, ErrIdeaNotFound
	}
	idea := *stored
	return &idea, nil
}

// List retrieves all ideas ordered by creation time.
func (s *InMemoryStore) List(ctx context.Context) ([]*Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ideas := make([]*Idea, 0, len(s.ideas))
	for _, stored := range s.ideas {
		idea := *stored
		ideas = append(ideas, &idea)
	}
	sort.Slice(ideas, func(i, j int) bool {
		return ideas[i].CreatedAt.Before(ideas[j].CreatedAt)
	})
	return ideas, nil
}

// Update updates an existing idea.
func (s *InMemoryStore) Update(ctx context.Context, idea *Idea) (*Idea, error) {
	if err := idea.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.ideas[idea.ID]
	if !ok {
		return nil, ErrIdeaNotFound
	}

	idea.CreatedAt = stored.CreatedAt
	idea.UpdatedAt = time.Now()

	updated := *idea
	s.ideas[idea.ID] = &updated
	return idea, nil
}

// Delete deletes an idea by ID.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ideas[id]; !ok {
		return ErrIdeaNotFound
	}
	delete(s.ideas, id)
	return nil
}

// Exists reports whether an idea with the given ID exists.
func (s *InMemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ideas[id]
	return ok, nil
}
