package sink

import (
	"context"
	"sort"
	"sync"
)

// MemorySink keeps recipes in a map. With Err set every Save fails.
type MemorySink struct {
	Err error

	mu      sync.Mutex
	recipes map[string]RecipeContent
	saves   int
}

var (
	_ Sink    = (*MemorySink)(nil)
	_ Catalog = (*MemorySink)(nil)
)

func NewMemorySink() *MemorySink {
	return &MemorySink{recipes: make(map[string]RecipeContent)}
}

// NewFailingSink rejects every save with err.
func NewFailingSink(err error) *MemorySink {
	s := NewMemorySink()
	s.Err = err
	return s
}

func (s *MemorySink) Save(ctx context.Context, recipe RecipeContent) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.Err != nil {
		return SaveResult{}, s.Err
	}
	if err := validate(recipe); err != nil {
		return SaveResult{}, err
	}
	id := RecipeID(recipe)
	s.recipes[id] = recipe
	return result(id, recipe), nil
}

// Recipes returns a copy of everything stored.
func (s *MemorySink) Recipes() []RecipeContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecipeContent, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, r)
	}
	return out
}

func (s *MemorySink) IDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.recipes))
	for id := range s.recipes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemorySink) Load(ctx context.Context, id string) (RecipeContent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	return r, ok, nil
}

// Saves counts Save calls, including rejected ones.
func (s *MemorySink) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
