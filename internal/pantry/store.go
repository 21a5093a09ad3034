// Package pantry holds the working list of confirmed ingredients.
package pantry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Store is an in-memory, insertion-ordered ingredient list. Names are unique
// case-insensitively. Safe for concurrent access.
type Store struct {
	mu    sync.RWMutex
	items []*domain.Ingredient
	log   *logger.Logger
}

// NewStore creates an empty store.
func NewStore(log *logger.Logger) *Store {
	return &Store{log: log}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Add appends a new ingredient. Countable labels start at quantity 1.
// A label that matches an existing name case-insensitively is rejected with
// ErrDuplicateIngredient and the list is left unchanged.
func (s *Store) Add(label string, classIndex int) (domain.Ingredient, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.Ingredient{}, fmt.Errorf("pantry: empty ingredient name")
	}
	key := nameKey(label)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if nameKey(it.Name) == key {
			s.log.Debug("duplicate ingredient %q", label)
			return domain.Ingredient{}, fmt.Errorf("pantry: %q: %w", label, domain.ErrDuplicateIngredient)
		}
	}

	ing := &domain.Ingredient{
		ID:         uuid.NewString(),
		Name:       label,
		ClassIndex: classIndex,
	}
	if IsCountable(label) {
		q := 1
		ing.Quantity = &q
	}
	s.items = append(s.items, ing)

	s.log.Debug("added ingredient %s (%s, class=%d, countable=%v)", ing.ID, ing.Name, classIndex, ing.Countable())
	return ing.Clone(), nil
}

func (s *Store) find(id string) (int, *domain.Ingredient) {
	for i, it := range s.items {
		if it.ID == id {
			return i, it
		}
	}
	return -1, nil
}

// SetQuantity sets the quantity of a countable ingredient, clamped to 1.
func (s *Store) SetQuantity(id string, n int) (domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(id, func(int) int { return n })
}

// Increment adds one unit.
func (s *Store) Increment(id string) (domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(id, func(q int) int { return q + 1 })
}

// Decrement removes one unit, never going below 1.
func (s *Store) Decrement(id string) (domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(id, func(q int) int { return q - 1 })
}

func (s *Store) setLocked(id string, next func(int) int) (domain.Ingredient, error) {
	_, it := s.find(id)
	if it == nil {
		return domain.Ingredient{}, fmt.Errorf("pantry: ingredient %s: %w", id, domain.ErrNotFound)
	}
	if it.Quantity == nil {
		return it.Clone(), fmt.Errorf("pantry: %q: %w", it.Name, domain.ErrNotCountable)
	}
	q := next(*it.Quantity)
	if q < 1 {
		q = 1
	}
	*it.Quantity = q
	return it.Clone(), nil
}

// Remove deletes an ingredient. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, it := s.find(id)
	if it == nil {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.log.Debug("removed ingredient %s (%s)", id, it.Name)
}

// Clear empties the list.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Get returns a copy of one ingredient.
func (s *Store) Get(id string) (domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, it := s.find(id)
	if it == nil {
		return domain.Ingredient{}, fmt.Errorf("pantry: ingredient %s: %w", id, domain.ErrNotFound)
	}
	return it.Clone(), nil
}

// At returns the ingredient at a 1-based list position.
func (s *Store) At(pos int) (domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos < 1 || pos > len(s.items) {
		return domain.Ingredient{}, fmt.Errorf("pantry: position %d: %w", pos, domain.ErrNotFound)
	}
	return s.items[pos-1].Clone(), nil
}

// List returns copies of all ingredients in insertion order.
func (s *Store) List() []domain.Ingredient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Ingredient, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// Len returns the number of ingredients.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
