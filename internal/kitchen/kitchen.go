// Package kitchen coordinates one scanning session: it turns accepted
// predictions into ingredients, asks the generator for a recipe, and reports
// every outcome to the user through a notifier.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
	"github.com/hammamikhairi/cocinia/internal/pantry"
	"github.com/hammamikhairi/cocinia/internal/recipe"
)

// Option configures the kitchen.
type Option func(*Kitchen)

// WithOnRecipe registers a callback run after a recipe is generated.
func WithOnRecipe(fn func(domain.Recipe)) Option {
	return func(k *Kitchen) {
		k.onRecipe = fn
	}
}

// Kitchen owns the ingredient list and the current recipe.
type Kitchen struct {
	store     *pantry.Store
	generator domain.RecipeGenerator
	notifier  domain.Notifier
	log       *logger.Logger
	onRecipe  func(domain.Recipe)

	generating atomic.Bool

	mu     sync.RWMutex
	recipe *domain.Recipe
}

// New creates a kitchen with the given dependencies and options.
func New(store *pantry.Store, generator domain.RecipeGenerator, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Kitchen {
	k := &Kitchen{
		store:     store,
		generator: generator,
		notifier:  notifier,
		log:       log,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Accept adds the predicted label to the list.
func (k *Kitchen) Accept(ctx context.Context, pred domain.Prediction) (domain.Ingredient, error) {
	return k.add(ctx, pred.Label, pred.ClassIndex)
}

// AddManual adds an ingredient typed by the user.
func (k *Kitchen) AddManual(ctx context.Context, name string) (domain.Ingredient, error) {
	return k.add(ctx, name, -1)
}

func (k *Kitchen) add(ctx context.Context, name string, classIndex int) (domain.Ingredient, error) {
	ing, err := k.store.Add(name, classIndex)
	switch {
	case errors.Is(err, domain.ErrDuplicateIngredient):
		k.notifier.NotifyUrgent(ctx, fmt.Sprintf("Ingrediente duplicado: %s ya fue agregado.", name))
		return domain.Ingredient{}, err
	case err != nil:
		k.notifier.NotifyUrgent(ctx, "No se pudo agregar el ingrediente.")
		return domain.Ingredient{}, err
	}
	k.log.Info("ingredient added: %s (class=%d)", ing.Name, classIndex)
	k.notifier.Notify(ctx, "Ingrediente añadido: "+ing.Name)
	return ing, nil
}

// Ingredients returns the current list in insertion order.
func (k *Kitchen) Ingredients() []domain.Ingredient {
	return k.store.List()
}

// Increment adds one unit to the ingredient at a 1-based position.
func (k *Kitchen) Increment(ctx context.Context, pos int) (domain.Ingredient, error) {
	return k.adjust(ctx, pos, k.store.Increment)
}

// Decrement removes one unit from the ingredient at a 1-based position.
// The quantity never drops below 1.
func (k *Kitchen) Decrement(ctx context.Context, pos int) (domain.Ingredient, error) {
	return k.adjust(ctx, pos, k.store.Decrement)
}

func (k *Kitchen) adjust(ctx context.Context, pos int, op func(id string) (domain.Ingredient, error)) (domain.Ingredient, error) {
	ing, err := k.store.At(pos)
	if err != nil {
		k.notifier.NotifyUrgent(ctx, fmt.Sprintf("No hay ingrediente en la posición %d.", pos))
		return domain.Ingredient{}, err
	}
	ing, err = op(ing.ID)
	if errors.Is(err, domain.ErrNotCountable) {
		k.notifier.Notify(ctx, fmt.Sprintf("%s no lleva cantidad.", ing.Name))
	}
	return ing, err
}

// Remove deletes the ingredient at a 1-based position.
func (k *Kitchen) Remove(ctx context.Context, pos int) (domain.Ingredient, error) {
	ing, err := k.store.At(pos)
	if err != nil {
		k.notifier.NotifyUrgent(ctx, fmt.Sprintf("No hay ingrediente en la posición %d.", pos))
		return domain.Ingredient{}, err
	}
	k.store.Remove(ing.ID)
	k.log.Info("ingredient removed: %s", ing.Name)
	return ing, nil
}

// Generating reports whether a recipe request is in flight.
func (k *Kitchen) Generating() bool { return k.generating.Load() }

// Generate requests a recipe for the current list. Only one request runs at
// a time; a second caller gets ErrGenerationInFlight. On failure the list
// and any previous recipe are left as they were.
func (k *Kitchen) Generate(ctx context.Context) (domain.Recipe, error) {
	ingredients := k.store.List()
	if len(ingredients) == 0 {
		k.notifier.NotifyUrgent(ctx, "Sin ingredientes: agregá al menos un ingrediente primero.")
		return domain.Recipe{}, fmt.Errorf("kitchen: %w", domain.ErrNoIngredients)
	}

	if !k.generating.CompareAndSwap(false, true) {
		return domain.Recipe{}, fmt.Errorf("kitchen: %w", domain.ErrGenerationInFlight)
	}
	defer k.generating.Store(false)

	k.log.Info("generating recipe for %d ingredients", len(ingredients))
	text, err := k.generator.Generate(ctx, ingredients)
	if err != nil {
		k.log.Error("recipe generation failed: %v", err)
		k.notifier.NotifyUrgent(ctx, "Error: no se pudo generar la receta. Intentá de nuevo.")
		return domain.Recipe{}, err
	}

	r := recipe.Parse(text)
	k.mu.Lock()
	k.recipe = &r
	k.mu.Unlock()

	if !r.Structured() {
		k.log.Warn("recipe text has no recognisable sections, showing it verbatim")
	}
	k.notifier.Notify(ctx, "Receta lista: "+r.Title)
	if k.onRecipe != nil {
		k.onRecipe(r)
	}
	return r, nil
}

// Recipe returns the last generated recipe.
func (k *Kitchen) Recipe() (domain.Recipe, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.recipe == nil {
		return domain.Recipe{}, false
	}
	return *k.recipe, true
}

// Reset clears the ingredient list and the recipe.
func (k *Kitchen) Reset(ctx context.Context) {
	k.store.Clear()
	k.mu.Lock()
	k.recipe = nil
	k.mu.Unlock()
	k.log.Info("session reset")
	k.notifier.Notify(ctx, "Listo, empezamos de nuevo.")
}
