// Package domain defines the core types and interfaces for the food scanner.
// All other packages depend on domain; domain depends on nothing.
package domain

// Ingredient is a confirmed item in the working ingredient list.
//
// Quantity is nil for items measured by weight or volume. It is set only for
// countable items and is never below 1.
type Ingredient struct {
	ID         string
	Name       string // display label, case preserved
	ClassIndex int    // model class that produced it, -1 when typed by hand
	Quantity   *int
}

// Countable reports whether the ingredient tracks a discrete quantity.
func (i Ingredient) Countable() bool { return i.Quantity != nil }

// QuantityOr returns the quantity, or def when the ingredient is not countable.
func (i Ingredient) QuantityOr(def int) int {
	if i.Quantity == nil {
		return def
	}
	return *i.Quantity
}

// Clone returns a copy that does not share the quantity pointer.
func (i Ingredient) Clone() Ingredient {
	if i.Quantity != nil {
		q := *i.Quantity
		i.Quantity = &q
	}
	return i
}
