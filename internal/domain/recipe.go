package domain

// Recipe is the best-effort structure recovered from generated recipe text.
type Recipe struct {
	Title        string
	Ingredients  []string
	Instructions []string
	Raw          string // the text the structure was parsed from
}

// Structured reports whether any section was recovered. When false the raw
// text should be displayed verbatim.
func (r Recipe) Structured() bool {
	return len(r.Ingredients) > 0 || len(r.Instructions) > 0
}
