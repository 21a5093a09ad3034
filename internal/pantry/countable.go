package pantry

import "strings"

// countable lists the ingredients tracked by unit rather than by weight.
var countable = map[string]struct{}{
	"huevo":  {},
	"banana": {},
}

// IsCountable reports whether name is counted in units. The match is exact
// after lowercasing: "Huevo" counts, "huevos" does not.
func IsCountable(name string) bool {
	_, ok := countable[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
