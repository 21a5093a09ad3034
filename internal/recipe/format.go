package recipe

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/cocinia/internal/domain"
)

// Format rebuilds plain text from a parsed recipe such that Parse reads the
// same title and sections back.
//
// A title that itself reads as a section header (a reply that opened
// straight with "Ingredientes:") is written once and doubles as that
// header. An empty title is written as a bare "Título:" label.
func Format(r domain.Recipe) string {
	var b strings.Builder
	title := titleLine(r.Title)
	sec, isHeader := matchHeader(title)

	switch {
	case isHeader && sec == sectionIngredients:
		b.WriteString(title + "\n")
		writeIngredients(&b, r.Ingredients)
		b.WriteString("Instrucciones:\n")
		writeInstructions(&b, r.Instructions)
	case isHeader && sec == sectionInstructions && len(r.Ingredients) == 0:
		b.WriteString(title + "\n")
		writeInstructions(&b, r.Instructions)
	default:
		// An instructions-style title ahead of ingredients cannot survive
		// a re-parse; the sections win.
		if !isHeader {
			b.WriteString(title + "\n")
		}
		b.WriteString("Ingredientes:\n")
		writeIngredients(&b, r.Ingredients)
		b.WriteString("Instrucciones:\n")
		writeInstructions(&b, r.Instructions)
	}
	return b.String()
}

// titleLine returns the first spelling of title that parseTitle maps back
// to title.
func titleLine(title string) string {
	candidates := []string{
		title,
		"Título: " + title,
		`"` + title + `"`,
		`Título: "` + title + `"`,
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c != "" && parseTitle(c) == title {
			return c
		}
	}
	return title
}

func writeIngredients(b *strings.Builder, items []string) {
	for _, item := range items {
		// Parse strips a bullet and then a step number; an item that
		// starts with a number needs the number form to keep it.
		if numberMarker.MatchString(item) {
			fmt.Fprintf(b, "1. %s\n", item)
			continue
		}
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func writeInstructions(b *strings.Builder, steps []string) {
	for i, step := range steps {
		fmt.Fprintf(b, "%d. %s\n", i+1, step)
	}
}
