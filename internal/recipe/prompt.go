// Package recipe asks the remote generator for a recipe and recovers a
// title, ingredient list, and steps from the free-form text it returns.
package recipe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/cocinia/internal/domain"
)

const promptTemplate = `Sos un chef profesional con amplia experiencia en cocina casera y creativa.
Usarás únicamente estos ingredientes: %s.

Instrucciones:
1. Titulá la receta con un nombre claro y descriptivo (sin adjetivos decorativos).
2. Enlistar la sección "Ingredientes" con cantidades exactas, agregando sólo condimentos básicos si fueran necesarios.
3. En la sección "Instrucciones", ofrecer pasos numerados, concisos y ordenados para preparar el plato de forma eficiente.
4. Mantener el tono técnico y directo, sin florituras.
5. Responder en español rioplatense, en texto plano (sin tablas ni formato Markdown).

¡Manos a la obra!`

// IngredientList renders ingredients as "2 huevo, 1 banana, harina".
func IngredientList(ingredients []domain.Ingredient) string {
	parts := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing.Quantity != nil {
			parts = append(parts, strconv.Itoa(*ing.Quantity)+" "+ing.Name)
			continue
		}
		parts = append(parts, ing.Name)
	}
	return strings.Join(parts, ", ")
}

// BuildPrompt returns the generation prompt for the given ingredients.
// Callers must ensure the list is not empty.
func BuildPrompt(ingredients []domain.Ingredient) string {
	return fmt.Sprintf(promptTemplate, IngredientList(ingredients))
}
