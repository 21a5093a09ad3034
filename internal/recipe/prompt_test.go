package recipe

import (
	"strings"
	"testing"

	"github.com/hammamikhairi/cocinia/internal/domain"
)

func qty(n int) *int { return &n }

func TestBuildPrompt(t *testing.T) {
	ings := []domain.Ingredient{
		{Name: "huevo", Quantity: qty(2)},
		{Name: "harina"},
	}
	p := BuildPrompt(ings)

	if !strings.Contains(p, "2 huevo, harina") {
		t.Fatalf("prompt missing ingredient list:\n%s", p)
	}
	if !strings.Contains(p, "español rioplatense") {
		t.Fatal("prompt missing language instruction")
	}
	if BuildPrompt(ings) != p {
		t.Fatal("prompt is not deterministic")
	}
}

func TestIngredientList(t *testing.T) {
	tests := []struct {
		name string
		in   []domain.Ingredient
		want string
	}{
		{"empty", nil, ""},
		{"single", []domain.Ingredient{{Name: "azúcar"}}, "azúcar"},
		{"mixed", []domain.Ingredient{
			{Name: "huevo", Quantity: qty(2)},
			{Name: "banana", Quantity: qty(3)},
			{Name: "azúcar"},
		}, "2 huevo, 3 banana, azúcar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IngredientList(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
