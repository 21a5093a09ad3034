package recipe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hammamikhairi/cocinia/internal/domain"
)

// section identifies a recipe block introduced by a header line.
type section int

const (
	sectionIngredients section = iota
	sectionInstructions
)

// headerRule maps a header pattern to the section it opens. Patterns are
// matched against folded lines: lowercase, accents removed, markdown
// decoration trimmed.
type headerRule struct {
	pattern *regexp.Regexp
	section section
}

// headerRules are evaluated per section; the first matching line wins.
var headerRules = []headerRule{
	{regexp.MustCompile(`ingredientes:?$`), sectionIngredients},
	{regexp.MustCompile(`(instrucciones|pasos|preparacion|steps|directions):?$`), sectionInstructions},
}

var (
	titleLabel   = regexp.MustCompile(`^titulo[:\-]?\s*`)
	bulletMarker = regexp.MustCompile(`^[-*•]\s*`)
	numberMarker = regexp.MustCompile(`^\d+\.\s*`)
)

// fold lowercases s and strips combining accents, so "Preparación" and
// "PREPARACION" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// undecorate trims markdown emphasis and heading marks around a line.
func undecorate(s string) string {
	s = strings.TrimLeft(s, "# ")
	s = strings.Trim(s, "*_ ")
	return s
}

// matchHeader reports which section line opens, if any.
func matchHeader(line string) (section, bool) {
	folded := fold(undecorate(line))
	for _, rule := range headerRules {
		if rule.pattern.MatchString(folded) {
			return rule.section, true
		}
	}
	return 0, false
}

// Parse recovers the title, ingredients, and steps from generated text. It
// never fails: text without recognisable headers yields an unstructured
// Recipe whose Raw field should be shown verbatim.
func Parse(text string) domain.Recipe {
	r := domain.Recipe{Raw: text}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return r
	}

	r.Title = parseTitle(lines[0])

	start := map[section]int{sectionIngredients: -1, sectionInstructions: -1}
	for i, l := range lines {
		if sec, ok := matchHeader(l); ok && start[sec] == -1 {
			start[sec] = i
		}
	}

	ing, instr := start[sectionIngredients], start[sectionInstructions]
	if ing != -1 {
		end := len(lines)
		if instr != -1 {
			end = instr
		}
		if ing+1 < end {
			r.Ingredients = stripMarkers(lines[ing+1 : end])
		}
	}
	if instr != -1 && instr+1 < len(lines) {
		r.Instructions = stripMarkers(lines[instr+1:])
	}
	return r
}

// parseTitle drops a leading "Título:" label and one pair of wrapping quotes.
func parseTitle(line string) string {
	title := undecorate(line)
	if loc := titleLabel.FindStringIndex(fold(title)); loc != nil {
		title = dropRunes(title, len([]rune(fold(title)[:loc[1]])))
	}
	title = strings.TrimSpace(title)
	if n := len(title); n >= 2 && title[0] == '"' && title[n-1] == '"' {
		title = title[1 : n-1]
	}
	return title
}

// dropRunes removes the first n runes of s. Folding maps each rune of a
// precomposed string to exactly one rune, so rune counts line up.
func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}

func stripMarkers(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		l = bulletMarker.ReplaceAllString(l, "")
		l = numberMarker.ReplaceAllString(l, "")
		out[i] = strings.TrimSpace(l)
	}
	return out
}
