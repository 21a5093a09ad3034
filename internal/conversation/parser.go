// Package conversation maps typed commands to intents and prints
// notifications for the terminal session.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches user input to intents using keywords and simple
// patterns. Spanish and English spellings are both accepted.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

// patternRule maps a pattern to an intent. When the pattern has a capture
// group, its first group becomes the intent payload.
type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(?:agregar|add|a)$`), domain.IntentAccept},
		{regexp.MustCompile(`(?i)^(?:agregar|add|a)\s+(.+)$`), domain.IntentAddManual},
		{regexp.MustCompile(`(?i)^(?:c[aá]mara|cam|c)$`), domain.IntentToggleCamera},
		{regexp.MustCompile(`(?i)^(?:girar|flip|f)$`), domain.IntentFlipCamera},
		{regexp.MustCompile(`(?i)^(?:m[aá]s|\+)\s*(\d+)$`), domain.IntentIncrement},
		{regexp.MustCompile(`(?i)^(?:menos|-)\s*(\d+)$`), domain.IntentDecrement},
		{regexp.MustCompile(`(?i)^(?:quitar|rm)\s+(\d+)$`), domain.IntentRemove},
		{regexp.MustCompile(`(?i)^(?:lista|ls|l)$`), domain.IntentList},
		{regexp.MustCompile(`(?i)^(?:generar|receta|g)$`), domain.IntentGenerate},
		{regexp.MustCompile(`(?i)^(?:reset|nuevo)$`), domain.IntentReset},
		{regexp.MustCompile(`(?i)^(?:copiar|copy)$`), domain.IntentCopy},
		{regexp.MustCompile(`(?i)^(?:compartir|share)$`), domain.IntentShare},
		{regexp.MustCompile(`(?i)^(?:ayuda|help|h|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^(?:salir|quit|exit|q)$`), domain.IntentQuit},
	}
	return p
}

// Parse converts user input into an intent. Unrecognised input yields
// IntentUnknown carrying the trimmed text.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.Join(strings.Fields(input), " ")
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)
		intent := &domain.Intent{Type: rule.intent}
		if len(m) > 1 {
			intent.Payload = strings.TrimSpace(m[1])
		}
		return intent, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

// Help lists the accepted commands.
const Help = `Comandos:
  agregar | a            agregar el ingrediente detectado
  agregar <nombre>       agregar un ingrediente a mano
  camara | c             prender / apagar la cámara
  girar | f              cambiar entre cámara frontal y trasera
  mas <n> | + <n>        sumar una unidad al ingrediente n
  menos <n> | - <n>      restar una unidad al ingrediente n
  quitar <n> | rm <n>    quitar el ingrediente n
  lista | ls             ver los ingredientes
  generar | g            generar la receta
  copiar | compartir     copiar la receta o armar un link para compartirla
  reset | nuevo          empezar de nuevo
  salir | q              salir`
