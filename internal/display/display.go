// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type manages a persistent status bar (camera, model, live
// prediction, recipe progress) and an input prompt at the bottom of the
// terminal. All application output is printed above the rendered area via
// Program.Println / Printf, ensuring concurrent writes never garble the
// display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/cocinia/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#bbf7d0"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	predStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#fde68a"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

// ── Status ───────────────────────────────────────────────────────

// Status is a snapshot of what the status bar shows.
type Status struct {
	Camera      string // "on", "off", "unavailable"
	Facing      domain.Facing
	ModelReady  bool
	ModelFailed bool
	Prediction  *domain.Prediction
	Generating  bool
	Ingredients int
}

// StatusSource is polled on every refresh tick.
type StatusSource interface {
	Status() Status
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking).  Other goroutines may
// safely call [UI.Println], [UI.Printf], and read from
// [UI.InputChan] at any time after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	status  StatusSource
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(status StatusSource) *UI {
	return &UI{
		status:  status,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe.
// If the program hasn't started yet, falls back to fmt.Println.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt. Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintIngredients prints the numbered ingredient list.
func (u *UI) PrintIngredients(list []domain.Ingredient) {
	u.Println(RenderIngredients(list))
}

// PrintRecipe prints a generated recipe.
func (u *UI) PrintRecipe(r domain.Recipe) {
	u.Println(RenderRecipe(r))
}

// PrintUserInput echoes the user's typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("cocinia") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop.  Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// Plain-text prompt: styled prompts add ANSI bytes that break the
	// textinput width math.
	ti.Prompt = "cocinia> "
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60 // updated on first WindowSizeMsg

	m := model{
		source:  u.status,
		input:   ti,
		inputCh: u.inputCh,
		readyCh: u.readyCh,
		echoFn: func(v string) {
			u.PrintUserInput(v)
		},
	}

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

const refreshInterval = 200 * time.Millisecond

type model struct {
	source  StatusSource
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string) // prints user input into scrollback
	status  Status
	width   int
}

// Messages.
type tickMsg time.Time

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
		tea.SetWindowTitle("Cocinia"),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				// Echo from a Cmd so Update never blocks on Println.
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		promptLen := len("cocinia> ")
		if msg.Width > promptLen {
			m.input.Width = msg.Width - promptLen
		}
		return m, nil

	case tickMsg:
		if m.source != nil {
			m.status = m.source.Status()
		}
		return m, tickCmd()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(renderBar(m.status, m.width))
	b.WriteByte('\n')
	// Blank line before prompt for visual separation.
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func renderBar(s Status, width int) string {
	var parts []string

	switch s.Camera {
	case "on":
		parts = append(parts, labelStyle.Render("cámara: ")+okStyle.Render(FacingName(s.Facing)))
	case "unavailable":
		parts = append(parts, labelStyle.Render("cámara: ")+warnStyle.Render("no disponible"))
	default:
		parts = append(parts, labelStyle.Render("cámara: ")+idleStyle.Render("apagada"))
	}

	switch {
	case s.ModelFailed:
		parts = append(parts, labelStyle.Render("modelo: ")+warnStyle.Render("error"))
	case s.ModelReady:
		parts = append(parts, labelStyle.Render("modelo: ")+okStyle.Render("listo"))
	default:
		parts = append(parts, labelStyle.Render("modelo: ")+idleStyle.Render("cargando…"))
	}

	if s.Camera == "on" {
		if s.Prediction != nil {
			parts = append(parts, predStyle.Render(s.Prediction.Label)+" "+
				labelStyle.Render(ConfidenceBar(s.Prediction.Confidence, 10)))
		} else {
			parts = append(parts, idleStyle.Render("buscando…"))
		}
	}

	parts = append(parts, labelStyle.Render(fmt.Sprintf("ingredientes: %d", s.Ingredients)))
	if s.Generating {
		parts = append(parts, predStyle.Render("generando…"))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "
	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

// FacingName returns the Spanish name of a facing mode.
func FacingName(f domain.Facing) string {
	if f == domain.FacingFront {
		return "frontal"
	}
	return "trasera"
}

// ── Rendering ────────────────────────────────────────────────────

// ConfidenceBar renders p (0..1) as a fixed-width bar with a percentage.
func ConfidenceBar(p float32, width int) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p*float32(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) +
		fmt.Sprintf(" %3.0f%%", p*100)
}

// RenderIngredients formats the list as numbered lines. Countable items
// show their quantity.
func RenderIngredients(list []domain.Ingredient) string {
	if len(list) == 0 {
		return secondaryStyle.Render("  (sin ingredientes)")
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("  Ingredientes"))
	for i, ing := range list {
		b.WriteByte('\n')
		line := fmt.Sprintf("  %d. %s", i+1, ing.Name)
		if ing.Countable() {
			line += fmt.Sprintf(" ×%d", *ing.Quantity)
		}
		b.WriteString(primaryStyle.Render(line))
	}
	return b.String()
}

// RenderRecipe formats a recipe by section, or verbatim when no sections
// were recognised.
func RenderRecipe(r domain.Recipe) string {
	var b strings.Builder
	if !r.Structured() {
		for _, l := range strings.Split(strings.TrimSpace(r.Raw), "\n") {
			b.WriteString(primaryStyle.Render("  " + l))
			b.WriteByte('\n')
		}
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString(titleStyle.Render("  " + r.Title))
	if len(r.Ingredients) > 0 {
		b.WriteString("\n\n")
		b.WriteString(sectionStyle.Render("  Ingredientes"))
		for _, l := range r.Ingredients {
			b.WriteByte('\n')
			b.WriteString(primaryStyle.Render("  • " + l))
		}
	}
	if len(r.Instructions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(sectionStyle.Render("  Instrucciones"))
		for i, l := range r.Instructions {
			b.WriteByte('\n')
			b.WriteString(primaryStyle.Render(fmt.Sprintf("  %d. %s", i+1, l)))
		}
	}
	return b.String()
}
