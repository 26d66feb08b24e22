package repl

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/strata/formula"
	"github.com/ardnew/strata/subst"
)

const evalPrompt = "➜ "

func helpMessage() string {
	return `
Commands:

  help     Print this cruft
  list     List top-level namespace keys
  clear    Clear screen
  quit     Exit REPL

Usage:
  Type a template to substitute it, e.g. {section.key:>8}
  Prefix with = to evaluate a formula, e.g. =IF(a.flag, 1, 2)
  Press Tab / Shift-Tab to cycle through fuzzy completions
  Use Up/Down arrows for history navigation
  Press Ctrl+C or Ctrl+D to exit
`
}

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

const defaultWidth = 80

// model is the Bubble Tea model for the REPL.
type model struct {
	input      textinput.Model
	ns         *subst.Namespace
	pool       []string
	history    *History
	historyIdx int
	lines      []string
	matches    fuzzy.Matches
	wordStart  int
	wordEnd    int
	suggIdx    int
	tabActive  bool
	preTabText string
	width      int
	quitting   bool
}

// Run starts the REPL over the given namespace, persisting command
// history at histPath.
func Run(ctx context.Context, ns *subst.Namespace, histPath string) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if ns == nil {
		return ErrNoNamespace
	}

	history := NewHistory(histPath)
	if err := history.Load(); err != nil {
		fmt.Printf("Warning: could not load history: %v\n", err)
	}

	m := newModel(ns, history)

	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return err
	}

	return history.Save()
}

func newModel(ns *subst.Namespace, history *History) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		input:      ti,
		ns:         ns,
		pool:       candidates(ns),
		history:    history,
		historyIdx: history.Len(),
		width:      defaultWidth,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		m.quitting = true

		return m, tea.Quit

	case tea.KeyEnter:
		return m.submit()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.recall(-1), nil

	case tea.KeyDown:
		return m.recall(1), nil
	}

	m.tabActive = false

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.matches, m.wordStart, m.wordEnd = complete(
		m.pool, m.input.Value(), m.input.Position(),
	)
	m.suggIdx = 0

	return m, cmd
}

// cycle steps through the current fuzzy matches, splicing the selected
// candidate over the word at the cursor.
func (m model) cycle(dir int) model {
	if len(m.matches) == 0 {
		return m
	}

	if !m.tabActive {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.suggIdx = 0
	} else {
		m.suggIdx = (m.suggIdx + dir + len(m.matches)) % len(m.matches)
	}

	chosen := m.matches[m.suggIdx].Str
	text := m.preTabText[:m.wordStart] + chosen + m.preTabText[m.wordEnd:]

	m.input.SetValue(text)
	m.input.SetCursor(m.wordStart + len(chosen))

	return m
}

// recall navigates command history.
func (m model) recall(dir int) model {
	idx := m.historyIdx + dir
	if idx < 0 || idx > m.history.Len() {
		return m
	}

	m.historyIdx = idx

	if idx == m.history.Len() {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history.Get(idx))
		m.input.SetCursor(len(m.input.Value()))
	}

	return m
}

func (m model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())

	m.input.SetValue("")
	m.matches = nil
	m.tabActive = false

	if line == "" {
		return m, nil
	}

	m.history.Add(line)
	m.historyIdx = m.history.Len()
	m.lines = append(m.lines, promptStyle.Render(evalPrompt)+inputStyle.Render(line))

	switch line {
	case "quit", "exit":
		m.quitting = true

		return m, tea.Quit

	case "help":
		m.lines = append(m.lines, hintStyle.Render(helpMessage()))

		return m, nil

	case "clear":
		m.lines = nil

		return m, tea.ClearScreen

	case "list":
		for _, key := range m.ns.Keys() {
			m.lines = append(m.lines, resultStyle.Render(key))
		}

		return m, nil
	}

	m.lines = append(m.lines, m.eval(line)...)

	return m, nil
}

// eval runs one line in a fresh substitution session and renders the
// result and any accumulated errors.
func (m model) eval(line string) []string {
	var out []string

	err := subst.With(m.ns, func(c *subst.Context) error {
		var (
			result any
			err    error
		)

		if strings.HasPrefix(line, "=") {
			result, err = formula.New(m.ns, formula.WithContext(c)).
				Evaluate(line, "repl")
		} else {
			result, err = c.Evaluate(line, "repl")
		}

		if err != nil {
			return err
		}

		out = append(out, resultStyle.Render(fmt.Sprint(result)))

		for _, serr := range c.Errors() {
			out = append(out, errorStyle.Render(serr.Error()))
		}

		return nil
	})
	if err != nil {
		out = append(out, errorStyle.Render(err.Error()))
	}

	return out
}

func (m model) View() string {
	var b strings.Builder

	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if m.quitting {
		return b.String()
	}

	b.WriteString(m.input.View())
	b.WriteByte('\n')

	if len(m.matches) > 0 {
		b.WriteString(m.renderMatches())
		b.WriteByte('\n')
	}

	return b.String()
}

// renderMatches draws the completion candidates, highlighting the one
// tab-cycling would accept.
func (m model) renderMatches() string {
	const maxShown = 8

	parts := make([]string, 0, maxShown)

	for i, match := range m.matches {
		if i == maxShown {
			parts = append(parts, hintStyle.Render("…"))

			break
		}

		style := suggestionStyle
		if m.tabActive && i == m.suggIdx {
			style = selectedStyle
		}

		parts = append(parts, style.Render(match.Str))
	}

	return strings.Join(parts, "  ")
}
