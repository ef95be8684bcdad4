package ui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the operator dismisses a prompt.
var ErrCancelled = errors.New("prompt cancelled")

// programOptions are passed to every prompt program; tests replace them to
// drive prompts without a terminal.
var programOptions []tea.ProgramOption

var (
	promptTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#AD8EE6"})

	promptSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#00AA00", Dark: "#00FF00"})

	promptUnselectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"})

	promptDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
)

const cursorMark = "❯ "

// question is the state every questionnaire prompt shares.
type question struct {
	title     string
	confirmed bool
	cancelled bool
}

// exitKey marks the question cancelled for the keys that dismiss it.
func (q *question) exitKey(key string) bool {
	switch key {
	case "ctrl+c", "esc":
		q.cancelled = true
		return true
	}
	return false
}

func (q question) aborted() bool { return q.cancelled || !q.confirmed }

func (q question) render(body, help string) string {
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("? "+q.title) + "\n\n")
	b.WriteString(body)
	b.WriteString("\n" + promptDimStyle.Render("  "+help))
	return b.String()
}

type prompt interface {
	tea.Model
	aborted() bool
}

func runPrompt[M prompt](m M) (M, error) {
	final, err := tea.NewProgram(m, programOptions...).Run()
	if err != nil {
		return m, err
	}
	result := final.(M)
	if result.aborted() {
		return result, ErrCancelled
	}
	return result, nil
}

// YesNoPrompt asks a yes/no question, such as whether to add the backend.
type YesNoPrompt struct {
	question
	yes bool
}

func NewYesNoPrompt(title string, defaultYes bool) YesNoPrompt {
	return YesNoPrompt{question: question{title: title}, yes: defaultYes}
}

func (m YesNoPrompt) Init() tea.Cmd { return nil }

func (m YesNoPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.exitKey(key.String()) {
		return m, tea.Quit
	}
	switch key.String() {
	case "left", "y", "Y":
		m.yes = true
	case "right", "n", "N":
		m.yes = false
	case "tab":
		m.yes = !m.yes
	case "enter":
		m.confirmed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m YesNoPrompt) View() string {
	option := func(label string, on bool) string {
		if on {
			return promptTitleStyle.Render(cursorMark) + promptSelectedStyle.Render(label)
		}
		return "  " + promptUnselectedStyle.Render(label)
	}
	body := option("Yes", m.yes) + "    " + option("No", !m.yes) + "\n"
	return m.render(body, "y/n or ← → to choose, enter to confirm")
}

// Answer reports the choice and whether it was confirmed.
func (m YesNoPrompt) Answer() (bool, bool) {
	return m.yes, !m.aborted()
}

func RunYesNoPrompt(title string, defaultYes bool) (bool, error) {
	m, err := runPrompt(NewYesNoPrompt(title, defaultYes))
	return m.yes, err
}

// SelectOption is one entry of a SelectPrompt.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// SelectPrompt picks one option, such as the frontend framework. Number keys
// pick an option directly.
type SelectPrompt struct {
	question
	options []SelectOption
	cursor  int
}

func NewSelectPrompt(title string, options []SelectOption) SelectPrompt {
	return SelectPrompt{question: question{title: title}, options: options}
}

func (m SelectPrompt) Init() tea.Cmd { return nil }

func (m SelectPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.exitKey(key.String()) {
		return m, tea.Quit
	}
	switch key.String() {
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, len(m.options)-1)
	case "enter":
		m.confirmed = len(m.options) > 0
		return m, tea.Quit
	default:
		if n, err := strconv.Atoi(key.String()); err == nil && n >= 1 && n <= len(m.options) {
			m.cursor = n - 1
			m.confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SelectPrompt) View() string {
	var body strings.Builder
	for i, opt := range m.options {
		line := "  " + promptUnselectedStyle.Render(strconv.Itoa(i+1)+". "+opt.Label)
		if i == m.cursor {
			line = promptTitleStyle.Render(cursorMark) + promptSelectedStyle.Render(strconv.Itoa(i+1)+". "+opt.Label)
			if opt.Description != "" {
				line += promptDimStyle.Render("  " + opt.Description)
			}
		}
		body.WriteString(line + "\n")
	}
	return m.render(body.String(), "↑ ↓ or a number to choose, enter to confirm")
}

// Choice returns the highlighted option and whether it was confirmed.
func (m SelectPrompt) Choice() (SelectOption, bool) {
	if m.cursor < 0 || m.cursor >= len(m.options) {
		return SelectOption{}, false
	}
	return m.options[m.cursor], !m.aborted()
}

func RunSelectPrompt(title string, options []SelectOption) (SelectOption, error) {
	m, err := runPrompt(NewSelectPrompt(title, options))
	if err != nil {
		return SelectOption{}, err
	}
	opt, _ := m.Choice()
	return opt, nil
}

// TextInputPrompt reads a line of text. An empty entry takes the fallback.
// When validate rejects the entry the prompt shows why and stays open.
type TextInputPrompt struct {
	question
	input    textinput.Model
	fallback string
	validate func(string) error
	err      error
}

func NewTextInputPrompt(title, fallback string, validate func(string) error) TextInputPrompt {
	ti := textinput.New()
	ti.Placeholder = fallback
	ti.CharLimit = 256
	ti.Width = 50
	ti.Focus()
	return TextInputPrompt{question: question{title: title}, input: ti, fallback: fallback, validate: validate}
}

func (m TextInputPrompt) Init() tea.Cmd { return textinput.Blink }

func (m TextInputPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if m.exitKey(key.String()) {
			return m, tea.Quit
		}
		if key.String() == "enter" {
			if m.validate != nil {
				m.err = m.validate(m.Value())
				if m.err != nil {
					return m, nil
				}
			}
			m.confirmed = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = nil
	return m, cmd
}

func (m TextInputPrompt) View() string {
	body := "  " + m.input.View() + "\n"
	if m.err != nil {
		body += warnStyle.Render("  ✖ "+m.err.Error()) + "\n"
	}
	help := "enter to confirm, esc to cancel"
	if m.fallback != "" {
		help = "enter to use " + m.fallback + ", esc to cancel"
	}
	return m.render(body, help)
}

// Value is the entry, or the fallback when nothing was typed.
func (m TextInputPrompt) Value() string {
	if v := strings.TrimSpace(m.input.Value()); v != "" {
		return v
	}
	return m.fallback
}

func RunTextInputPrompt(title, fallback string, validate func(string) error) (string, error) {
	m, err := runPrompt(NewTextInputPrompt(title, fallback, validate))
	if err != nil {
		return "", err
	}
	return m.Value(), nil
}
