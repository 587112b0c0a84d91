package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// recallLimit bounds how many submitted queries the input keeps for
// ctrl+p / ctrl+n recall.
const recallLimit = 50

// InputModel stores the single-line query buffer plus a small ring of
// previously submitted queries for recall.
type InputModel struct {
	prompt      string
	placeholder string
	value       string

	recent []string
	// recallPos indexes recent while cycling; len(recent) means the
	// cursor is past the newest entry, editing a fresh line.
	recallPos int
	draft     string
}

// NewInputModel constructs the input state.
func NewInputModel(prompt, placeholder string) InputModel {
	p := strings.TrimSpace(prompt)
	if p == "" {
		p = "?"
	}
	return InputModel{
		prompt:      p,
		placeholder: strings.TrimSpace(placeholder),
	}
}

// Value returns current raw input text.
func (m InputModel) Value() string {
	return m.value
}

// SetValue replaces input text.
func (m *InputModel) SetValue(value string) {
	m.value = value
	m.recallPos = len(m.recent)
}

// Clear resets input text.
func (m *InputModel) Clear() {
	m.value = ""
	m.recallPos = len(m.recent)
}

// Remember records a submitted query for later recall. Consecutive
// duplicates are collapsed.
func (m *InputModel) Remember(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if n := len(m.recent); n == 0 || m.recent[n-1] != query {
		m.recent = append(m.recent, query)
		if len(m.recent) > recallLimit {
			m.recent = m.recent[len(m.recent)-recallLimit:]
		}
	}
	m.recallPos = len(m.recent)
}

// RecallPrevious replaces the buffer with the next-older remembered
// query. The in-progress line is kept as a draft and restored when the
// cursor cycles back past the newest entry.
func (m *InputModel) RecallPrevious() {
	if len(m.recent) == 0 || m.recallPos == 0 {
		return
	}
	if m.recallPos == len(m.recent) {
		m.draft = m.value
	}
	m.recallPos--
	m.value = m.recent[m.recallPos]
}

// RecallNext moves toward the newest remembered query, restoring the
// draft once the cursor leaves the ring.
func (m *InputModel) RecallNext() {
	if m.recallPos >= len(m.recent) {
		return
	}
	m.recallPos++
	if m.recallPos == len(m.recent) {
		m.value = m.draft
		return
	}
	m.value = m.recent[m.recallPos]
}

// HandleKey mutates input state and reports the submit key.
func (m *InputModel) HandleKey(msg tea.KeyMsg) (submitted bool) {
	switch msg.Type {
	case tea.KeyEnter:
		return true
	case tea.KeyCtrlP:
		m.RecallPrevious()
		return false
	case tea.KeyCtrlN:
		m.RecallNext()
		return false
	case tea.KeyBackspace, tea.KeyDelete:
		if m.value == "" {
			return false
		}
		runes := []rune(m.value)
		m.value = string(runes[:len(runes)-1])
		m.recallPos = len(m.recent)
		return false
	case tea.KeySpace:
		m.value += " "
		m.recallPos = len(m.recent)
		return false
	}

	if len(msg.Runes) > 0 {
		m.value += string(msg.Runes)
		m.recallPos = len(m.recent)
	}
	return false
}

// Render draws the input line.
func (m InputModel) Render(width int, theme Theme) string {
	value := m.value
	valueStyle := theme.InputTextStyle
	if strings.TrimSpace(value) == "" {
		value = m.placeholder
		valueStyle = theme.InputPlaceholderTextStyle
	}

	line := theme.InputPromptStyle.Render(m.prompt+" ") + valueStyle.Render(value)
	if width > 0 {
		return lipgloss.NewStyle().Width(width).Render(line)
	}
	return line
}
