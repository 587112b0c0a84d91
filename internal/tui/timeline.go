package tui

import (
	"fmt"
	"strings"

	"arc/internal/retriever"

	"github.com/charmbracelet/lipgloss"
)

const maxResultPreviewLen = 160

// TimelineEntry is one rendered row group in the run timeline.
type TimelineEntry struct {
	Kind    string
	Content string
}

// TimelineModel renders the reconstructed run trace: the submitted query,
// each completed step, the live partial tool call, and the final answer.
type TimelineModel struct {
	entries   []TimelineEntry
	scrollTop int

	// viewportHeight is the number of visible content lines inside the
	// panel. 0 means unconstrained.
	viewportHeight int
}

// NewTimelineModel creates an empty timeline.
func NewTimelineModel() TimelineModel {
	return TimelineModel{}
}

// SetFromSnapshot rebuilds timeline entries from a run snapshot. The
// viewport keeps following the newest entry unless the user scrolled up.
func (m *TimelineModel) SetFromSnapshot(snapshot retriever.Snapshot) {
	wasAtBottom := m.isAtBottom()

	entries := make([]TimelineEntry, 0, len(snapshot.Steps)+3)
	if query := strings.TrimSpace(snapshot.Query); query != "" {
		entries = append(entries, TimelineEntry{Kind: "query", Content: query})
	}
	for index, step := range snapshot.Steps {
		entries = append(entries, TimelineEntry{
			Kind:    "step",
			Content: formatStep(index+1, step),
		})
	}
	if snapshot.Status == retriever.StatusLoading && snapshot.CurrentResponse != nil {
		entries = append(entries, TimelineEntry{
			Kind:    "step",
			Content: formatCurrentResponse(*snapshot.CurrentResponse),
		})
	}
	if snapshot.Result != nil {
		entries = append(entries, TimelineEntry{
			Kind:    "answer",
			Content: formatFinalAnswer(*snapshot.Result),
		})
	}
	if snapshot.Status == retriever.StatusError {
		errText := strings.TrimSpace(snapshot.Err)
		if errText == "" {
			errText = "run failed"
		}
		entries = append(entries, TimelineEntry{
			Kind:    "error",
			Content: errText + "\nPress Enter to retry or type a new question.",
		})
	}
	m.entries = entries

	if wasAtBottom {
		m.scrollToBottom()
		return
	}
	m.clampScrollTop()
}

// Entries returns a defensive copy of current timeline entries.
func (m TimelineModel) Entries() []TimelineEntry {
	copied := make([]TimelineEntry, 0, len(m.entries))
	copied = append(copied, m.entries...)
	return copied
}

// SetViewportHeight configures the visible line count for timeline content.
func (m *TimelineModel) SetViewportHeight(height int) {
	if height < 0 {
		height = 0
	}
	m.viewportHeight = height
	m.clampScrollTop()
}

// ScrollUp moves the viewport up by lines.
func (m *TimelineModel) ScrollUp(lines int) {
	if lines <= 0 {
		return
	}
	m.scrollTop -= lines
	m.clampScrollTop()
}

// ScrollDown moves the viewport down by lines.
func (m *TimelineModel) ScrollDown(lines int) {
	if lines <= 0 {
		return
	}
	m.scrollTop += lines
	m.clampScrollTop()
}

// PageUp scrolls one viewport up.
func (m *TimelineModel) PageUp() {
	step := m.viewportHeight
	if step <= 0 {
		step = 10
	}
	m.ScrollUp(step)
}

// PageDown scrolls one viewport down.
func (m *TimelineModel) PageDown() {
	step := m.viewportHeight
	if step <= 0 {
		step = 10
	}
	m.ScrollDown(step)
}

// ScrollToTop jumps to the oldest timeline lines.
func (m *TimelineModel) ScrollToTop() {
	m.scrollTop = 0
}

// ScrollToBottom jumps to the newest timeline lines.
func (m *TimelineModel) ScrollToBottom() {
	m.scrollToBottom()
}

// Render draws timeline lines inside a panel.
func (m TimelineModel) Render(width int, theme Theme) string {
	if len(m.entries) == 0 {
		return renderPanel(width, theme.PanelStyle, "Ask a question to start a run.")
	}

	lines := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		prefix, style := entryPrefix(entry.Kind, theme)
		raw := strings.Split(entry.Content, "\n")
		if len(raw) == 0 {
			continue
		}
		lines = append(lines, style.Render(prefix)+" "+raw[0])
		if len(raw) > 1 {
			lines = append(lines, raw[1:]...)
		}
	}

	if m.viewportHeight > 0 && len(lines) > m.viewportHeight {
		start := m.scrollTop
		maxTop := len(lines) - m.viewportHeight
		if start < 0 {
			start = 0
		}
		if start > maxTop {
			start = maxTop
		}
		end := start + m.viewportHeight
		lines = lines[start:end]
	}

	return renderPanel(width, theme.PanelStyle, strings.Join(lines, "\n"))
}

func entryPrefix(kind string, theme Theme) (string, lipgloss.Style) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "query":
		return "query:", theme.QueryPrefixStyle
	case "answer":
		return "answer:", theme.AnswerPrefixStyle
	case "error":
		return "error:", theme.ErrorTextStyle
	default:
		return "step:", theme.StepPrefixStyle
	}
}

func formatStep(number int, step retriever.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", number, step.Type)

	switch step.Type {
	case retriever.StepPlan:
		for _, question := range step.Plan {
			if trimmed := strings.TrimSpace(question); trimmed != "" {
				b.WriteString("\n   - " + trimmed)
			}
		}
	case retriever.StepSearch:
		for _, request := range step.SearchRequests {
			if trimmed := strings.TrimSpace(request.Query); trimmed != "" {
				b.WriteString("\n   ? " + trimmed)
			}
		}
		for _, detail := range step.QueryDetails {
			hits := len(detail.SearchResults)
			fmt.Fprintf(&b, "\n   %q -> %d results", detail.Query, hits)
		}
	case retriever.StepCode:
		if result := strings.TrimSpace(step.Result); result != "" {
			b.WriteString("\n   " + truncateLine(result, maxResultPreviewLen))
		} else if issue := strings.TrimSpace(step.Issue); issue != "" {
			b.WriteString("\n   issue: " + truncateLine(issue, maxResultPreviewLen))
		}
	case retriever.StepAnswer, retriever.StepEvaluatedAnswer, retriever.StepSurrender, retriever.StepCitation:
		if step.Answer != nil {
			if text := strings.TrimSpace(step.Answer.Text); text != "" {
				b.WriteString("\n   " + truncateLine(text, maxResultPreviewLen))
			}
		}
	}

	if think := strings.TrimSpace(step.Think); think != "" {
		b.WriteString("\n   think: " + truncateLine(think, maxResultPreviewLen))
	}
	return b.String()
}

func formatCurrentResponse(current retriever.CurrentResponse) string {
	tool := strings.TrimSpace(current.Tool)
	if tool == "" {
		tool = "tool"
	}
	line := tool + " …"
	if query, ok := current.Arguments["query"].(string); ok && strings.TrimSpace(query) != "" {
		line += "\n   " + truncateLine(strings.TrimSpace(query), maxResultPreviewLen)
	} else if think, ok := current.Arguments["think"].(string); ok && strings.TrimSpace(think) != "" {
		line += "\n   " + truncateLine(strings.TrimSpace(think), maxResultPreviewLen)
	}
	return line
}

func formatFinalAnswer(answer retriever.FinalAnswer) string {
	text := strings.TrimSpace(answer.Text)
	if len(answer.Evidence) > 0 {
		text += fmt.Sprintf("\n(%d evidence sources)", len(answer.Evidence))
	}
	return text
}

func truncateLine(text string, limit int) string {
	if line, _, found := strings.Cut(text, "\n"); found {
		text = line
	}
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

func renderPanel(width int, style lipgloss.Style, content string) string {
	if width > 0 {
		return style.Width(width).Render(content)
	}
	return style.Render(content)
}

func (m *TimelineModel) isAtBottom() bool {
	if m.viewportHeight <= 0 {
		return true
	}
	return m.scrollTop >= m.maxScrollTop()
}

func (m *TimelineModel) maxScrollTop() int {
	if m.viewportHeight <= 0 {
		return 0
	}
	maxTop := m.totalRenderedLines() - m.viewportHeight
	if maxTop < 0 {
		return 0
	}
	return maxTop
}

func (m *TimelineModel) scrollToBottom() {
	m.scrollTop = m.maxScrollTop()
}

func (m *TimelineModel) clampScrollTop() {
	if m.scrollTop < 0 {
		m.scrollTop = 0
		return
	}
	maxTop := m.maxScrollTop()
	if m.scrollTop > maxTop {
		m.scrollTop = maxTop
	}
}

func (m *TimelineModel) totalRenderedLines() int {
	total := 0
	for _, entry := range m.entries {
		total += len(strings.Split(entry.Content, "\n"))
	}
	return total
}
