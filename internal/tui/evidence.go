package tui

import (
	"fmt"
	"sort"
	"strings"

	"arc/internal/retriever"
)

// EvidencePanel renders run progress and, after completion, the final
// answer's supporting sources.
type EvidencePanel struct {
	Activity  retriever.Activity
	Status    retriever.Status
	StepCount int
	Tool      string
	Evidence  []retriever.Evidence
	Usage     map[string]retriever.TokenCounts
}

// NewEvidencePanel constructs panel defaults.
func NewEvidencePanel() EvidencePanel {
	return EvidencePanel{
		Activity: retriever.ActivityThink,
		Status:   retriever.StatusIdle,
	}
}

// SetFromSnapshot refreshes panel data from a run snapshot.
func (m *EvidencePanel) SetFromSnapshot(snapshot retriever.Snapshot) {
	m.Activity = snapshot.CurrentStepType
	m.Status = snapshot.Status
	m.StepCount = len(snapshot.Steps)
	m.Tool = ""
	if snapshot.CurrentResponse != nil {
		m.Tool = snapshot.CurrentResponse.Tool
	}
	if snapshot.Result != nil {
		m.Evidence = snapshot.Result.Evidence
		m.Usage = snapshot.Result.Usage
	} else {
		m.Evidence = nil
		m.Usage = nil
	}
}

// Render draws the evidence panel.
func (m EvidencePanel) Render(width int, theme Theme) string {
	lines := []string{
		"Status: " + string(m.Status),
		"Activity: " + string(m.Activity),
		fmt.Sprintf("Steps: %d", m.StepCount),
	}
	if tool := strings.TrimSpace(m.Tool); tool != "" {
		lines = append(lines, "Tool: "+tool)
	}

	lines = append(lines, "Sources:")
	if len(m.Evidence) == 0 {
		lines = append(lines, "  none")
	} else {
		for _, item := range m.Evidence {
			lines = append(lines, "  "+evidenceLabel(item))
		}
	}

	if len(m.Usage) > 0 {
		lines = append(lines, "Tokens:")
		models := make([]string, 0, len(m.Usage))
		for model := range m.Usage {
			models = append(models, model)
		}
		sort.Strings(models)
		for _, model := range models {
			counts := m.Usage[model]
			lines = append(lines, fmt.Sprintf("  %s: %d", model, counts.TotalTokens))
		}
	}

	return renderPanel(width, theme.EvidenceStyle, strings.Join(lines, "\n"))
}

func evidenceLabel(item retriever.Evidence) string {
	switch item.Type {
	case retriever.EvidenceCode:
		result := strings.TrimSpace(item.Result)
		if result == "" {
			result = strings.TrimSpace(item.Code)
		}
		return "code: " + truncateLine(result, 60)
	case retriever.EvidenceRagie:
		name := strings.TrimSpace(item.DocumentName)
		if name == "" {
			name = strings.TrimSpace(item.DocumentID)
		}
		label := "doc: " + truncateLine(name, 60)
		if link, ok := item.Links["self"]; ok && strings.TrimSpace(link.HRef) != "" {
			label += "\n    " + truncateLine(link.HRef, 60)
		}
		return label
	default:
		return "unknown source"
	}
}
