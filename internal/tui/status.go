package tui

import (
	"strings"

	"arc/internal/retriever"
)

// StatusModel renders the top status bar.
type StatusModel struct {
	Version  string
	Backend  string
	Tenant   string
	Activity string
	State    string
}

// NewStatusModel constructs status data for rendering.
func NewStatusModel(version, backend, tenant string) StatusModel {
	return StatusModel{
		Version:  strings.TrimSpace(version),
		Backend:  strings.TrimSpace(backend),
		Tenant:   strings.TrimSpace(tenant),
		Activity: string(retriever.ActivityThink),
		State:    string(retriever.StatusIdle),
	}
}

// SetFromSnapshot updates the runtime state tokens. The activity label is
// only meaningful while a run is loading.
func (m *StatusModel) SetFromSnapshot(snapshot retriever.Snapshot) {
	m.State = string(snapshot.Status)
	m.Activity = string(snapshot.CurrentStepType)
}

// Render draws a one-line status bar.
func (m StatusModel) Render(width int, theme Theme) string {
	parts := []string{
		"arc " + fallbackText(m.Version, "dev"),
		fallbackText(m.Backend, "no-backend"),
	}
	if m.Tenant != "" {
		parts = append(parts, "tenant: "+m.Tenant)
	}
	parts = append(parts, "state: "+fallbackText(m.State, "idle"))
	if m.State == string(retriever.StatusLoading) {
		parts = append(parts, "activity: "+fallbackText(m.Activity, "think"))
	}

	line := strings.Join(parts, " | ")
	style := theme.StatusBarStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(line)
}

func fallbackText(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
