package tui

import (
	"strings"
	"testing"

	"arc/internal/retriever"
)

func TestSetFromSnapshotBuildsEntries(t *testing.T) {
	t.Parallel()

	timeline := NewTimelineModel()
	timeline.SetFromSnapshot(retriever.Snapshot{
		Query:  "warranty terms",
		Status: retriever.StatusLoading,
		Steps: []retriever.Step{
			{Type: retriever.StepPlan, Plan: []string{"what is covered", "how long"}},
			{Type: retriever.StepSearch, QueryDetails: []retriever.QueryDetail{{
				Query:         "warranty coverage",
				SearchResults: []retriever.SearchResult{{DocumentID: "doc-1"}},
			}}},
		},
		CurrentResponse: &retriever.CurrentResponse{
			Tool:      "answer",
			Arguments: map[string]any{"think": "drafting"},
		},
	})

	entries := timeline.Entries()
	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4 (query + 2 steps + live call)", len(entries))
	}
	if entries[0].Kind != "query" || entries[0].Content != "warranty terms" {
		t.Fatalf("first entry = %#v, want query", entries[0])
	}
	if !strings.Contains(entries[1].Content, "what is covered") {
		t.Fatalf("plan entry missing question: %q", entries[1].Content)
	}
	if !strings.Contains(entries[2].Content, "1 results") {
		t.Fatalf("search entry missing result count: %q", entries[2].Content)
	}
	if !strings.Contains(entries[3].Content, "drafting") {
		t.Fatalf("live entry missing partial argument: %q", entries[3].Content)
	}
}

func TestSetFromSnapshotAppendsFinalAnswer(t *testing.T) {
	t.Parallel()

	timeline := NewTimelineModel()
	timeline.SetFromSnapshot(retriever.Snapshot{
		Query:  "refund policy",
		Status: retriever.StatusIdle,
		Result: &retriever.FinalAnswer{
			Text: "Refunds are honored within 30 days.",
			Evidence: []retriever.Evidence{
				{Type: retriever.EvidenceRagie, DocumentID: "doc-1"},
				{Type: retriever.EvidenceCode, Result: "ok"},
			},
		},
	})

	entries := timeline.Entries()
	last := entries[len(entries)-1]
	if last.Kind != "answer" {
		t.Fatalf("last entry kind = %q, want answer", last.Kind)
	}
	if !strings.Contains(last.Content, "30 days") || !strings.Contains(last.Content, "2 evidence sources") {
		t.Fatalf("answer entry = %q, want text and source count", last.Content)
	}
}

func TestViewportFollowsNewestUnlessScrolled(t *testing.T) {
	t.Parallel()

	timeline := NewTimelineModel()
	timeline.SetViewportHeight(2)

	steps := make([]retriever.Step, 0, 6)
	for i := 0; i < 6; i++ {
		steps = append(steps, retriever.Step{Type: retriever.StepPlan})
	}
	timeline.SetFromSnapshot(retriever.Snapshot{Query: "q", Status: retriever.StatusLoading, Steps: steps})

	if timeline.scrollTop != timeline.maxScrollTop() {
		t.Fatalf("scrollTop = %d, want pinned to bottom %d", timeline.scrollTop, timeline.maxScrollTop())
	}

	timeline.ScrollToTop()
	timeline.SetFromSnapshot(retriever.Snapshot{
		Query:  "q",
		Status: retriever.StatusLoading,
		Steps:  append(steps, retriever.Step{Type: retriever.StepPlan}),
	})
	if timeline.scrollTop != 0 {
		t.Fatalf("scrollTop = %d, want 0 after user scrolled up", timeline.scrollTop)
	}
}

func TestTruncateLineCutsAtNewlineAndLimit(t *testing.T) {
	t.Parallel()

	if got := truncateLine("first\nsecond", 100); got != "first" {
		t.Fatalf("truncateLine newline = %q, want first", got)
	}
	if got := truncateLine("abcdef", 3); got != "abc…" {
		t.Fatalf("truncateLine limit = %q, want abc…", got)
	}
	if got := truncateLine("short", 10); got != "short" {
		t.Fatalf("truncateLine short = %q, want unchanged", got)
	}
}

func TestEvidencePanelRendersSources(t *testing.T) {
	t.Parallel()

	panel := NewEvidencePanel()
	panel.SetFromSnapshot(retriever.Snapshot{
		Status:          retriever.StatusIdle,
		CurrentStepType: retriever.ActivityAnswer,
		Result: &retriever.FinalAnswer{
			Text: "done",
			Evidence: []retriever.Evidence{
				{Type: retriever.EvidenceRagie, DocumentID: "doc-1", DocumentName: "Returns FAQ"},
				{Type: retriever.EvidenceCode, Result: "42"},
			},
			Usage: map[string]retriever.TokenCounts{
				"gpt-4.1": {TotalTokens: 1234},
			},
		},
	})

	view := panel.Render(60, ResolveTheme("dark"))
	if !strings.Contains(view, "Returns FAQ") {
		t.Fatalf("panel missing document name:\n%s", view)
	}
	if !strings.Contains(view, "code: 42") {
		t.Fatalf("panel missing code evidence:\n%s", view)
	}
	if !strings.Contains(view, "gpt-4.1: 1234") {
		t.Fatalf("panel missing usage:\n%s", view)
	}
}
