package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestRecallCyclesThroughRememberedQueries(t *testing.T) {
	t.Parallel()

	input := NewInputModel("?", "")
	input.Remember("first question")
	input.Remember("second question")

	input.SetValue("half-typed")
	input.RecallPrevious()
	if input.Value() != "second question" {
		t.Fatalf("first recall = %q, want second question", input.Value())
	}
	input.RecallPrevious()
	if input.Value() != "first question" {
		t.Fatalf("second recall = %q, want first question", input.Value())
	}

	// Cycling past the oldest entry stays put.
	input.RecallPrevious()
	if input.Value() != "first question" {
		t.Fatalf("recall past oldest = %q, want first question", input.Value())
	}

	input.RecallNext()
	if input.Value() != "second question" {
		t.Fatalf("forward recall = %q, want second question", input.Value())
	}
	input.RecallNext()
	if input.Value() != "half-typed" {
		t.Fatalf("draft not restored: %q", input.Value())
	}
}

func TestRecallCollapsesConsecutiveDuplicates(t *testing.T) {
	t.Parallel()

	input := NewInputModel("?", "")
	input.Remember("same question")
	input.Remember("same question")

	input.RecallPrevious()
	input.RecallPrevious()
	if input.Value() != "same question" {
		t.Fatalf("recall = %q, want same question", input.Value())
	}
	input.RecallNext()
	if input.Value() != "" {
		t.Fatalf("expected empty draft after cycling forward, got %q", input.Value())
	}
}

func TestTypingResetsRecallPosition(t *testing.T) {
	t.Parallel()

	input := NewInputModel("?", "")
	input.Remember("old question")

	input.RecallPrevious()
	input.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'!'}})
	if input.Value() != "old question!" {
		t.Fatalf("edit after recall = %q", input.Value())
	}

	// The edited line is a fresh draft: recall starts from the newest
	// entry again.
	input.RecallPrevious()
	if input.Value() != "old question" {
		t.Fatalf("recall after edit = %q, want old question", input.Value())
	}
}

func TestRecallKeysHandledByInput(t *testing.T) {
	t.Parallel()

	input := NewInputModel("?", "")
	input.Remember("remembered")

	if submitted := input.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlP}); submitted {
		t.Fatalf("ctrl+p reported as submit")
	}
	if input.Value() != "remembered" {
		t.Fatalf("ctrl+p did not recall: %q", input.Value())
	}
	if submitted := input.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlN}); submitted {
		t.Fatalf("ctrl+n reported as submit")
	}
	if input.Value() != "" {
		t.Fatalf("ctrl+n did not restore draft: %q", input.Value())
	}
}
