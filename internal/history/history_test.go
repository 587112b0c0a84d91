package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreAppendAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), ".arc", "history"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	err = store.Append(context.Background(), "2026-08-29", Record{
		ID:          "run-1",
		Query:       "what is the refund policy",
		Status:      "completed",
		Answer:      "Refunds are honored within 30 days.",
		StepCount:   2,
		SourceCount: 1,
		TS:          1700000001,
	})
	if err != nil {
		t.Fatalf("Append(completed) error = %v", err)
	}

	err = store.Append(context.Background(), "2026-08-29", Record{
		ID:     "run-2",
		Query:  "warranty terms",
		Status: "error",
		Error:  "stream closed",
		TS:     1700000002,
	})
	if err != nil {
		t.Fatalf("Append(error) error = %v", err)
	}

	records, err := store.Load(context.Background(), "2026-08-29")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Load() records = %d, want 2", len(records))
	}
	if records[0].ID != "run-1" || records[0].Status != "completed" || records[0].StepCount != 2 {
		t.Fatalf("first record = %#v, want completed run-1", records[0])
	}
	if records[1].ID != "run-2" || records[1].Error != "stream closed" {
		t.Fatalf("second record = %#v, want error run-2", records[1])
	}
}

func TestStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), ".arc", "history"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	_, err = store.Load(context.Background(), "2000-01-01")
	if !errors.Is(err, ErrDayNotFound) {
		t.Fatalf("Load() error = %v, want ErrDayNotFound", err)
	}
}

func TestStoreListReturnsDayFiles(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), ".arc", "history")
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Append(context.Background(), "2026-08-28", Record{ID: "1", Query: "a", Status: "completed"}); err != nil {
		t.Fatalf("Append(day1) error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := store.Append(context.Background(), "2026-08-29", Record{ID: "1", Query: "b", Status: "completed"}); err != nil {
		t.Fatalf("Append(day2) error = %v", err)
	}

	got, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() count = %d, want 2", len(got))
	}
	if got[0].Day != "2026-08-29" || got[1].Day != "2026-08-28" {
		t.Fatalf("List() order = [%s %s], want newest first", got[0].Day, got[1].Day)
	}

	if _, err := os.Stat(got[0].Path); err != nil {
		t.Fatalf("history file path not found: %v", err)
	}
}

func TestStoreAppendValidatesRecord(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), ".arc", "history"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Append(context.Background(), "2026-08-29", Record{Query: "q"}); !errors.Is(err, ErrRecordIDRequired) {
		t.Fatalf("Append() error = %v, want ErrRecordIDRequired", err)
	}
	if err := store.Append(context.Background(), "2026-08-29", Record{ID: "1"}); !errors.Is(err, ErrQueryRequired) {
		t.Fatalf("Append() error = %v, want ErrQueryRequired", err)
	}
	if err := store.Append(context.Background(), "../evil", Record{ID: "1", Query: "q"}); !errors.Is(err, ErrInvalidDay) {
		t.Fatalf("Append() error = %v, want ErrInvalidDay", err)
	}
}

func TestStoreAppendFillsTimestampWhenMissing(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), ".arc", "history"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Append(context.Background(), "2026-08-29", Record{
		ID:     "run-1",
		Query:  "q",
		Status: "completed",
	}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.Load(context.Background(), "2026-08-29")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Load() records = %d, want 1", len(records))
	}
	if records[0].TS <= 0 {
		t.Fatalf("TS = %d, want > 0", records[0].TS)
	}
}
