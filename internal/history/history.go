// Package history persists completed retrieval runs as append-only JSONL
// files, one file per day, so past answers survive process restarts.
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultHistoryDirName = ".arc/history"
	historyFileExt        = ".jsonl"
	maxJSONLLineSize      = 1024 * 1024
	dayLayout             = "2006-01-02"
)

var (
	ErrHistoryDirRequired = errors.New("history directory is required")
	ErrDayRequired        = errors.New("history day is required")
	ErrInvalidDay         = errors.New("invalid history day")
	ErrRecordIDRequired   = errors.New("record id is required")
	ErrQueryRequired      = errors.New("record query is required")
	ErrDayNotFound        = errors.New("history day not found")
)

// Record is one completed run in a history JSONL file.
type Record struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Query          string `json:"query"`
	Status         string `json:"status"`
	Answer         string `json:"answer,omitempty"`
	Error          string `json:"error,omitempty"`
	StepCount      int    `json:"step_count,omitempty"`
	SourceCount    int    `json:"source_count,omitempty"`
	TS             int64  `json:"ts"`
}

// DayInfo describes one history file on disk.
type DayInfo struct {
	Day       string
	Path      string
	UpdatedAt time.Time
	SizeBytes int64
}

// Store persists run records as append-only JSONL files.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore constructs a history store rooted at dir.
func NewStore(dir string) (*Store, error) {
	root := strings.TrimSpace(dir)
	if root == "" {
		return nil, ErrHistoryDirRequired
	}
	return &Store{dir: root}, nil
}

// DefaultDir returns the canonical history directory under a home dir.
func DefaultDir(home string) string {
	return filepath.Join(home, defaultHistoryDirName)
}

// Today returns the day key for the current date.
func Today() string {
	return time.Now().UTC().Format(dayLayout)
}

// Append appends one record to a day's history file.
func (s *Store) Append(ctx context.Context, day string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.dayPath(day)
	if err != nil {
		return err
	}

	record.ID = strings.TrimSpace(record.ID)
	record.Query = strings.TrimSpace(record.Query)
	if record.ID == "" {
		return ErrRecordIDRequired
	}
	if record.Query == "" {
		return ErrQueryRequired
	}
	if record.TS <= 0 {
		record.TS = time.Now().Unix()
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create history dir %s: %w", s.dir, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(raw); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	if _, err := file.Write([]byte("\n")); err != nil {
		return fmt.Errorf("append history newline: %w", err)
	}
	return nil
}

// Load reads all records from one day's history file.
func (s *Store) Load(ctx context.Context, day string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.dayPath(day)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDayNotFound, strings.TrimSpace(day))
		}
		return nil, fmt.Errorf("open history file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxJSONLLineSize)

	records := make([]Record, 0, 32)
	lineNum := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("decode history line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("decode history line too large (> %d bytes): %w", maxJSONLLineSize, err)
		}
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		return nil, fmt.Errorf("scan history file: %w", err)
	}

	return records, nil
}

// List returns known history days sorted by newest first.
func (s *Store) List(ctx context.Context) ([]DayInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history dir %s: %w", s.dir, err)
	}

	out := make([]DayInfo, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item.IsDir() || filepath.Ext(item.Name()) != historyFileExt {
			continue
		}

		info, err := item.Info()
		if err != nil {
			return nil, fmt.Errorf("read history file info %s: %w", item.Name(), err)
		}

		day := strings.TrimSuffix(item.Name(), historyFileExt)
		out = append(out, DayInfo{
			Day:       day,
			Path:      filepath.Join(s.dir, item.Name()),
			UpdatedAt: info.ModTime(),
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Day > out[j].Day
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) dayPath(day string) (string, error) {
	id := strings.TrimSpace(day)
	if id == "" {
		return "", ErrDayRequired
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %s", ErrInvalidDay, id)
	}
	return filepath.Join(s.dir, id+historyFileExt), nil
}
