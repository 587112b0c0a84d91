package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"arc/internal/config"
	"arc/internal/conversations"
	"arc/internal/documents"
	"arc/internal/history"
	"arc/internal/retriever"
	"arc/internal/stream"
	"arc/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "v0.1.0"

func main() {
	if err := execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "arc: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "arc",
		Short: "arc streams agentic retrieval runs from a RAG backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, settings, err := loadSettings(configPath)
			if err != nil {
				return err
			}

			// TUI owns the terminal; diagnostics go to a file or nowhere.
			logger, closeLog, err := buildLogger(cfg, false)
			if err != nil {
				return err
			}
			defer closeLog()

			ret := buildRetriever(settings, logger)

			store, err := openHistoryStore()
			if err != nil {
				logger.Warn().Err(err).Msg("history store unavailable")
			}

			app := tui.NewApp(tui.AppConfig{
				Version:      version,
				BackendURL:   settings.BaseURL,
				Tenant:       settings.Tenant,
				ThemeName:    cfg.TUI.Theme,
				ShowEvidence: cfg.TUI.ShowEvidence,
				Controller:   ret,
				History:      store,
				Logger:       logger,
			})

			program := tea.NewProgram(app, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run tui: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.AddCommand(newQueryCmd(&configPath))
	cmd.AddCommand(newResolveCmd(&configPath))
	cmd.AddCommand(newHistoryCmd())
	return cmd
}

func newQueryCmd(configPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Run one retrieval non-interactively and print the trace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, settings, err := loadSettings(*configPath)
			if err != nil {
				return err
			}
			logger, closeLog, err := buildLogger(cfg, true)
			if err != nil {
				return err
			}
			defer closeLog()

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is empty")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if settings.Tenant != "" {
				client := conversations.New(conversations.Config{
					BaseURL: settings.BaseURL,
					Tenant:  settings.Tenant,
				})
				conversation, err := client.Create(ctx, question)
				if err != nil {
					logger.Warn().Err(err).Msg("create conversation")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "conversation: %s\n", conversation.ID)
				}
			}

			ret := buildRetriever(settings, logger)
			snapshot, err := runOnce(ctx, ret, question, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			recordRun(ctx, logger, question, snapshot)

			if snapshot.Status == retriever.StatusError {
				return fmt.Errorf("run failed: %s", snapshot.Err)
			}
			printFinalAnswer(cmd.OutOrStdout(), snapshot.Result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Abort the run after this long")
	return cmd
}

func newResolveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <document-id>",
		Short: "Resolve evidence source metadata for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, settings, err := loadSettings(*configPath)
			if err != nil {
				return err
			}

			client := documents.New(documents.Config{
				BaseURL: settings.BaseURL,
				Tenant:  settings.Tenant,
			})
			metadata, err := client.Resolve(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve document: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:   %s\n", metadata.ID)
			fmt.Fprintf(out, "name: %s\n", metadata.Name)
			names := make([]string, 0, len(metadata.Links))
			for name := range metadata.Links {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "link: %s -> %s\n", name, metadata.Links[name].HRef)
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		day      string
		listDays bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if listDays {
				return printHistoryDays(cmd.Context(), store, out)
			}

			selected := strings.TrimSpace(day)
			if selected == "" {
				selected = history.Today()
			}

			records, err := store.Load(cmd.Context(), selected)
			if errors.Is(err, history.ErrDayNotFound) {
				fmt.Fprintf(out, "no runs recorded for %s\n", selected)
				return printHistoryDays(cmd.Context(), store, out)
			}
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}

			for _, record := range records {
				when := time.Unix(record.TS, 0).UTC().Format(time.TimeOnly)
				fmt.Fprintf(out, "%s  %-9s  %s\n", when, record.Status, record.Query)
			}
			if len(records) == 0 {
				fmt.Fprintf(out, "no runs recorded for %s\n", selected)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Day to list (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&listDays, "days", false, "List days that have recorded runs")
	return cmd
}

// printHistoryDays lists the days with recorded runs, newest first.
func printHistoryDays(ctx context.Context, store *history.Store, out io.Writer) error {
	days, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list history days: %w", err)
	}
	if len(days) == 0 {
		fmt.Fprintln(out, "no recorded runs")
		return nil
	}
	for _, info := range days {
		fmt.Fprintf(out, "%s  %s  %d bytes\n", info.Day, info.UpdatedAt.UTC().Format(time.TimeOnly), info.SizeBytes)
	}
	return nil
}

func loadSettings(configPath string) (config.Config, config.BackendSettings, error) {
	cfg, err := config.Load(config.LoadOptions{Path: strings.TrimSpace(configPath)})
	if err != nil {
		return config.Config{}, config.BackendSettings{}, fmt.Errorf("load config: %w", err)
	}
	settings, err := cfg.BackendSettings()
	if err != nil {
		return config.Config{}, config.BackendSettings{}, fmt.Errorf("resolve backend settings: %w", err)
	}
	return cfg, settings, nil
}

func buildRetriever(settings config.BackendSettings, logger zerolog.Logger) *retriever.Retriever {
	transport := stream.New(stream.Config{
		BaseURL: settings.BaseURL,
		Path:    settings.StreamPath,
		Tenant:  settings.Tenant,
		Retry: stream.RetryPolicy{
			MaxRetries: settings.Retry.MaxRetries,
			BaseDelay:  settings.Retry.BaseDelay,
			MaxDelay:   settings.Retry.MaxDelay,
		},
		Logger: logger,
	})
	return retriever.New(retriever.Config{
		Transport: transport,
		Logger:    logger,
	})
}

// buildLogger honors the configured level and log file. In TUI mode a
// missing file means diagnostics are discarded so the alternate screen
// stays clean; console mode falls back to stderr.
func buildLogger(cfg config.Config, console bool) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Log.Level)))
	if err != nil {
		return zerolog.Nop(), func() {}, fmt.Errorf("parse log level %q: %w", cfg.Log.Level, err)
	}

	closeLog := func() {}
	var writer io.Writer
	switch {
	case strings.TrimSpace(cfg.Log.File) != "":
		file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closeLog, fmt.Errorf("open log file: %w", err)
		}
		writer = file
		closeLog = func() { _ = file.Close() }
	case console:
		writer = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		writer = io.Discard
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closeLog, nil
}

func openHistoryStore() (*history.Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}
	return history.NewStore(history.DefaultDir(home))
}

// runOnce drives a single run to completion, printing steps as they land.
func runOnce(ctx context.Context, ret *retriever.Retriever, question string, out io.Writer) (retriever.Snapshot, error) {
	ret.Submit(ctx, question)

	printed := 0
	for {
		select {
		case <-ctx.Done():
			ret.Reset()
			return retriever.Snapshot{}, ctx.Err()
		case snapshot := <-ret.Updates():
			for ; printed < len(snapshot.Steps); printed++ {
				step := snapshot.Steps[printed]
				fmt.Fprintf(out, "step %d: %s\n", printed+1, step.Type)
			}
			if snapshot.Status != retriever.StatusLoading {
				return snapshot, nil
			}
		}
	}
}

func recordRun(ctx context.Context, logger zerolog.Logger, question string, snapshot retriever.Snapshot) {
	store, err := openHistoryStore()
	if err != nil {
		logger.Warn().Err(err).Msg("history store unavailable")
		return
	}

	record := history.Record{
		ID:        uuid.NewString(),
		Query:     question,
		StepCount: len(snapshot.Steps),
	}
	if snapshot.Status == retriever.StatusError {
		record.Status = "error"
		record.Error = snapshot.Err
	} else {
		record.Status = "completed"
		if snapshot.Result != nil {
			record.Answer = snapshot.Result.Text
			record.SourceCount = len(snapshot.Result.Evidence)
		}
	}

	if err := store.Append(ctx, history.Today(), record); err != nil {
		logger.Warn().Err(err).Msg("record run")
	}
}

func printFinalAnswer(out io.Writer, answer *retriever.FinalAnswer) {
	if answer == nil {
		fmt.Fprintln(out, "run ended without a final answer")
		return
	}

	fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(answer.Text))
	for _, item := range answer.Evidence {
		switch item.Type {
		case retriever.EvidenceRagie:
			name := strings.TrimSpace(item.DocumentName)
			if name == "" {
				name = item.DocumentID
			}
			fmt.Fprintf(out, "source: %s\n", name)
		case retriever.EvidenceCode:
			fmt.Fprintf(out, "source: code execution\n")
		}
	}
}
