package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rstate/internal/harness"
	"github.com/roach88/rstate/internal/path"
	"github.com/roach88/rstate/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	Path    string // optional - filter to one canonical path
	List    bool
}

// RunInfo describes a journaled run.
type RunInfo struct {
	ID        string   `json:"id"`
	Scenario  string   `json:"scenario"`
	Passed    bool     `json:"passed"`
	StateHash string   `json:"state_hash"`
	TraceHash string   `json:"trace_hash"`
	Failures  []string `json:"failures,omitempty"`
	Events    int      `json:"events"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run    RunInfo     `json:"run"`
	Path   string      `json:"path,omitempty"`
	Events []EventView `json:"events"`
	Stats  TraceStats  `json:"stats"`
}

// RunList is the --list output.
type RunList struct {
	Runs []RunInfo `json:"runs"`
}

// TraceStats counts the shown events by type.
type TraceStats struct {
	Changes  int `json:"changes"`
	Canceled int `json:"canceled"`
	Notifies int `json:"notifies"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show a journaled run",
		Long: `Show a run recorded with "rstate run --journal".

Without a run id the most recent run is shown. --path limits the events
to one path; any spelling of the path is accepted. --list prints every
recorded run instead, oldest first.

Examples:
  rstate trace --journal ./runs.db
  rstate trace --journal ./runs.db --list
  rstate trace --journal ./runs.db 0190a1b2-...
  rstate trace --journal ./runs.db --path "items[1]" --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal database (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Path, "path", "", "only show events at this path")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list the journal's runs")
	cmd.MarkFlagsMutuallyExclusive("list", "path")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	// store.Open would create a missing file.
	if _, err := os.Stat(opts.Journal); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("journal not found: %s", opts.Journal), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Journal))
	}

	filter := ""
	if cmd.Flags().Changed("path") {
		p, err := path.Parse(opts.Path)
		if err != nil {
			_ = formatter.Error(ErrCodeInvalidPath, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --path", err)
		}
		filter = p.String()
	}

	st, err := store.Open(opts.Journal)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if opts.List {
		if runID != "" {
			_ = formatter.Error(ErrCodeCommand, "--list takes no run id", nil)
			return NewExitError(ExitCommandError, "--list takes no run id")
		}
		return listRuns(ctx, st, formatter, cmd.OutOrStdout())
	}

	var run store.Run
	if runID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, runID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		msg := "journal has no runs"
		if runID != "" {
			msg = fmt.Sprintf("run not found: %s", runID)
		}
		_ = formatter.Error(ErrCodeRunNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var events []store.Event
	if cmd.Flags().Changed("path") {
		events, err = st.ReadEventsForPath(ctx, run.ID, filter)
	} else {
		events, err = st.ReadEvents(ctx, run.ID)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{
		Run:    runInfo(run),
		Path:   filter,
		Events: viewsFromJournal(events),
		Stats:  computeStats(events),
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	writeTraceText(cmd.OutOrStdout(), result, cmd.Flags().Changed("path"))
	return nil
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter, w io.Writer) error {
	runs, err := st.ReadRuns(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}

	list := RunList{Runs: make([]RunInfo, 0, len(runs))}
	for _, r := range runs {
		list.Runs = append(list.Runs, runInfo(r))
	}
	if formatter.IsJSON() {
		return formatter.Success(list)
	}

	fmt.Fprintf(w, "Runs (%d):\n", len(list.Runs))
	for _, r := range list.Runs {
		mark := "✓"
		if !r.Passed {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s  %s (%d events)\n", mark, r.ID, r.Scenario, r.Events)
	}
	return nil
}

func runInfo(run store.Run) RunInfo {
	return RunInfo{
		ID:        run.ID,
		Scenario:  run.Scenario,
		Passed:    run.Passed,
		StateHash: run.StateHash,
		TraceHash: run.TraceHash,
		Failures:  run.Failures,
		Events:    run.EventCount,
	}
}

func computeStats(events []store.Event) TraceStats {
	var stats TraceStats
	for _, ev := range events {
		switch ev.Type {
		case harness.EventChange:
			stats.Changes++
		case harness.EventCanceled:
			stats.Canceled++
		case harness.EventNotify:
			stats.Notifies++
		}
	}
	return stats
}

func writeTraceText(w io.Writer, result TraceResult, filtered bool) {
	status := "passed"
	if !result.Run.Passed {
		status = "failed"
	}
	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Scenario: %s (%s)\n", result.Run.Scenario, status)
	fmt.Fprintf(w, "State hash: %s\n", result.Run.StateHash)
	fmt.Fprintf(w, "Trace hash: %s\n", result.Run.TraceHash)

	fmt.Fprintln(w)
	if filtered {
		p := result.Path
		if p == "" {
			p = "<root>"
		}
		fmt.Fprintf(w, "Events at %s (%d of %d):\n", p, len(result.Events), result.Run.Events)
	} else {
		fmt.Fprintf(w, "Events (%d):\n", len(result.Events))
	}
	writeEvents(w, result.Events)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d change, %d canceled, %d notify\n",
		result.Stats.Changes, result.Stats.Canceled, result.Stats.Notifies)

	if len(result.Run.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Failures (%d):\n", len(result.Run.Failures))
		for _, f := range result.Run.Failures {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
}
