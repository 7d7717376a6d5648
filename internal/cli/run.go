package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/roach88/rstate/internal/harness"
	"github.com/roach88/rstate/internal/reactive"
	"github.com/roach88/rstate/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string // SQLite journal to record the run in
	Metrics bool   // report engine metrics after the run
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario  string          `json:"scenario"`
	Pass      bool            `json:"pass"`
	RunID     string          `json:"run_id"`
	StateHash string          `json:"state_hash"`
	TraceHash string          `json:"trace_hash"`
	Trace     []EventView     `json:"trace"`
	Errors    []string        `json:"errors,omitempty"`
	Final     json.RawMessage `json:"final"`
	Metrics   []MetricSample  `json:"metrics,omitempty"`
}

// MetricSample is one gathered metric value. Histograms report their
// sample count.
type MetricSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute one scenario and print its trace",
		Long: `Execute a scenario against a fresh State and print every observer
call it produced, the final state and any failed assertions.

With --journal the run and its trace are appended to a SQLite journal
that the trace command can read back.

Exit codes:
  0 - Scenario passed
  1 - A step or assertion failed
  2 - Command error (missing file, invalid scenario, journal error)

Examples:
  rstate run ./scenarios/cart.yaml
  rstate run ./scenarios/cart.yaml --journal ./runs.db
  rstate run ./scenarios/cart.yaml --metrics --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report engine metrics")

	return cmd
}

func runScenarioFile(opts *RunOptions, file string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	if _, err := os.Stat(file); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeInvalidScenario, fmt.Sprintf("scenario file not found: %s", file), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario file not found: %s", file))
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(logger)}

	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		runOpts = append(runOpts, harness.WithMetrics(reactive.NewMetrics(reg)))
	}

	if opts.Journal != "" {
		logger.Debug("opening journal", "path", opts.Journal)
		st, err := store.Open(opts.Journal)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		// A scenario's own run_id wins over the generated one.
		runOpts = append(runOpts, harness.WithJournal(st), harness.WithRunIDGenerator(store.UUIDv7Generator{}))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeScenarioFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"run_id", result.RunID,
		"events", len(result.Trace),
		"pass", result.Pass,
	)

	out := RunResult{
		Scenario:  scenario.Name,
		Pass:      result.Pass,
		RunID:     result.RunID,
		StateHash: result.StateHash,
		TraceHash: result.TraceHash,
		Trace:     viewsFromTrace(result.Trace),
		Errors:    result.Errors,
		Final:     rawValue(result.Final),
	}
	if reg != nil {
		if out.Metrics, err = gatherMetrics(reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
	}

	if formatter.IsJSON() {
		if !out.Pass {
			if err := formatter.Failure(ErrCodeScenarioFailed, fmt.Sprintf("scenario %s failed", out.Scenario), out); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
		}
		return formatter.Success(out)
	}

	writeRunText(cmd.OutOrStdout(), out, opts.Journal != "")
	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
	}
	return nil
}

func writeRunText(w io.Writer, out RunResult, journaled bool) {
	mark := "✓"
	if !out.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, out.Scenario)
	if journaled {
		fmt.Fprintf(w, "  run: %s\n", out.RunID)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Trace (%d events):\n", len(out.Trace))
	writeEvents(w, out.Trace)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Final state: %s\n", out.Final)

	if len(out.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Failures (%d):\n", len(out.Errors))
		for _, e := range out.Errors {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(strings.TrimRight(e, "\n"), "\n", "\n  "))
		}
	}

	if len(out.Metrics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Metrics:")
		for _, m := range out.Metrics {
			fmt.Fprintf(w, "  %s%s %g\n", m.Name, formatLabels(m.Labels), m.Value)
		}
	}
}

// gatherMetrics flattens the registry into samples, sorted by name and
// then labels.
func gatherMetrics(g prometheus.Gatherer) ([]MetricSample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var samples []MetricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := MetricSample{Name: mf.GetName(), Labels: labelMap(m.GetLabel())}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				s.Value = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				s.Value = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				s.Name += "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			samples = append(samples, s)
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return formatLabels(samples[i].Labels) < formatLabels(samples[j].Labels)
	})
	return samples, nil
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	labels := make(map[string]string, len(pairs))
	for _, lp := range pairs {
		labels[lp.GetName()] = lp.GetValue()
	}
	return labels
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
