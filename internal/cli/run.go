package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/formsignal/internal/harness"
	"github.com/roach88/formsignal/internal/metrics"
	"github.com/roach88/formsignal/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// SessionIDs allows overriding the session id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	SessionIDs store.SessionIDGenerator
}

// RunResult is the outcome of one recorded scenario run.
type RunResult struct {
	Scenario     string             `json:"scenario"`
	Session      string             `json:"session"`
	Database     string             `json:"database"`
	Pass         bool               `json:"pass"`
	Observations int                `json:"observations"`
	Runs         map[string]int     `json:"runs"`
	Errors       []string           `json:"errors,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and record its trace",
		Long: `Run one scenario and record every watch run in the trace store.

The run gets a fresh UUIDv7 session id, so repeated runs of the same
scenario are kept side by side. Inspect them with the trace command.

The database defaults to store.path from the config.

Example:
  formsignal run --db ./formsignal.db ./testdata/scenarios/add_remove.yaml
  formsignal run ./testdata/scenarios/signup_flow.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from store.path)")

	return cmd
}

func runScenarioCommand(opts *RunOptions, scenarioPath string, cmd *cobra.Command) error {
	settings := opts.Settings()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = settings.Store.Path
	}

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	slog.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up metrics", err)
	}

	sessions := opts.SessionIDs
	if sessions == nil {
		sessions = store.UUIDv7Generator{}
	}
	runOpts := []harness.Option{
		harness.WithStore(st),
		harness.WithLogger(slog.Default()),
		harness.WithMetrics(m),
		harness.WithSessionIDs(sessions),
		harness.WithMaxFlushPasses(settings.Reactive.MaxFlushPasses),
	}
	if settings.Bridge.EagerNotify {
		runOpts = append(runOpts, harness.WithEagerNotify())
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("running scenario", "scenario", scenario.Name, "db", dbPath)
	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	summary, err := metrics.Summary(reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to gather metrics", err)
	}

	out := RunResult{
		Scenario:     scenario.Name,
		Session:      result.Session,
		Database:     dbPath,
		Pass:         result.Pass,
		Observations: len(result.Trace),
		Runs:         result.Runs,
		Errors:       result.Errors,
		Metrics:      summary,
	}

	if opts.Format == "json" {
		if err := outputRunJSON(cmd, out); err != nil {
			return err
		}
	} else {
		outputRunText(cmd, out, opts.Verbose)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func outputRunJSON(cmd *cobra.Command, result RunResult) error {
	response := CLIResponse{Status: "ok", Data: result, Session: result.Session}
	if !result.Pass {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_SCENARIO_FAILED",
			Message: fmt.Sprintf("%d assertion(s) failed", len(result.Errors)),
		}
	}
	return writeJSON(cmd, response)
}

func outputRunText(cmd *cobra.Command, result RunResult, verbose bool) {
	w := cmd.OutOrStdout()

	mark := "✓"
	if !result.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, result.Scenario)
	fmt.Fprintf(w, "  Session:      %s\n", result.Session)
	fmt.Fprintf(w, "  Database:     %s\n", result.Database)
	fmt.Fprintf(w, "  Observations: %d\n", result.Observations)

	for _, name := range sortedKeys(result.Runs) {
		fmt.Fprintf(w, "  %s: %d run(s)\n", name, result.Runs[name])
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}

	if verbose && len(result.Metrics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Metrics ===")
		for _, name := range sortedKeys(result.Metrics) {
			fmt.Fprintf(w, "  %s %g\n", name, result.Metrics[name])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
