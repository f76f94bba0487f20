package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Scenario string // list: filter by scenario name
	Watch    string // show: filter to a single watch
}

// TraceEvent represents a single observation in the trace timeline.
type TraceEvent struct {
	Seq         int64    `json:"seq"`
	Step        int      `json:"step"`
	Watch       string   `json:"watch"`
	Path        string   `json:"path"`
	Run         int      `json:"run"`
	Reading     ir.Value `json:"reading"`
	ID          string   `json:"id"`
	Fingerprint string   `json:"fingerprint"`
}

// TraceResult holds the complete trace output of one session.
type TraceResult struct {
	Session  ir.Session   `json:"session"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Observations int            `json:"observations"`
	Steps        int            `json:"steps"`
	Runs         map[string]int `json:"runs"`
	IsComplete   bool           `json:"is_complete"`
}

// VerifyResult holds the outcome of trace verification.
type VerifyResult struct {
	Session    string   `json:"session"`
	Valid      bool     `json:"valid"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded sessions",
		Long: `Inspect the sessions and observations recorded by the run command.

Subcommands:
  list    - List recorded sessions
  show    - Show the observation timeline of a session
  verify  - Recompute fingerprints and IDs of a session

Examples:
  formsignal trace list --db ./formsignal.db
  formsignal trace show 0192c0de-... --watch live_a
  formsignal trace verify 0192c0de-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from store.path)")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List recorded sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Scenario, "scenario", "", "only list sessions of this scenario")

	show := &cobra.Command{
		Use:           "show <session>",
		Short:         "Show the observation timeline of a session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceShow(opts, args[0], cmd)
		},
	}
	show.Flags().StringVar(&opts.Watch, "watch", "", "filter to a single watch")

	verify := &cobra.Command{
		Use:           "verify <session>",
		Short:         "Verify fingerprints and IDs of a session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceVerify(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(list, show, verify)
	return cmd
}

func (o *TraceOptions) open() (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.Settings().Store.Path
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func sessionError(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}
	return WrapExitError(ExitCommandError, "failed to read session", err)
}

func runTraceList(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(commandContext(cmd), opts.Scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	if sessions == nil {
		sessions = []ir.Session{}
	}

	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: sessions})
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %-20s form=%s seq=%d\n", s.ID, s.Scenario, s.Form, s.Seq)
	}
	return nil
}

func runTraceShow(opts *TraceOptions, sessionID string, cmd *cobra.Command) error {
	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := commandContext(cmd)
	session, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		return sessionError(sessionID, err)
	}
	observations, err := st.ReadObservations(ctx, sessionID, opts.Watch)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read observations", err)
	}

	result := buildTrace(session, observations)
	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: result, Session: result.Session.ID})
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTrace converts stored observations into a timeline. A session is
// complete once its recorded seq covers the last observation.
func buildTrace(session ir.Session, observations []ir.Observation) TraceResult {
	result := TraceResult{
		Session:  session,
		Timeline: make([]TraceEvent, 0, len(observations)),
		Stats:    TraceStats{Runs: make(map[string]int)},
	}

	steps := make(map[int]bool)
	var last int64
	for _, obs := range observations {
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:         obs.Seq,
			Step:        obs.Step,
			Watch:       obs.Watch,
			Path:        obs.Path,
			Run:         obs.Run,
			Reading:     obs.Reading,
			ID:          obs.ID,
			Fingerprint: obs.Fingerprint,
		})
		steps[obs.Step] = true
		if obs.Run > result.Stats.Runs[obs.Watch] {
			result.Stats.Runs[obs.Watch] = obs.Run
		}
		last = obs.Seq
	}

	result.Stats.Observations = len(observations)
	result.Stats.Steps = len(steps)
	result.Stats.IsComplete = session.Seq > 0 && session.Seq >= last
	return result
}

func runTraceVerify(opts *TraceOptions, sessionID string, cmd *cobra.Command) error {
	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	mismatches, err := st.Verify(commandContext(cmd), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return sessionError(sessionID, err)
		}
		return WrapExitError(ExitCommandError, "verification failed", err)
	}

	result := VerifyResult{Session: sessionID, Valid: len(mismatches) == 0}
	for _, m := range mismatches {
		result.Mismatches = append(result.Mismatches, m.String())
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result, Session: sessionID}
		if !result.Valid {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_TRACE_MISMATCH",
				Message: fmt.Sprintf("%d mismatch(es)", len(mismatches)),
			}
		}
		if err := writeJSON(cmd, response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.Valid {
			fmt.Fprintf(w, "✓ Session %s verified\n", truncateID(sessionID))
		} else {
			fmt.Fprintf(w, "✗ Session %s has %d mismatch(es)\n", truncateID(sessionID), len(mismatches))
			for _, m := range result.Mismatches {
				fmt.Fprintf(w, "  %s\n", m)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("session %s failed verification", sessionID))
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session.ID)
	fmt.Fprintf(w, "Scenario: %s (form %s)\n", result.Session.Scenario, result.Session.Form)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no observations)")
	} else {
		for _, event := range result.Timeline {
			fmt.Fprintf(w, "  [%d] step %d %s#%d %s\n",
				event.Seq, event.Step, event.Watch, event.Run, formatReading(event.Reading))
			if verbose {
				fmt.Fprintf(w, "       Path: %s\n", displayPath(event.Path))
				fmt.Fprintf(w, "       ID: %s\n", truncateID(event.ID))
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Observations: %d\n", result.Stats.Observations)
	fmt.Fprintf(w, "  Steps:        %d\n", result.Stats.Steps)
	for _, watch := range sortedKeys(result.Stats.Runs) {
		fmt.Fprintf(w, "  %s: %d run(s)\n", watch, result.Stats.Runs[watch])
	}
	return nil
}

// formatReading renders a reading as canonical JSON.
func formatReading(v ir.Value) string {
	if v == nil {
		return "null"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// completeStatus returns a human-readable completion status.
func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (session not finished)"
}
