package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/objcore/internal/harness"
	"github.com/roach88/objcore/internal/store"
	"github.com/roach88/objcore/internal/variant"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// RunIDs allows overriding the journal run id generator (for testing).
	// If nil, run ids are UUIDv7.
	RunIDs store.RunIDGenerator
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	RunID    string               `json:"run_id,omitempty"`
	Trace    []harness.TraceEvent `json:"trace"`
	Errors   []string             `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run an object scenario and print its trace",
		Long: `Run a YAML scenario against a fresh object database and print the
emissions, dispatches and method calls it produced.

Classes named by the scenario are compiled from CUE manifests resolved
relative to the scenario file. With --db the emissions and dispatches are
also journaled to a SQLite trace database for the trace command.

Exit status is 1 when an expectation or assertion fails and 2 when the
scenario cannot be loaded or run.

Examples:
  objcore run ./scenarios/one_shot.yaml
  objcore run ./scenarios/one_shot.yaml --db ./trace.db
  objcore run ./scenarios/one_shot.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run to this SQLite database")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	out := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = out.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	logger.Debug("scenario loaded",
		"name", scenario.Name,
		"objects", len(scenario.Objects),
		"steps", len(scenario.Steps),
	)

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Database != "" {
		st, err := store.Open(opts.Database, store.WithLogger(logger))
		if err != nil {
			_ = out.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithStore(st), harness.WithRunIDGenerator(opts.RunIDs))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	logger.Debug("scenario finished", "name", scenario.Name, "pass", result.Pass, "events", len(result.Trace))

	if err := out.Success(RunResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		RunID:    result.RunID,
		Trace:    result.Trace,
		Errors:   result.Errors,
	}); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// WriteText renders the trace one event per line. Calls are indented under
// the dispatch that follows them.
func (r RunResult) WriteText(w io.Writer) error {
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s\n", status, r.Scenario)
	if r.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
	}

	if len(r.Trace) > 0 {
		fmt.Fprintln(w, "\n=== Trace ===")
	}
	for _, ev := range r.Trace {
		switch ev.Type {
		case harness.EventEmission:
			fmt.Fprintf(w, "[%d] emit %s.%s %s\n", ev.Seq, ev.Object, ev.Signal, formatArgs(ev.Args))
		case harness.EventCall:
			fmt.Fprintf(w, "      call %s.%s %s\n", ev.Object, ev.Method, formatArgs(ev.Args))
		case harness.EventDispatch:
			fmt.Fprintf(w, "[%d] dispatch #%d %s -> %s %s", ev.Seq, ev.EmissionSeq, ev.Signal, ev.Callable, ev.Outcome)
			if ev.Error != "" {
				fmt.Fprintf(w, " (%s)", ev.Error)
			}
			fmt.Fprintln(w)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "\n=== Failures ===")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
	}
	return nil
}

// formatArgs renders arguments as their canonical JSON array.
func formatArgs(args []variant.Value) string {
	if args == nil {
		args = []variant.Value{}
	}
	data, err := variant.MarshalCanonical(variant.Array(args))
	if err != nil {
		slog.Debug("unencodable trace arguments", "error", err)
		return "[?]"
	}
	return string(data)
}
