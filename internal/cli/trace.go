package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/objcore/internal/object"
	"github.com/roach88/objcore/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Signal   string // optional - filter to one signal
}

// TraceEmission is one journaled emission with the dispatches it caused.
type TraceEmission struct {
	Seq        int64           `json:"seq"`
	Source     uint64          `json:"source"`
	Class      string          `json:"class"`
	Signal     string          `json:"signal"`
	Args       json.RawMessage `json:"args"`
	Dispatches []TraceDispatch `json:"dispatches"`
}

// TraceDispatch is one journaled dispatch.
type TraceDispatch struct {
	Seq      int64  `json:"seq"`
	Target   uint64 `json:"target"`
	Callable string `json:"callable"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	Emissions  int   `json:"emissions"`
	Dispatches int   `json:"dispatches"`
	OK         int   `json:"ok"`
	Errors     int   `json:"errors"`
	Dangling   int   `json:"dangling"`
	Deferred   int   `json:"deferred"`
	MaxSeq     int64 `json:"max_seq"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run       store.Run       `json:"run"`
	Signal    string          `json:"signal,omitempty"`
	Emissions []TraceEmission `json:"emissions"`
	Stats     TraceStats      `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the journaled emissions of a run",
		Long: `Print the emissions journaled by "objcore run --db" and the dispatches
each one caused, in sequence order.

A deferred dispatch is journaled twice: once when it is queued and once when
the queue is flushed. Stats count outcomes across the whole run, regardless
of --signal.

Examples:
  objcore trace --db ./trace.db
  objcore trace --db ./trace.db --run 0190f1b2-...
  objcore trace --db ./trace.db --signal fired --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to print (default: latest run)")
	cmd.Flags().StringVar(&opts.Signal, "signal", "", "filter to emissions of one signal")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	st, err := store.Open(opts.Database, store.WithLogger(newLogger(cmd.ErrOrStderr(), opts.Verbose)))
	if err != nil {
		_ = out.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := selectRun(ctx, st, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		msg := "no runs journaled"
		if opts.RunID != "" {
			msg = fmt.Sprintf("run not found: %s", opts.RunID)
		}
		_ = out.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result, err := buildTrace(ctx, st, run, opts.Signal)
	if err != nil {
		_ = out.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	return out.Success(result)
}

func selectRun(ctx context.Context, st *store.Store, id string) (store.Run, error) {
	if id == "" {
		return st.LatestRun(ctx)
	}
	return st.ReadRun(ctx, id)
}

// buildTrace reads a run's emissions, each with its dispatches, and the
// run-wide outcome counts.
func buildTrace(ctx context.Context, st *store.Store, run store.Run, signal string) (TraceResult, error) {
	result := TraceResult{
		Run:       run,
		Signal:    signal,
		Emissions: []TraceEmission{},
	}

	emissions, err := st.ReadEmissions(ctx, run.ID, signal)
	if err != nil {
		return TraceResult{}, err
	}

	for _, em := range emissions {
		dispatches, err := st.ReadDispatches(ctx, run.ID, em.Seq)
		if err != nil {
			return TraceResult{}, err
		}

		te := TraceEmission{
			Seq:        em.Seq,
			Source:     em.Source,
			Class:      em.Class,
			Signal:     em.Signal,
			Args:       json.RawMessage(em.Args),
			Dispatches: make([]TraceDispatch, 0, len(dispatches)),
		}
		for _, d := range dispatches {
			te.Dispatches = append(te.Dispatches, TraceDispatch{
				Seq:      d.Seq,
				Target:   d.Target,
				Callable: d.Callable,
				Outcome:  d.Outcome,
				Error:    d.Error,
			})
		}
		result.Emissions = append(result.Emissions, te)
		result.Stats.Dispatches += len(dispatches)
	}
	result.Stats.Emissions = len(result.Emissions)

	counts := []struct {
		outcome object.Outcome
		dst     *int
	}{
		{object.OutcomeOK, &result.Stats.OK},
		{object.OutcomeError, &result.Stats.Errors},
		{object.OutcomeDangling, &result.Stats.Dangling},
		{object.OutcomeDeferred, &result.Stats.Deferred},
	}
	for _, c := range counts {
		n, err := st.CountDispatches(ctx, run.ID, string(c.outcome))
		if err != nil {
			return TraceResult{}, err
		}
		*c.dst = n
	}

	if result.Stats.MaxSeq, err = st.MaxSeq(ctx, run.ID); err != nil {
		return TraceResult{}, err
	}
	return result, nil
}

// WriteText renders the run as a timeline followed by stats.
func (r TraceResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Trace for Run: %s (%s)\n", r.Run.ID, r.Run.Name)
	if r.Signal != "" {
		fmt.Fprintf(w, "Signal: %s\n", r.Signal)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(r.Emissions) == 0 {
		fmt.Fprintln(w, "  (no emissions)")
	}
	for _, em := range r.Emissions {
		fmt.Fprintf(w, "  [%d] %s#%d.%s %s\n", em.Seq, em.Class, em.Source, em.Signal, string(em.Args))
		for _, d := range em.Dispatches {
			fmt.Fprintf(w, "    [%d] -> %s %s", d.Seq, d.Callable, d.Outcome)
			if d.Error != "" {
				fmt.Fprintf(w, " (%s)", d.Error)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Emissions:  %d\n", r.Stats.Emissions)
	fmt.Fprintf(w, "  Dispatches: %d (ok %d, error %d, dangling %d, deferred %d)\n",
		r.Stats.Dispatches, r.Stats.OK, r.Stats.Errors, r.Stats.Dangling, r.Stats.Deferred)
	fmt.Fprintf(w, "  Last seq:   %d\n", r.Stats.MaxSeq)
	return nil
}
