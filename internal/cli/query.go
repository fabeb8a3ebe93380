package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gridpred/internal/config"
	"github.com/roach88/gridpred/internal/engine"
	"github.com/roach88/gridpred/internal/harness"
	"github.com/roach88/gridpred/internal/predicate"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Config  string   // grid.cue overriding the scenario's grid
	NoIndex bool     // force the scan path
	Where   []string // ad-hoc filters replacing the scenario's queries
}

// QueryOutput is the outcome of one query.
type QueryOutput struct {
	Name      string   `json:"name"`
	Where     string   `json:"where"`
	Predicate string   `json:"predicate,omitempty"`
	Path      string   `json:"path,omitempty"`
	Matches   int      `json:"matches"`
	Keys      []string `json:"keys,omitempty"`
	Duration  string   `json:"duration,omitempty"`
	Error     string   `json:"error,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// QueryReport holds the outcome of every query.
type QueryReport struct {
	Grid    string        `json:"grid"`
	Entries int           `json:"entries"`
	Queries []QueryOutput `json:"queries"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <scenario.yaml>",
		Short: "Run a scenario's queries and print the matching keys",
		Long: `Load a scenario's dataset into its grid and run its queries.

Expectations are not checked; use check for that. With --where the
given filters run instead of the scenario's queries.

Exit codes:
  0 - Every query succeeded
  1 - One or more queries failed
  2 - Command error (scenario or config unusable)

Examples:
  gridpred query scenarios/people.yaml
  gridpred query scenarios/people.yaml --where 'age >= 18 && age < 65'
  gridpred query scenarios/people.yaml --config grid.cue --no-index`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "grid.cue to use instead of the scenario's grid")
	cmd.Flags().BoolVar(&opts.NoIndex, "no-index", false, "disable indexes and scan every entry")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter expression to run (repeatable)")

	return cmd
}

func runQuery(ctx context.Context, opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger()

	s, err := harness.LoadScenario(path)
	if err != nil {
		return commandError(formatter, ErrCodeLoad, "failed to load scenario", err)
	}

	var grid *config.Grid
	if opts.Config != "" {
		grid, err = config.Load(opts.Config)
	} else {
		grid, err = s.GridConfig()
	}
	if err != nil {
		return commandError(formatter, ErrCodeConfig, "invalid grid configuration", err)
	}

	rt, err := config.Build(ctx, grid, logger)
	if err != nil {
		return commandError(formatter, ErrCodeConfig, "failed to build grid", err)
	}
	defer rt.Close()

	entries, err := s.Entries()
	if err == nil {
		err = rt.Load(ctx, entries...)
	}
	if err != nil {
		return commandError(formatter, ErrCodeLoad, "failed to load dataset", err)
	}

	queries := s.Queries
	if len(opts.Where) > 0 {
		queries = make([]harness.QuerySpec, len(opts.Where))
		for i, where := range opts.Where {
			queries[i] = harness.QuerySpec{Name: fmt.Sprintf("where[%d]", i), Where: where}
		}
	}

	ex := engine.NewExecutor(append([]engine.Option{engine.WithLogger(logger)}, grid.QueryOptions()...)...)
	report := QueryReport{Grid: grid.Name, Entries: rt.Len(), Queries: make([]QueryOutput, 0, len(queries))}
	failed := 0
	for _, q := range queries {
		out := runOne(ctx, ex, rt, q, opts.NoIndex || grid.IndexesDisabled)
		if out.Error != "" {
			failed++
		}
		report.Queries = append(report.Queries, out)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeQuery, Message: fmt.Sprintf("%d query(ies) failed", failed)}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
	} else {
		outputQueryText(formatter, report)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d query(ies) failed", failed))
	}
	return nil
}

func runOne(ctx context.Context, ex *engine.Executor, rt *config.Runtime, q harness.QuerySpec, noIndex bool) QueryOutput {
	out := QueryOutput{Name: q.Name, Where: q.Where}

	p, err := predicate.Parse(q.Where)
	if err != nil {
		out.Error = harness.ErrCodeParse
		out.Message = err.Error()
		return out
	}
	out.Predicate = predicate.Optimize(p).String()

	combined, err := ex.RunPartitions(ctx, rt.Partitions, engine.Query{Predicate: p, IndexesDisabled: noIndex})
	if err != nil {
		out.Error = engine.ErrorCode(err)
		out.Message = err.Error()
		return out
	}

	var elapsed time.Duration
	for _, res := range combined.Results {
		elapsed = max(elapsed, res.Duration)
	}
	out.Path = harness.SummarizePaths(combined)
	out.Keys = combined.Keys()
	out.Matches = len(out.Keys)
	out.Duration = elapsed.String()
	return out
}

func outputQueryText(f *OutputFormatter, report QueryReport) {
	w := f.Writer
	for _, q := range report.Queries {
		if q.Error != "" {
			fmt.Fprintf(w, "✗ %s: %s\n", q.Name, q.Where)
			fmt.Fprintf(w, "  %s: %s\n", q.Error, q.Message)
			continue
		}
		fmt.Fprintf(w, "%s: %d match(es) via %s", q.Name, q.Matches, q.Path)
		if f.Verbose {
			fmt.Fprintf(w, " [%s] in %s", q.Predicate, q.Duration)
		}
		fmt.Fprintln(w)
		for _, k := range q.Keys {
			fmt.Fprintf(w, "  %s\n", k)
		}
	}
}

// commandError reports err in the configured format and returns an
// ExitError with ExitCommandError.
func commandError(f *OutputFormatter, code, message string, err error) error {
	var details any
	if cerrs := config.Errors(err); len(cerrs) > 1 {
		msgs := make([]string, len(cerrs))
		for i, e := range cerrs {
			msgs[i] = e.Error()
		}
		details = msgs
	}
	if ferr := f.Error(code, fmt.Sprintf("%s: %v", message, err), details); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitCommandError, message, err)
}
