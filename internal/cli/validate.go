package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridpred/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Grid   *GridSummary      `json:"grid,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// GridSummary describes a valid grid configuration.
type GridSummary struct {
	Name       string   `json:"name"`
	Partitions int      `json:"partitions"`
	Indexes    []string `json:"indexes"`
}

// ValidationError is one configuration problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <grid.cue>",
		Short: "Validate a grid configuration",
		Long: `Validate a CUE grid configuration without building the grid.

Every problem is reported with its position, not only the first.

Exit codes:
  0 - Configuration is valid
  1 - Configuration is invalid
  2 - Command error (file not found)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("config file not found: %s", path)
		if ferr := formatter.Error(ErrCodeLoad, msg, nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, msg, err)
	}

	grid, err := config.Load(path)
	if err != nil {
		result := ValidationResult{Errors: validationErrors(err)}
		if err := outputValidationErrors(formatter, path, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d configuration error(s)", path, len(result.Errors)))
	}

	opts.Logger().Debug("configuration loaded", "path", path, "grid", grid.Name, "indexes", len(grid.Indexes))

	result := ValidationResult{
		Valid: true,
		Grid: &GridSummary{
			Name:       grid.Name,
			Partitions: grid.Partitions,
			Indexes:    grid.IndexNames(),
		},
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s: grid %q, %d partition(s), %d index(es)\n",
		path, grid.Name, grid.Partitions, len(grid.Indexes))
	if formatter.Verbose {
		for _, name := range grid.IndexNames() {
			idx := grid.Indexes[name]
			fmt.Fprintf(w, "  %s: %s %s over %s (%s)\n", name, idx.Type, idx.Kind, idx.Attribute, idx.Backend)
		}
	}
	return nil
}

func validationErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range config.Errors(err) {
		ve := ValidationError{Field: e.Field, Message: e.Message}
		if e.Pos.IsValid() {
			ve.File = e.Pos.Filename()
			ve.Line = e.Pos.Line()
			ve.Column = e.Pos.Column()
		}
		out = append(out, ve)
	}
	return out
}

func outputValidationErrors(f *OutputFormatter, path string, result ValidationResult) error {
	if f.Format == "json" {
		return f.Response(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeConfig,
				Message: fmt.Sprintf("%d configuration error(s)", len(result.Errors)),
			},
		})
	}

	w := f.Writer
	fmt.Fprintf(w, "✗ %s\n", path)
	for _, e := range result.Errors {
		var loc strings.Builder
		if e.Line > 0 {
			fmt.Fprintf(&loc, "%d:%d: ", e.Line, e.Column)
		}
		fmt.Fprintf(w, "  %s%s: %s\n", loc.String(), e.Field, e.Message)
	}
	return nil
}
