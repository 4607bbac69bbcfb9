package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crust/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	Path     string `json:"path"`
	Scenario string `json:"scenario,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema.

Each path is a scenario file or a directory searched for *.yaml and *.yml
files. Files are decoded strictly, unified with the CUE schema and checked
for cross references (selector ids, assertion tick indexes).

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error (path not found, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := expandScenarioPaths(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve paths", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, f := range files {
		formatter.VerboseLog("validating %s", f)
		fv := FileValidation{Path: f, Valid: true}

		s, err := harness.LoadScenario(f)
		if err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			var schemaErr *harness.SchemaError
			if errors.As(err, &schemaErr) && schemaErr.Pos.IsValid() {
				fv.Line = schemaErr.Pos.Line()
			}
			result.Valid = false
		} else {
			fv.Scenario = s.Name
		}
		result.Files = append(result.Files, fv)
	}

	invalid := 0
	for _, fv := range result.Files {
		if !fv.Valid {
			invalid++
		}
	}

	if formatter.JSON() {
		if err := formatter.Result(result, !result.Valid, ErrCodeInvalid,
			fmt.Sprintf("%d file(s) invalid", invalid)); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(w, "\u2713 %s (%s)\n", fv.Path, fv.Scenario)
			} else {
				fmt.Fprintf(w, "\u2717 %s\n  %s\n", fv.Path, fv.Error)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) invalid", invalid))
	}
	return nil
}
