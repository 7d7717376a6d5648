package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rstate/internal/harness"
	"github.com/roach88/rstate/internal/loader"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Check scenario files without running them",
		Long: `Check scenario files without running them.

Each file is decoded strictly (unknown keys are errors), its steps and
assertions are checked, and its initial state is loaded, including any
state_file in JSON, YAML or CUE.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		fv := validateFile(file)
		formatter.VerboseLog("validated %s: valid=%t", file, fv.Valid)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.IsJSON() {
		if !result.Valid {
			msg := fmt.Sprintf("%d invalid scenario(s)", countInvalid(result.Files))
			if err := formatter.Failure(ErrCodeInvalidScenario, msg, result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		return formatter.Success(result)
	}

	writeValidationText(cmd.OutOrStdout(), result)
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario(s)", countInvalid(result.Files)))
	}
	return nil
}

func validateFile(file string) FileValidation {
	fv := FileValidation{File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		fv.Code = ErrCodeInvalidScenario
		fv.Error = err.Error()
		return fv
	}
	fv.Name = scenario.Name

	if _, err := scenario.InitialState(); err != nil {
		fv.Code = loader.ErrCodeGeneric
		var loadErr *loader.LoadError
		if errors.As(err, &loadErr) {
			fv.Code = loadErr.Code
		}
		fv.Error = err.Error()
		return fv
	}

	fv.Valid = true
	return fv
}

func countInvalid(files []FileValidation) int {
	n := 0
	for _, f := range files {
		if !f.Valid {
			n++
		}
	}
	return n
}

func writeValidationText(w io.Writer, result ValidationResult) {
	for _, f := range result.Files {
		if f.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", f.File, f.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", f.File)
		fmt.Fprintf(w, "  [%s] %s\n", f.Code, f.Error)
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ All scenarios valid")
		return
	}
	fmt.Fprintf(w, "%d of %d scenario(s) invalid\n", countInvalid(result.Files), len(result.Files))
}
