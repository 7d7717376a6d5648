package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rstate/internal/logging"
)

// RootOptions holds the persistent flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string // "text" or "json"
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the rstate command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rstate",
		Short: "Run and inspect reactive state scenarios",
		Long: `rstate drives the reactive state engine from scenario files.

A scenario loads a state document, registers change and notify observers,
applies a list of mutations and checks the observer trace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if slices.Contains(ValidFormats, opts.Format) {
				return nil
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and extra diagnostics on stderr")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		NewRunCommand(opts),
		NewTestCommand(opts),
		NewValidateCommand(opts),
		NewTraceCommand(opts),
		NewPathCommand(opts),
	)
	return cmd
}

// Execute runs rstate with args and returns the process exit code.
//
// Commands report their own failures through the formatter and return an
// ExitError. Anything else, such as a bad flag or a wrong argument count,
// is reported here: as an error response in json mode, on stderr otherwise.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if opts.Format == "json" && !errors.As(err, &exitErr) {
		if opts.formatter(cmd).Error(ErrCodeCommand, err.Error(), nil) == nil {
			return GetExitCode(err)
		}
	}
	fmt.Fprintln(stderr, "Error:", err)
	return GetExitCode(err)
}

func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), logging.Level(o.Verbose))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
