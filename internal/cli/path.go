package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rstate/internal/path"
)

// PathOptions holds flags for the path command.
type PathOptions struct {
	*RootOptions
	Affects  string
	Relative string
}

// SegmentInfo is one parsed segment.
type SegmentInfo struct {
	Name    string `json:"name"`
	Index   bool   `json:"index,omitempty"`
	Invoked bool   `json:"invoked,omitempty"`
}

// PathResult is the output of the path command.
type PathResult struct {
	Input     string        `json:"input"`
	Canonical string        `json:"canonical"`
	Segments  []SegmentInfo `json:"segments"`
	Affects   *bool         `json:"affects,omitempty"`
	Relative  *string       `json:"relative,omitempty"`
}

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PathOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "path <spec>",
		Short: "Parse a path and print its canonical form",
		Long: `Parse a path in dotted or bracket notation and print its canonical
form and segments.

--affects reports whether a write at <spec> can change the value at
another path. --relative prints <spec> relative to a prefix.

Examples:
  rstate path "user[name]"
  rstate path "items[0].title" --affects "items[0].title.length"
  rstate path "a.b.c" --relative a`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Affects, "affects", "", "check whether the path affects this path")
	cmd.Flags().StringVar(&opts.Relative, "relative", "", "print the path relative to this prefix")

	return cmd
}

func runPath(opts *PathOptions, spec string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	fail := func(err error) error {
		_ = formatter.Error(ErrCodeInvalidPath, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid path", err)
	}

	p, err := path.Parse(spec)
	if err != nil {
		return fail(err)
	}

	result := PathResult{
		Input:     spec,
		Canonical: p.String(),
		Segments:  make([]SegmentInfo, 0, p.Len()),
	}
	for _, seg := range p.Segments() {
		result.Segments = append(result.Segments, SegmentInfo{
			Name:    seg.Name,
			Index:   seg.IsIndex(),
			Invoked: seg.Kind == path.Invoked,
		})
	}

	if cmd.Flags().Changed("affects") {
		other, err := path.Parse(opts.Affects)
		if err != nil {
			return fail(err)
		}
		affects := p.Affects(other)
		result.Affects = &affects
	}

	if cmd.Flags().Changed("relative") {
		base, err := path.Parse(opts.Relative)
		if err != nil {
			return fail(err)
		}
		rel, err := p.Relative(base)
		if err != nil {
			return fail(err)
		}
		s := rel.String()
		result.Relative = &s
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	writePathText(cmd.OutOrStdout(), result, opts)
	return nil
}

func writePathText(w io.Writer, result PathResult, opts *PathOptions) {
	canonical := result.Canonical
	if canonical == "" {
		canonical = "<root>"
	}
	fmt.Fprintf(w, "Canonical: %s\n", canonical)

	names := make([]string, len(result.Segments))
	for i, s := range result.Segments {
		names[i] = s.Name
		if s.Invoked {
			names[i] += "()"
		}
		if s.Index {
			names[i] += " (index)"
		}
	}
	fmt.Fprintf(w, "Segments (%d): %s\n", len(names), strings.Join(names, ", "))

	if result.Affects != nil {
		fmt.Fprintf(w, "Affects %s: %t\n", opts.Affects, *result.Affects)
	}
	if result.Relative != nil {
		rel := *result.Relative
		if rel == "" {
			rel = "<root>"
		}
		fmt.Fprintf(w, "Relative to %s: %s\n", opts.Relative, rel)
	}
}
