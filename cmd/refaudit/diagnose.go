package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"refaudit/internal/diag"
	"refaudit/internal/diagfmt"
	"refaudit/internal/driver"
	"refaudit/internal/gate"
	"refaudit/internal/observ"
)

func newDiagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "diagnose [dir]",
		Aliases: []string{"diag"},
		Short:   "Compile C# sources and print their diagnostics",
		Long: `diagnose runs the compile stage of an audit and prints every diagnostic,
marking the ones the allow-list suppresses. It exits with status 1 when any
diagnostic would block an audit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDiagnose,
	}
	f := cmd.Flags()
	f.String("format", "pretty", "output format (pretty|json|short)")
	f.Bool("with-notes", false, "include diagnostic notes")
	f.String("path-mode", "auto", "how to print paths (auto|absolute|relative|basename)")
	f.Int8("context", 0, "source lines of context around each diagnostic")
	f.Int("jobs", 0, "max parallel parsers (0=auto)")
	f.Bool("allow-unsafe", false, "accept unsafe code")
	f.StringSlice("suppress", nil, "diagnostic codes that do not block (default CS3021,CS0809,CS0618)")
	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	format, _ := flags.GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, json or short)", format)
	}
	pathFlag, _ := flags.GetString("path-mode")
	pathMode, err := parsePathMode(pathFlag)
	if err != nil {
		return err
	}
	withNotes, _ := flags.GetBool("with-notes")
	contextLines, _ := flags.GetInt8("context")
	jobs, _ := flags.GetInt("jobs")
	allowUnsafe, _ := flags.GetBool("allow-unsafe")
	maxDiagnostics, _ := cmd.Flags().GetInt("max-diagnostics")
	showTimings, _ := cmd.Flags().GetBool("timings")
	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	allow := gate.DefaultAllow()
	if flags.Changed("suppress") {
		codes, _ := flags.GetStringSlice("suppress")
		allow = gate.ParseAllow(codes)
	}
	colorOn, err := colorEnabled(cmd)
	if err != nil {
		return err
	}

	opts := driver.CompileOptions{
		Jobs:           jobs,
		AllowUnsafe:    allowUnsafe,
		MaxDiagnostics: maxDiagnostics,
		Logger:         logger,
		Timer:          observ.NewTimer(),
	}
	var comp *driver.CompileResult
	if shouldUseTUI(mode, format == "json") {
		comp, err = runCompileWithUI(cmd.Context(), "diagnosing "+filepath.Base(dir), dir, opts)
	} else {
		comp, err = driver.Compile(cmd.Context(), dir, opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := writeDiagnostics(out, comp, format, diagOutputOpts{
		color:     colorOn,
		pathMode:  pathMode,
		context:   contextLines,
		withNotes: withNotes,
		allow:     allow,
	}); err != nil {
		return err
	}
	if showTimings {
		quiet, _ := cmd.Flags().GetBool("quiet")
		printStageTimings(cmd.ErrOrStderr(), comp.Timer, !quiet)
	}

	if res := gate.Check(comp.Diagnostics, allow); res.HasIssues {
		return &exitError{code: 1}
	}
	return nil
}

type diagOutputOpts struct {
	color     bool
	pathMode  diagfmt.PathMode
	context   int8
	withNotes bool
	allow     gate.Allow
}

func writeDiagnostics(w io.Writer, comp *driver.CompileResult, format string, o diagOutputOpts) error {
	switch format {
	case "json":
		return diagfmt.JSON(w, comp.Diagnostics, comp.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         o.pathMode,
			IncludeNotes:     o.withNotes,
			Suppressed:       o.allow.Contains,
		})
	case "short":
		if len(comp.Diagnostics) == 0 {
			return nil
		}
		_, err := fmt.Fprintln(w, diag.FormatShort(comp.Diagnostics, comp.FileSet))
		return err
	default:
		return diagfmt.Pretty(w, comp.Diagnostics, comp.FileSet, diagfmt.PrettyOpts{
			Color:      o.color,
			PathMode:   o.pathMode,
			Context:    o.context,
			ShowNotes:  o.withNotes,
			Suppressed: o.allow.Contains,
		})
	}
}

func parsePathMode(value string) (diagfmt.PathMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return diagfmt.PathModeAuto, nil
	case "absolute":
		return diagfmt.PathModeAbsolute, nil
	case "relative":
		return diagfmt.PathModeRelative, nil
	case "basename":
		return diagfmt.PathModeBasename, nil
	default:
		return diagfmt.PathModeAuto, fmt.Errorf("invalid --path-mode value %q (expected auto|absolute|relative|basename)", value)
	}
}
