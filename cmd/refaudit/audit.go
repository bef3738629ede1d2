package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"refaudit/internal/driver"
	"refaudit/internal/gate"
	"refaudit/internal/manifest"
	"refaudit/internal/observ"
	"refaudit/internal/report"
)

// auditSettings is the merged view of refaudit.toml and the command line.
type auditSettings struct {
	dir         string
	manifest    string
	marker      string
	allow       gate.Allow
	allowUnsafe bool
	include     []string
	exclude     []string
	jobs        int
	lenient     bool
	dryRun      bool
	strict      bool
	format      report.Format
	output      string
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [dir]",
		Short: "Remove EditorBrowsable attribute lines from manifest symbols",
		Long: `audit compiles the C# sources below dir, stops if the compilation has
blocking diagnostics, resolves every manifest entry and removes the marker
attribute line from each matched symbol that carries it.

Settings come from refaudit.toml when one is found; flags override it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAudit,
	}
	f := cmd.Flags()
	f.String("manifest", "", "file with one documentation comment id per line")
	f.String("marker", driver.DefaultMarker, "attribute whose lines are removed")
	f.StringSlice("suppress", nil, "diagnostic codes that do not block (default CS3021,CS0809,CS0618)")
	f.Bool("allow-unsafe", false, "accept unsafe code")
	f.StringSlice("include", nil, "glob patterns of sources to compile (default **/*.cs)")
	f.StringSlice("exclude", nil, "glob patterns of sources to skip")
	f.Int("jobs", 0, "max parallel parsers (0=auto)")
	f.Bool("lenient", false, "remove attribute lines that also hold other attributes")
	f.Bool("dry-run", false, "print the diff instead of writing files")
	f.Bool("strict", false, "exit with status 2 when entries are unmatched or unannotated")
	f.String("format", "text", "output format (text|json|msgpack)")
	f.String("output", "", "write the json/msgpack report to this file instead of stdout")
	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := configFor(cmd)
	if err != nil {
		return err
	}
	s, err := resolveSettings(cmd, cfg, args)
	if err != nil {
		return err
	}

	set, stats, err := manifest.Load(s.manifest)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	for _, dup := range stats.Duplicates {
		logger.Warn("duplicate manifest entry", zap.String("id", dup))
	}
	logger.Info("audit",
		zap.String("dir", s.dir),
		zap.String("manifest", s.manifest),
		zap.Int("entries", set.Len()),
		zap.Bool("dry_run", s.dryRun),
	)

	colorOn, err := colorEnabled(cmd)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	showTimings, _ := cmd.Flags().GetBool("timings")
	maxDiagnostics, _ := cmd.Flags().GetInt("max-diagnostics")
	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ropts := report.Options{
		Color:   colorOn,
		Allow:   s.allow,
		Quiet:   quiet,
		Timings: showTimings,
	}
	opts := driver.AuditOptions{
		Compile: driver.CompileOptions{
			Include:        s.include,
			Exclude:        s.exclude,
			Jobs:           s.jobs,
			AllowUnsafe:    s.allowUnsafe,
			MaxDiagnostics: maxDiagnostics,
			Logger:         logger,
			Timer:          observ.NewTimer(),
		},
		Manifest: set,
		Marker:   s.marker,
		Allow:    s.allow,
		DryRun:   s.dryRun,
		Lenient:  s.lenient,
	}
	if s.format == report.FormatText {
		// findings are printed before any file is touched
		opts.Findings = func(res *driver.AuditResult) {
			if err := report.WriteFindings(out, res, ropts); err != nil {
				logger.Warn("failed to write findings", zap.Error(err))
			}
		}
	}

	ctx := cmd.Context()
	var res *driver.AuditResult
	var auditErr error
	if shouldUseTUI(mode, s.format != report.FormatText && s.output == "") {
		comp, err := runCompileWithUI(ctx, "compiling "+filepath.Base(s.dir), s.dir, opts.Compile)
		if err != nil {
			return err
		}
		res, auditErr = driver.AuditCompiled(ctx, comp, opts)
	} else {
		res, auditErr = driver.Audit(ctx, s.dir, opts)
	}
	blocked := errors.Is(auditErr, gate.ErrCompilationBlocking)
	writeFailed := res != nil && res.Fix != nil && len(res.Fix.Failed) > 0
	if auditErr != nil && !blocked && !writeFailed {
		return auditErr
	}

	if err := writeAuditReport(out, res, s, ropts); err != nil {
		return err
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timer, !quiet)
	}

	switch {
	case blocked:
		return &exitError{code: 1}
	case writeFailed:
		// the report already names every file
		return &exitError{code: 1}
	case s.strict && !res.Clean():
		return &exitError{code: 2}
	}
	return nil
}

func writeAuditReport(out io.Writer, res *driver.AuditResult, s auditSettings, opts report.Options) error {
	if s.format == report.FormatText {
		if res.Blocked() {
			return report.WriteBlocked(out, res, opts)
		}
		return report.WriteChanges(out, res, opts)
	}
	doc := report.Build(res, s.dryRun, opts)
	if s.output != "" {
		if err := report.WriteFile(s.output, s.format, doc); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
	return report.Encode(out, s.format, doc)
}

// resolveSettings layers flags over the config file. A flag wins only when
// it was set on the command line.
func resolveSettings(cmd *cobra.Command, cfg *loadedConfig, args []string) (auditSettings, error) {
	var s auditSettings
	var c auditConfig
	if cfg != nil {
		c = cfg.Audit
	}
	flags := cmd.Flags()
	changed := flags.Changed

	s.dir = c.Dir
	if len(args) > 0 {
		s.dir = args[0]
	}
	if s.dir == "" {
		s.dir = "."
	}

	s.manifest = c.Manifest
	if changed("manifest") || s.manifest == "" {
		s.manifest, _ = flags.GetString("manifest")
	}
	if strings.TrimSpace(s.manifest) == "" {
		return s, errors.New("no manifest: pass --manifest or set [audit].manifest in " + configFileName)
	}

	s.marker = c.Marker
	if changed("marker") || s.marker == "" {
		s.marker, _ = flags.GetString("marker")
	}

	switch {
	case changed("suppress"):
		codes, _ := flags.GetStringSlice("suppress")
		s.allow = gate.ParseAllow(codes)
	case cfg.defined("suppress"):
		s.allow = gate.ParseAllow(c.Suppress)
	default:
		s.allow = gate.DefaultAllow()
	}

	s.allowUnsafe = c.AllowUnsafe
	if changed("allow-unsafe") {
		s.allowUnsafe, _ = flags.GetBool("allow-unsafe")
	}
	s.lenient = c.Lenient
	if changed("lenient") {
		s.lenient, _ = flags.GetBool("lenient")
	}
	s.include = c.Include
	if changed("include") {
		s.include, _ = flags.GetStringSlice("include")
	}
	s.exclude = c.Exclude
	if changed("exclude") {
		s.exclude, _ = flags.GetStringSlice("exclude")
	}
	s.jobs = c.Jobs
	if changed("jobs") {
		s.jobs, _ = flags.GetInt("jobs")
	}
	if s.jobs < 0 {
		return s, fmt.Errorf("--jobs must not be negative")
	}

	s.dryRun, _ = flags.GetBool("dry-run")
	s.strict, _ = flags.GetBool("strict")
	s.output, _ = flags.GetString("output")
	formatFlag, _ := flags.GetString("format")
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return s, err
	}
	s.format = format
	if s.output != "" && s.format == report.FormatText {
		return s, errors.New("--output needs --format json or msgpack")
	}

	info, err := os.Stat(s.dir)
	if err != nil {
		return s, fmt.Errorf("failed to stat %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return s, fmt.Errorf("%s is not a directory", s.dir)
	}
	return s, nil
}
