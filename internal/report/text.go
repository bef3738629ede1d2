package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"refaudit/internal/diagfmt"
	"refaudit/internal/driver"
	"refaudit/internal/symbols"
)

type styles struct {
	miss, found, missing, path, warn, fail, add, del, hunk func(a ...any) string
}

func newStyles(enabled bool) styles {
	paint := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return styles{
		miss:    paint(color.FgYellow),
		found:   paint(color.FgGreen, color.Bold),
		missing: paint(color.FgRed, color.Bold),
		path:    paint(color.Bold),
		warn:    paint(color.FgYellow),
		fail:    paint(color.FgRed),
		add:     paint(color.FgGreen),
		del:     paint(color.FgRed),
		hunk:    paint(color.FgCyan),
	}
}

// Text writes the whole audit: the blocking diagnostics when the gate
// closed, otherwise the findings followed by the file changes.
func Text(w io.Writer, res *driver.AuditResult, opts Options) error {
	if res.Blocked() {
		return WriteBlocked(w, res, opts)
	}
	if err := WriteFindings(w, res, opts); err != nil {
		return err
	}
	return WriteChanges(w, res, opts)
}

// WriteBlocked prints every diagnostic that closed the gate.
func WriteBlocked(w io.Writer, res *driver.AuditResult, opts Options) error {
	if res.Compile == nil {
		return nil
	}
	st := newStyles(opts.Color)
	if err := diagfmt.Pretty(w, res.Gate.Blocking, res.Compile.FileSet, diagfmt.PrettyOpts{
		Color:     opts.Color,
		PathMode:  opts.PathMode,
		ShowNotes: true,
	}); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", st.fail(fmt.Sprintf("audit stopped: %d blocking diagnostic(s), %d suppressed",
		len(res.Gate.Blocking), res.Gate.Suppressed)))
	return err
}

// WriteFindings prints the manifest entries that matched nothing, the
// Found/Missing counts and the matched symbols without the marker. It only
// reads the result and is meant to run before any file is rewritten.
func WriteFindings(w io.Writer, res *driver.AuditResult, opts Options) error {
	st := newStyles(opts.Color)
	var sb strings.Builder
	for _, id := range res.Resolve.Unmatched {
		fmt.Fprintf(&sb, "%s\n", st.miss("Couldn't find "+id))
	}
	fmt.Fprintf(&sb, "Found: %s, Missing: %s\n",
		st.found(res.Classify.Found()), st.missing(res.Classify.Missing()))
	short := symbols.ShortMarkerName(res.Marker)
	for _, s := range res.Classify.Unannotated {
		fmt.Fprintf(&sb, "No [%s] on %s\n", short, s.Display())
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteChanges prints what the fix stage did: one line per rewritten file
// (or its diff on dry runs), then skipped locations and write failures.
func WriteChanges(w io.Writer, res *driver.AuditResult, opts Options) error {
	if res.Fix == nil {
		return nil
	}
	st := newStyles(opts.Color)
	var sb strings.Builder
	for _, c := range res.Fix.FileChanges {
		if c.Diff != "" {
			writeDiff(&sb, st, c.Diff)
			continue
		}
		if opts.Quiet {
			continue
		}
		fmt.Fprintf(&sb, "Updated %s (%s removed)\n", st.path(c.Path), plural(c.Removed, "line"))
	}
	for _, s := range res.Fix.Skipped {
		fmt.Fprintf(&sb, "%s\n", st.warn(fmt.Sprintf("Skipped %s:%d: %s", s.Path, s.Line, s.Reason)))
	}
	for _, f := range res.Fix.Failed {
		fmt.Fprintf(&sb, "%s\n", st.fail(fmt.Sprintf("Failed to write %s: %v", f.Path, f.Err)))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeDiff(sb *strings.Builder, st styles, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			sb.WriteString(st.path(text))
		case strings.HasPrefix(text, "@@"):
			sb.WriteString(st.hunk(text))
		case strings.HasPrefix(text, "+"):
			sb.WriteString(st.add(text))
		case strings.HasPrefix(text, "-"):
			sb.WriteString(st.del(text))
		default:
			sb.WriteString(text)
		}
		sb.WriteByte('\n')
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
