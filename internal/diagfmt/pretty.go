package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"refaudit/internal/diag"
	"refaudit/internal/source"
)

type palette struct {
	err, warn, info, note, code, gutter, caret, muted func(a ...any) string
}

func newPalette(enabled bool) palette {
	paint := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		err:    paint(color.FgRed, color.Bold),
		warn:   paint(color.FgYellow, color.Bold),
		info:   paint(color.FgCyan, color.Bold),
		note:   paint(color.FgCyan),
		code:   paint(color.Bold),
		gutter: paint(color.FgBlue),
		caret:  paint(color.FgGreen, color.Bold),
		muted:  paint(color.Faint),
	}
}

func (p palette) severity(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return p.err(s.String())
	case diag.SevWarning:
		return p.warn(s.String())
	default:
		return p.info(s.String())
	}
}

// Pretty форматирует диагностики в человекочитаемый вид, в порядке входа.
// Для каждой печатает
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// затем строку исходника с подчёркиванием ^~~~ по Span, затем Notes.
// Диагностики без позиции (ошибки загрузки) печатаются только заголовком.
func Pretty(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	var sb strings.Builder
	for i, d := range diags {
		if i > 0 {
			sb.WriteByte('\n')
		}
		suffix := ""
		if opts.Suppressed != nil && opts.Suppressed(d.Code) {
			suffix = " " + p.muted("(suppressed)")
		}
		header := fmt.Sprintf("%s %s: %s%s", p.severity(d.Severity), p.code(d.Code.ID()), d.Message, suffix)
		file := fs.Get(d.Primary.File)
		if file == nil || !d.Located() {
			sb.WriteString(header)
			sb.WriteByte('\n')
			continue
		}
		start, _ := fs.Resolve(d.Primary)
		fmt.Fprintf(&sb, "%s:%d:%d: %s\n", formatPath(file, fs, opts.PathMode), start.Line, start.Col, header)
		writeSnippet(&sb, p, fs, file, d.Primary, opts.Context)

		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nf := fs.Get(n.Span.File)
			if nf == nil {
				fmt.Fprintf(&sb, "  %s: %s\n", p.note("note"), n.Msg)
				continue
			}
			pos, _ := fs.Resolve(n.Span)
			fmt.Fprintf(&sb, "  %s: %s:%d:%d: %s\n", p.note("note"), formatPath(nf, fs, opts.PathMode), pos.Line, pos.Col, n.Msg)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func formatPath(f *source.File, fs *source.FileSet, mode PathMode) string {
	baseDir := ""
	if mode == PathModeRelative {
		baseDir = fs.BaseDir()
	}
	return f.FormatPath(mode.String(), baseDir)
}

// writeSnippet prints the primary line preceded by up to context lines, and
// a caret line under the span. Columns are measured in display cells so wide
// runes and tabs keep the caret aligned.
func writeSnippet(sb *strings.Builder, p palette, fs *source.FileSet, file *source.File, span source.Span, context int8) {
	start, end := fs.Resolve(span)
	if start.Line == 0 {
		return
	}
	first := uint32(1)
	if context > 0 && start.Line > uint32(context) {
		first = start.Line - uint32(context)
	}
	width := len(fmt.Sprint(start.Line))
	for ln := first; ln <= start.Line; ln++ {
		text := expandTabs(file.GetLine(ln))
		fmt.Fprintf(sb, " %s %s\n", p.gutter(fmt.Sprintf("%*d |", width, ln)), text)
	}

	line := file.GetLine(start.Line)
	prefix := prefixBytes(line, int(start.Col)-1)
	pad := runewidth.StringWidth(expandTabs(prefix))
	var marked string
	if end.Line == start.Line && end.Col > start.Col {
		marked = prefixBytes(line[len(prefix):], int(end.Col-start.Col))
	} else {
		marked = line[len(prefix):]
	}
	cells := max(runewidth.StringWidth(expandTabs(marked)), 1)
	underline := "^" + strings.Repeat("~", cells-1)
	fmt.Fprintf(sb, " %s %s%s\n", p.gutter(strings.Repeat(" ", width)+" |"), strings.Repeat(" ", pad), p.caret(underline))
}

func prefixBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if n >= len(s) {
		return s
	}
	return s[:n]
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
