package diag

import (
	"fmt"
	"strings"

	"refaudit/internal/source"
)

// FormatShort renders diagnostics one per line as
// "<severity> <code> <path>:<line>:<col> <message>", keeping the input order.
// Paths are relative to the FileSet base directory.
func FormatShort(diags []Diagnostic, fs *source.FileSet) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}
	baseDir := fs.BaseDir()
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, shortLine(d, fs, baseDir))
	}
	return strings.Join(lines, "\n")
}

func shortLine(d Diagnostic, fs *source.FileSet, baseDir string) string {
	msg := strings.Join(strings.Fields(d.Message), " ")
	f := fs.Get(d.Primary.File)
	if f == nil || !d.Located() {
		return fmt.Sprintf("%s %s %s", strings.ToLower(d.Severity.String()), d.Code.ID(), msg)
	}
	start, _ := fs.Resolve(d.Primary)
	return fmt.Sprintf("%s %s %s:%d:%d %s",
		strings.ToLower(d.Severity.String()), d.Code.ID(), f.FormatPath("relative", baseDir), start.Line, start.Col, msg)
}
