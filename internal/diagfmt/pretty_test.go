package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"refaudit/internal/diag"
	"refaudit/internal/source"
)

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSetWithBase("/home/user/project")
	content := []byte("class A { int x = ; }\n")
	fileID := fs.AddVirtual("/home/user/project/src/A.cs", content)

	diags := []diag.Diagnostic{diag.NewError(diag.SynExpected, source.Span{File: fileID, Start: 18, End: 19},
		"syntax error, 'expression' expected")}

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{name: "Absolute path", mode: PathModeAbsolute, contains: "/home/user/project/src/A.cs:1:19"},
		{name: "Relative path", mode: PathModeRelative, contains: "src/A.cs:1:19"},
		{name: "Basename only", mode: PathModeBasename, contains: "A.cs:1:19"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Pretty(&buf, diags, fs, PrettyOpts{PathMode: tt.mode}); err != nil {
				t.Fatalf("Pretty: %v", err)
			}
			output := buf.String()

			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR CS1003: syntax error") {
				t.Errorf("Expected severity, code and message, got:\n%s", output)
			}
		})
	}
}

func TestPrettyCaretUnderSpan(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("namespace N\n{\n\tpublic unsafe class C { }\n}\n")
	fileID := fs.AddVirtual("C.cs", content)
	start := uint32(strings.Index(string(content), "unsafe"))

	diags := []diag.Diagnostic{diag.NewError(diag.SemaUnsafeNotAllowed,
		source.Span{File: fileID, Start: start, End: start + 6}, "unsafe")}

	var buf bytes.Buffer
	if err := Pretty(&buf, diags, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	want := []string{
		"C.cs:3:9: ERROR CS0227: unsafe",
		" 2 | {",
		" 3 |     public unsafe class C { }",
		"   | " + strings.Repeat(" ", 11) + "^~~~~~",
	}
	for i, w := range want {
		if i >= len(lines) || lines[i] != w {
			t.Fatalf("line %d: want %q, got:\n%s", i, w, buf.String())
		}
	}
}

func TestPrettyWideRunes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("// 日本 x\n")
	fileID := fs.AddVirtual("w.cs", content)
	start := uint32(strings.Index(string(content), "x"))

	var buf bytes.Buffer
	diags := []diag.Diagnostic{diag.NewWarning(diag.SemaObsoleteUsage, source.Span{File: fileID, Start: start, End: start + 1}, "x")}
	if err := Pretty(&buf, diags, fs, PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	// "// " is 3 cells, each ideograph 2 cells, then a space
	if !strings.Contains(buf.String(), "\n   | "+strings.Repeat(" ", 8)+"^\n") {
		t.Errorf("caret not aligned to display width:\n%s", buf.String())
	}
}

func TestPrettyNotesAndSuppressed(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("a.cs", []byte("class A { }\nclass A { }\n"))

	d := diag.NewError(diag.SemaDuplicateType, source.Span{File: fileID, Start: 18, End: 19}, "duplicate").
		WithNote(source.Span{File: fileID, Start: 6, End: 7}, "previous definition")
	w := diag.NewWarning(diag.SemaCLSCompliantNotNeeded, source.Span{File: fileID, Start: 0, End: 5}, "cls")

	var buf bytes.Buffer
	opts := PrettyOpts{
		ShowNotes:  true,
		PathMode:   PathModeBasename,
		Suppressed: func(c diag.Code) bool { return c == diag.SemaCLSCompliantNotNeeded },
	}
	if err := Pretty(&buf, []diag.Diagnostic{d, w}, fs, opts); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "note: a.cs:1:7: previous definition") {
		t.Errorf("expected note with location, got:\n%s", output)
	}
	if !strings.Contains(output, "WARNING CS3021: cls (suppressed)") {
		t.Errorf("expected suppressed marker, got:\n%s", output)
	}
	if strings.Contains(output, "ERROR CS0101: duplicate (suppressed)") {
		t.Errorf("blocking diagnostic marked suppressed:\n%s", output)
	}
}

func TestPrettyLoadFailureWithoutLocation(t *testing.T) {
	fs := source.NewFileSet()
	fs.AddVirtual("first.cs", []byte("class A { }\n"))

	var buf bytes.Buffer
	d := diag.NewError(diag.IOLoadFileError, source.Span{}, "failed to load gone.cs: missing")
	if err := Pretty(&buf, []diag.Diagnostic{d}, fs, PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if got := buf.String(); got != "ERROR RA1001: failed to load gone.cs: missing\n" {
		t.Errorf("unexpected output %q", got)
	}
}
