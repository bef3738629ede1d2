package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"refaudit/internal/observ"
	"refaudit/internal/report"
)

const annotatedSource = `namespace Lib
{
    public class Foo
    {
        [EditorBrowsable(EditorBrowsableState.Never)]
        public void Bar() { }

        public void Baz() { }
    }
}
`

type cliRun struct {
	code   int
	stdout string
	stderr string
}

// runCLI executes the command tree in dir with colour and the progress
// view disabled.
func runCLI(t *testing.T, dir string, args ...string) cliRun {
	t.Helper()
	t.Chdir(dir)
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--color", "off", "--ui", "off"}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	code := execute(root, &stderr)
	return cliRun{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestAuditRemovesMarker(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/Foo.cs": annotatedSource,
		"api.txt":    "M:Lib.Foo.Bar\n",
	})

	run := runCLI(t, dir, "audit", "src", "--manifest", "api.txt")
	if run.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", run.code, run.stderr)
	}
	if !strings.Contains(run.stdout, "Found: 1, Missing: 0") {
		t.Fatalf("missing counts in output:\n%s", run.stdout)
	}
	if !strings.Contains(run.stdout, "Updated Foo.cs (1 line removed)") {
		t.Fatalf("missing update line in output:\n%s", run.stdout)
	}
	if got := mustRead(t, filepath.Join(dir, "src", "Foo.cs")); strings.Contains(got, "EditorBrowsable") {
		t.Fatalf("marker still present:\n%s", got)
	}
}

func TestAuditStrictFailsOnFindings(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/Foo.cs": annotatedSource,
		"api.txt":    "M:Lib.Foo.Bar\nM:Lib.Foo.Baz\nM:Lib.Foo.Gone\n",
	})

	run := runCLI(t, dir, "audit", "src", "--manifest", "api.txt", "--strict")
	if run.code != 2 {
		t.Fatalf("exit code = %d, want 2; stderr:\n%s", run.code, run.stderr)
	}
	for _, want := range []string{
		"Couldn't find M:Lib.Foo.Gone",
		"Found: 1, Missing: 1",
		"No [EditorBrowsable] on",
	} {
		if !strings.Contains(run.stdout, want) {
			t.Fatalf("output lacks %q:\n%s", want, run.stdout)
		}
	}
	// the annotated symbol is still fixed
	if got := mustRead(t, filepath.Join(dir, "src", "Foo.cs")); strings.Contains(got, "EditorBrowsable") {
		t.Fatalf("marker still present:\n%s", got)
	}
}

func TestAuditBlockedByDiagnostics(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/Foo.cs": annotatedSource,
		"src/Raw.cs": "namespace Lib { public unsafe class Raw { } }\n",
		"api.txt":    "M:Lib.Foo.Bar\n",
	})

	run := runCLI(t, dir, "audit", "src", "--manifest", "api.txt")
	if run.code != 1 {
		t.Fatalf("exit code = %d, want 1", run.code)
	}
	if !strings.Contains(run.stdout, "CS0227") || !strings.Contains(run.stdout, "audit stopped") {
		t.Fatalf("unexpected output:\n%s", run.stdout)
	}
	if got := mustRead(t, filepath.Join(dir, "src", "Foo.cs")); got != annotatedSource {
		t.Fatalf("blocked audit modified Foo.cs:\n%s", got)
	}

	run = runCLI(t, dir, "audit", "src", "--manifest", "api.txt", "--allow-unsafe")
	if run.code != 0 {
		t.Fatalf("exit code with --allow-unsafe = %d, stderr:\n%s", run.code, run.stderr)
	}
}

func TestAuditDryRunPrintsDiff(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/Foo.cs": annotatedSource,
		"api.txt":    "M:Lib.Foo.Bar\n",
	})

	run := runCLI(t, dir, "audit", "src", "--manifest", "api.txt", "--dry-run")
	if run.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", run.code, run.stderr)
	}
	if !strings.Contains(run.stdout, "-        [EditorBrowsable(EditorBrowsableState.Never)]") {
		t.Fatalf("diff missing removed line:\n%s", run.stdout)
	}
	if got := mustRead(t, filepath.Join(dir, "src", "Foo.cs")); got != annotatedSource {
		t.Fatalf("dry run modified Foo.cs")
	}
}

func TestAuditJSONReport(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/Foo.cs": annotatedSource,
		"api.txt":    "M:Lib.Foo.Bar\nM:Lib.Foo.Gone\n",
	})

	run := runCLI(t, dir, "audit", "src", "--manifest", "api.txt", "--format", "json", "--dry-run")
	if run.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", run.code, run.stderr)
	}
	var doc report.Document
	if err := json.Unmarshal([]byte(run.stdout), &doc); err != nil {
		t.Fatalf("decode report: %v\n%s", err, run.stdout)
	}
	if doc.Found != 1 || doc.Missing != 0 {
		t.Fatalf("found/missing = %d/%d, want 1/0", doc.Found, doc.Missing)
	}
	if len(doc.Unmatched) != 1 || doc.Unmatched[0] != "M:Lib.Foo.Gone" {
		t.Fatalf("unmatched = %v", doc.Unmatched)
	}
	if !doc.DryRun || len(doc.Changes) != 1 {
		t.Fatalf("dry_run = %v, changes = %d", doc.DryRun, len(doc.Changes))
	}
}

func TestAuditMsgpackReportFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/Foo.cs": annotatedSource,
		"api.txt":    "M:Lib.Foo.Bar\n",
	})

	run := runCLI(t, dir, "audit", "src", "--manifest", "api.txt",
		"--format", "msgpack", "--output", "report.msgpack")
	if run.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", run.code, run.stderr)
	}
	if run.stdout != "" {
		t.Fatalf("stdout should be empty when --output is set, got:\n%s", run.stdout)
	}
	f, err := os.Open(filepath.Join(dir, "report.msgpack"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := report.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Tool != "refaudit" || doc.Found != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestAuditReadsConfigFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/Foo.cs": strings.ReplaceAll(annotatedSource, "EditorBrowsable(EditorBrowsableState.Never)", "Hidden"),
		"api.txt":    "M:Lib.Foo.Bar\n",
		configFileName: `[audit]
dir = "src"
manifest = "api.txt"
marker = "HiddenAttribute"
`,
	})

	run := runCLI(t, dir, "audit")
	if run.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", run.code, run.stderr)
	}
	if got := mustRead(t, filepath.Join(dir, "src", "Foo.cs")); strings.Contains(got, "[Hidden]") {
		t.Fatalf("marker still present:\n%s", got)
	}
}

func TestAuditRequiresManifest(t *testing.T) {
	dir := writeFiles(t, map[string]string{"src/Foo.cs": annotatedSource})

	run := runCLI(t, dir, "audit", "src")
	if run.code != 1 {
		t.Fatalf("exit code = %d, want 1", run.code)
	}
	if !strings.Contains(run.stderr, "no manifest") {
		t.Fatalf("stderr = %q", run.stderr)
	}
}

func TestDiagnoseShort(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"Raw.cs": "namespace Lib { public unsafe class Raw { } }\n",
	})

	run := runCLI(t, dir, "diagnose", "--format", "short")
	if run.code != 1 {
		t.Fatalf("exit code = %d, want 1", run.code)
	}
	if !strings.Contains(run.stdout, "error CS0227 Raw.cs:1:37") {
		t.Fatalf("unexpected output:\n%s", run.stdout)
	}

	run = runCLI(t, dir, "diagnose", "--format", "short", "--allow-unsafe")
	if run.code != 0 || run.stdout != "" {
		t.Fatalf("code = %d, stdout = %q", run.code, run.stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	run := runCLI(t, t.TempDir(), "version", "--format", "json", "--hash")
	if run.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", run.code, run.stderr)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(run.stdout), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "refaudit" || payload.Version == "" || payload.GitCommit == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
	if shouldUseTUI(uiModeAuto, true) {
		t.Fatalf("auto mode must not render over machine-readable output")
	}
}

func TestPrintStageTimings(t *testing.T) {
	timer := observ.NewTimer()
	for _, name := range []string{"discover", "parse", "bind", "gate"} {
		timer.End(timer.Begin(name), "")
	}

	var buf bytes.Buffer
	printStageTimings(&buf, timer, false)
	out := buf.String()
	if !strings.HasPrefix(out, "compiled ") || !strings.Contains(out, "\naudited ") {
		t.Fatalf("unexpected timings:\n%s", out)
	}
	if strings.Contains(out, "fixed") {
		t.Fatalf("fix did not run but was reported:\n%s", out)
	}
}
