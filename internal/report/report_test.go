package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refaudit/internal/diagfmt"
	"refaudit/internal/driver"
	"refaudit/internal/gate"
	"refaudit/internal/manifest"
)

const widgets = `namespace Lib
{
    public class Widget
    {
        [EditorBrowsable(EditorBrowsableState.Never)]
        public void Hidden() { }

        public void Visible(int count) { }
    }
}
`

func runAudit(t *testing.T, files map[string]string, opts driver.AuditOptions) (*driver.AuditResult, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	res, err := driver.Audit(context.Background(), dir, opts)
	if !res.Blocked() {
		require.NoError(t, err)
	}
	return res, dir
}

func auditWidgets(t *testing.T, dryRun bool) *driver.AuditResult {
	res, _ := runAudit(t, map[string]string{"Widget.cs": widgets}, driver.AuditOptions{
		Manifest: manifest.New("M:Lib.Widget.Hidden", "M:Lib.Widget.Visible(System.Int32)", "M:Lib.Widget.Gone"),
		DryRun:   dryRun,
	})
	return res
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, " msgpack ": FormatMsgpack} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("sarif")
	assert.Error(t, err)
}

func TestTextFindingsAndChanges(t *testing.T) {
	res := auditWidgets(t, false)

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, res, Options{}))
	assert.Equal(t, strings.Join([]string{
		"Couldn't find M:Lib.Widget.Gone",
		"Found: 1, Missing: 1",
		"No [EditorBrowsable] on Lib.Widget.Visible(int)",
		"Updated Widget.cs (1 line removed)",
		"",
	}, "\n"), buf.String())
}

func TestTextQuietDropsUpdatedLines(t *testing.T) {
	res := auditWidgets(t, false)

	var buf bytes.Buffer
	require.NoError(t, WriteChanges(&buf, res, Options{Quiet: true}))
	assert.Empty(t, buf.String())
}

func TestTextDryRunPrintsDiff(t *testing.T) {
	res := auditWidgets(t, true)

	var buf bytes.Buffer
	require.NoError(t, WriteChanges(&buf, res, Options{}))
	out := buf.String()
	assert.Contains(t, out, "-        [EditorBrowsable(EditorBrowsableState.Never)]\n")
	assert.NotContains(t, out, "Updated ")
}

func TestTextBlocked(t *testing.T) {
	res, _ := runAudit(t, map[string]string{
		"Widget.cs": widgets,
		"Bad.cs":    "namespace Lib { public unsafe class Raw { } }\n",
	}, driver.AuditOptions{Manifest: manifest.New("M:Lib.Widget.Hidden")})
	require.True(t, res.Blocked())

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, res, Options{PathMode: diagfmt.PathModeBasename}))
	out := buf.String()
	assert.Contains(t, out, "Bad.cs:1:37: ERROR CS0227:")
	assert.Contains(t, out, "audit stopped: 1 blocking diagnostic(s), 0 suppressed")
	assert.NotContains(t, out, "Found:")
}

func TestBuildDocument(t *testing.T) {
	res := auditWidgets(t, false)

	doc := Build(res, false, Options{Timings: true, Allow: gate.DefaultAllow()})
	assert.Equal(t, SchemaVersion, doc.Schema)
	assert.Equal(t, "refaudit", doc.Tool)
	assert.Equal(t, "EditorBrowsableAttribute", doc.Marker)
	assert.False(t, doc.Blocked)
	assert.Equal(t, []string{"M:Lib.Widget.Gone"}, doc.Unmatched)
	assert.Equal(t, 1, doc.Found)
	assert.Equal(t, 1, doc.Missing)
	require.Len(t, doc.Annotated, 1)
	assert.Equal(t, "M:Lib.Widget.Hidden", doc.Annotated[0].ID)
	assert.Equal(t, "method", doc.Annotated[0].Kind)
	require.NotNil(t, doc.Annotated[0].Location)
	assert.Equal(t, uint32(5), doc.Annotated[0].Location.StartLine, "declarations start at their attribute lists")
	require.Len(t, doc.Unannotated, 1)
	assert.Equal(t, "Lib.Widget.Visible(int)", doc.Unannotated[0].Display)
	assert.Equal(t, []Change{{Path: "Widget.cs", Removed: 1}}, doc.Changes)
	require.NotNil(t, doc.Timings)
	assert.NotEmpty(t, doc.Timings.Phases)
}

func TestEncodeJSONAndMsgpack(t *testing.T) {
	doc := Build(auditWidgets(t, true), true, Options{})

	var js bytes.Buffer
	require.NoError(t, Encode(&js, FormatJSON, doc))
	var generic map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &generic))
	assert.Equal(t, true, generic["dry_run"])
	assert.Equal(t, []any{"M:Lib.Widget.Gone"}, generic["unmatched"])
	assert.NotContains(t, generic, "timings")

	var mp bytes.Buffer
	require.NoError(t, Encode(&mp, FormatMsgpack, doc))
	back, err := Decode(&mp)
	require.NoError(t, err)
	assert.Equal(t, doc.Unmatched, back.Unmatched)
	assert.Equal(t, doc.Changes, back.Changes)
	assert.Equal(t, doc.Unannotated, back.Unannotated)

	assert.Error(t, Encode(&js, FormatText, doc))
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, WriteFile(path, FormatJSON, Document{Tool: "refaudit", Unmatched: []string{"T:X"}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"T:X"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}
