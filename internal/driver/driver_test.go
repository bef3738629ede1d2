package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"refaudit/internal/diag"
	"refaudit/internal/gate"
	"refaudit/internal/manifest"
	"refaudit/internal/symbols"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func readFile(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

const fooAnnotated = `namespace Lib
{
    public class Foo
    {
        [EditorBrowsable(EditorBrowsableState.Never)]
        public void Bar() { }
    }
}
`

const fooPlain = `namespace Lib
{
    public class Foo
    {
        public void Bar() { }
    }
}
`

func audit(t *testing.T, dir string, opts AuditOptions) *AuditResult {
	t.Helper()
	res, err := Audit(context.Background(), dir, opts)
	require.NoError(t, err)
	return res
}

func TestAuditUnannotatedMatchLeavesFilesAlone(t *testing.T) {
	dir := writeTree(t, map[string]string{"Foo.cs": fooPlain})

	res := audit(t, dir, AuditOptions{Manifest: manifest.New("M:Lib.Foo.Bar")})

	assert.Empty(t, res.Classify.Annotated)
	require.Len(t, res.Classify.Unannotated, 1)
	assert.Equal(t, "Bar", res.Classify.Unannotated[0].Name())
	assert.Empty(t, res.Fix.FileChanges)
	assert.Equal(t, fooPlain, readFile(t, dir, "Foo.cs"))
	assert.False(t, res.Clean())
}

func TestAuditRemovesMarkerLine(t *testing.T) {
	dir := writeTree(t, map[string]string{"Foo.cs": fooAnnotated})

	res := audit(t, dir, AuditOptions{Manifest: manifest.New("M:Lib.Foo.Bar")})

	assert.Equal(t, 1, res.Classify.Found())
	assert.Equal(t, 0, res.Classify.Missing())
	require.Len(t, res.Fix.FileChanges, 1)
	assert.Equal(t, "Foo.cs", res.Fix.FileChanges[0].Path)
	assert.Equal(t, 1, res.Fix.FileChanges[0].Removed)

	lines := strings.Split(fooAnnotated, "\n")
	want := strings.Join(append(append([]string{}, lines[:4]...), lines[5:]...), "\n")
	assert.Equal(t, want, readFile(t, dir, "Foo.cs"))
	assert.True(t, res.Clean())
}

func TestAuditRemovesAccessorMarkerLine(t *testing.T) {
	src := `namespace Lib
{
    public class Foo
    {
        public int Size
        {
            [EditorBrowsable(EditorBrowsableState.Never)]
            get;
            set;
        }
    }
}
`
	dir := writeTree(t, map[string]string{"Foo.cs": src})

	res := audit(t, dir, AuditOptions{Manifest: manifest.New("M:Lib.Foo.get_Size", "P:Lib.Foo.Size")})

	require.Len(t, res.Classify.Annotated, 1)
	assert.Equal(t, "M:Lib.Foo.get_Size", res.Classify.Annotated[0].ID())
	require.Len(t, res.Classify.Unannotated, 1)
	assert.Equal(t, "P:Lib.Foo.Size", res.Classify.Unannotated[0].ID())
	require.Len(t, res.Fix.FileChanges, 1)
	assert.Equal(t, strings.Replace(src, "            [EditorBrowsable(EditorBrowsableState.Never)]\n", "", 1),
		readFile(t, dir, "Foo.cs"))
}

func TestAuditReportsUnmatchedAndContinues(t *testing.T) {
	dir := writeTree(t, map[string]string{"Foo.cs": fooAnnotated})

	var seen []string
	res := audit(t, dir, AuditOptions{
		Manifest: manifest.New("M:Lib.Foo.Baz", "M:Lib.Foo.Bar"),
		Findings: func(r *AuditResult) {
			seen = append(seen, r.Resolve.Unmatched...)
			assert.Nil(t, r.Fix, "findings are reported before mutation")
		},
	})

	assert.Equal(t, []string{"M:Lib.Foo.Baz"}, res.Resolve.Unmatched)
	assert.Equal(t, []string{"M:Lib.Foo.Baz"}, seen)
	assert.Equal(t, 1, res.Fix.Removed())
}

func TestAuditRemovesTwoLinesInOneFile(t *testing.T) {
	src := `namespace Lib {
public class Two {
[EditorBrowsable(EditorBrowsableState.Never)]
public void A() { }
public void Keep() { }
public int X;
public int Y;
public int Z;
public int W;
[EditorBrowsable(EditorBrowsableState.Never)]
public void B() { }
}
}
`
	dir := writeTree(t, map[string]string{"Two.cs": src})

	res := audit(t, dir, AuditOptions{Manifest: manifest.New("M:Lib.Two.A", "M:Lib.Two.B")})

	assert.Equal(t, 2, res.Classify.Found())
	got := readFile(t, dir, "Two.cs")
	assert.Equal(t, strings.Count(src, "\n")-2, strings.Count(got, "\n"))
	assert.NotContains(t, got, "EditorBrowsable")
	assert.Equal(t, strings.ReplaceAll(src, "[EditorBrowsable(EditorBrowsableState.Never)]\n", ""), got)
}

func TestAuditBlockedByDiagnostics(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"Foo.cs":    fooAnnotated,
		"Unsafe.cs": "namespace Lib { public unsafe class U { } }\n",
	})

	res, err := Audit(context.Background(), dir, AuditOptions{Manifest: manifest.New("M:Lib.Foo.Bar")})
	require.ErrorIs(t, err, gate.ErrCompilationBlocking)
	assert.True(t, res.Blocked())
	require.Len(t, res.Gate.Blocking, 1)
	assert.Equal(t, diag.SemaUnsafeNotAllowed, res.Gate.Blocking[0].Code)
	assert.Nil(t, res.Fix)
	assert.Equal(t, fooAnnotated, readFile(t, dir, "Foo.cs"))

	res = audit(t, dir, AuditOptions{
		Manifest: manifest.New("M:Lib.Foo.Bar"),
		Compile:  CompileOptions{AllowUnsafe: true},
	})
	assert.Equal(t, 1, res.Fix.Removed())
}

func TestAuditAllowListedWarningsDoNotBlock(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"Foo.cs": fooAnnotated,
		"Cls.cs": "namespace Lib { [System.CLSCompliant(false)] public class C { } }\n",
	})

	res := audit(t, dir, AuditOptions{Manifest: manifest.New("M:Lib.Foo.Bar")})
	assert.Equal(t, 1, res.Gate.Suppressed)
	assert.Equal(t, 1, res.Fix.Removed())

	_, err := Audit(context.Background(), dir, AuditOptions{
		Manifest: manifest.New("M:Lib.Foo.Bar"),
		Allow:    gate.NewAllow(),
	})
	require.ErrorIs(t, err, gate.ErrCompilationBlocking)
}

func TestAuditDryRunWritesNothing(t *testing.T) {
	dir := writeTree(t, map[string]string{"Foo.cs": fooAnnotated})

	res := audit(t, dir, AuditOptions{Manifest: manifest.New("M:Lib.Foo.Bar"), DryRun: true})

	require.Len(t, res.Fix.FileChanges, 1)
	assert.Contains(t, res.Fix.FileChanges[0].Diff, "-        [EditorBrowsable(EditorBrowsableState.Never)]")
	assert.Equal(t, fooAnnotated, readFile(t, dir, "Foo.cs"))
}

func TestAuditCustomMarker(t *testing.T) {
	src := `namespace Lib
{
    public class Foo
    {
        [Hidden]
        public void Bar() { }
    }
}
`
	dir := writeTree(t, map[string]string{"Foo.cs": src})

	res := audit(t, dir, AuditOptions{Manifest: manifest.New("M:Lib.Foo.Bar"), Marker: "HiddenAttribute"})
	assert.Equal(t, "HiddenAttribute", res.Marker)
	assert.Equal(t, 1, res.Fix.Removed())
	assert.NotContains(t, readFile(t, dir, "Foo.cs"), "[Hidden]")
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"b/B.cs":        "class B { }",
		"a.cs":          "class A { }",
		"obj/Gen.cs":    "class G { }",
		"notes.txt":     "x",
		"deep/x/y/C.cs": "class C { }",
	})

	files, err := Discover(dir, nil, DefaultExclude)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.cs", "b/B.cs", "deep/x/y/C.cs"}, files)

	files, err = Discover(dir, []string{"b/**/*.cs"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b/B.cs"}, files)
}

func TestCompileIsDeterministicAcrossJobs(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		files[name+".cs"] = "namespace N { public partial class P { public void " + name + "() { } } }\n"
	}
	dir := writeTree(t, files)

	ids := func(jobs int) []string {
		res, err := Compile(context.Background(), dir, CompileOptions{Jobs: jobs})
		require.NoError(t, err)
		require.Empty(t, res.Diagnostics)
		var out []string
		symbols.Walk(res.Compilation.Global(), func(s symbols.Symbol) bool {
			out = append(out, s.ID())
			return true
		})
		return out
	}
	serial := ids(1)
	assert.Equal(t, serial, ids(4))
	assert.Contains(t, serial, "M:N.P.H")
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func TestCompileEmitsProgressAndPhases(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.cs": "class A { }", "b.cs": "class B { }"})
	sink := &recordingSink{}
	var phases []string

	res, err := Compile(context.Background(), dir, CompileOptions{
		Jobs:     2,
		Progress: sink,
		Phases: func(e PhaseEvent) {
			if e.Status == PhaseEnd {
				phases = append(phases, e.Name)
			}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.cs", "b.cs"}, res.Files)
	assert.Equal(t, []string{"discover", "parse", "bind"}, phases)

	done := map[string]bool{}
	for _, e := range sink.events {
		if e.Stage == StageParse && e.Status == StatusDone {
			done[e.File] = true
		}
	}
	assert.Equal(t, map[string]bool{"a.cs": true, "b.cs": true}, done)
	assert.Len(t, res.Timer.Report().Phases, 3)
}

func TestCompileChannelSink(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.cs": "class A { }"})
	events := make(chan Event, 64)

	_, err := Compile(context.Background(), dir, CompileOptions{Progress: ChannelSink{Ch: events}})
	require.NoError(t, err)
	close(events)

	var stages []Stage
	for e := range events {
		if e.File == "" && e.Status == StatusDone {
			stages = append(stages, e.Stage)
		}
	}
	assert.Equal(t, []Stage{StageDiscover, StageBind}, stages)
}

func TestCompileCancelled(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.cs": "class A { }"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compile(ctx, dir, CompileOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAuditCompiledReusesCompilation(t *testing.T) {
	dir := writeTree(t, map[string]string{"Foo.cs": fooAnnotated})
	comp, err := Compile(context.Background(), dir, CompileOptions{})
	require.NoError(t, err)

	res, err := AuditCompiled(context.Background(), comp, AuditOptions{
		Manifest: manifest.New("M:Lib.Foo.Bar"),
		DryRun:   true,
	})
	require.NoError(t, err)
	assert.Same(t, comp, res.Compile)
	assert.Equal(t, DefaultMarker, res.Marker)
	assert.Equal(t, 1, res.Fix.Removed())

	var names []string
	for _, p := range res.Timer.Report().Phases {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"discover", "parse", "bind", "gate", "resolve", "classify", "fix"}, names)
}
