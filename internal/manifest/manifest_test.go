package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := "\xEF\xBB\xBFM:Foo.Bar\n" +
		"# comment\n" +
		"\n" +
		"  T:Foo.Baz  \n" +
		"M:Foo.Bar\n"
	set, stats, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("M:Foo.Bar"))
	assert.True(t, set.Contains("T:Foo.Baz"))
	assert.False(t, set.Contains("T:Foo.baz"), "matching is exact")
	assert.Equal(t, []string{"M:Foo.Bar"}, stats.Duplicates)
	assert.Equal(t, 5, stats.Lines)
	assert.Equal(t, []string{"M:Foo.Bar", "T:Foo.Baz"}, set.Sorted())
}

func TestParseRejectsMalformedEntry(t *testing.T) {
	_, _, err := Parse(strings.NewReader("M:Ok\nFoo.Bar\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surface.txt")
	require.NoError(t, os.WriteFile(path, []byte("F:A.B.C\r\nE:A.B.Changed\r\n"), 0o644))

	set, _, err := Load(path)
	require.NoError(t, err)
	assert.True(t, set.Contains("F:A.B.C"))
	assert.True(t, set.Contains("E:A.B.Changed"))

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestNewCollapsesDuplicates(t *testing.T) {
	s := New("M:A", "M:A", "T:B")
	assert.Equal(t, 2, s.Len())
}
