package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refaudit/internal/manifest"
	"refaudit/internal/symbols"
)

func buildTree() *symbols.Scope {
	root := symbols.NewScope(symbols.KindNamespace, "", "", "<global namespace>")
	foo := symbols.NewScope(symbols.KindNamespace, "Foo", "N:Foo", "Foo")
	root.AddScope(foo)

	cls := symbols.NewScope(symbols.KindClass, "Widget", "T:Foo.Widget", "Foo.Widget")
	foo.AddScope(cls)
	cls.Add(symbols.NewDecl(symbols.KindMethod, "Bar", "M:Foo.Bar", "Foo.Bar()"))
	cls.Add(symbols.NewDecl(symbols.KindProperty, "Size", "P:Foo.Widget.Size", "Foo.Widget.Size"))

	inner := symbols.NewScope(symbols.KindStruct, "Inner", "T:Foo.Widget.Inner", "Foo.Widget.Inner")
	cls.AddScope(inner)
	inner.Add(symbols.NewDecl(symbols.KindField, "X", "F:Foo.Widget.Inner.X", "Foo.Widget.Inner.X"))
	return root
}

func ids(syms []symbols.Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.ID())
	}
	return out
}

func TestResolveMatchesAcrossDepths(t *testing.T) {
	m := manifest.New("N:Foo", "M:Foo.Bar", "F:Foo.Widget.Inner.X", "T:Foo.Widget.Inner")
	res := Resolve(buildTree(), m)

	assert.Equal(t, []string{"N:Foo", "M:Foo.Bar", "T:Foo.Widget.Inner", "F:Foo.Widget.Inner.X"}, ids(res.Matched))
	assert.Empty(t, res.Unmatched)
	assert.Equal(t, 6, res.Visited)
}

func TestResolveMatchedIDsAreManifestMembers(t *testing.T) {
	m := manifest.New("M:Foo.Bar", "P:Foo.Widget.Size", "T:Nope")
	res := Resolve(buildTree(), m)
	for _, s := range res.Matched {
		assert.True(t, m.Contains(s.ID()), s.ID())
	}
	assert.Equal(t, m.Len(), len(res.Matched)+len(res.Unmatched))
}

func TestResolveReportsUnmatchedWithoutStopping(t *testing.T) {
	// scenario C
	m := manifest.New("M:Foo.Baz", "M:Foo.Bar")
	res := Resolve(buildTree(), m)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "M:Foo.Bar", res.Matched[0].ID())
	assert.Equal(t, []string{"M:Foo.Baz"}, res.Unmatched)
}

func TestResolveIsDeterministic(t *testing.T) {
	m := manifest.New("N:Foo", "M:Foo.Bar", "F:Foo.Widget.Inner.X", "P:Foo.Widget.Size", "T:X", "T:A")
	tree := buildTree()
	first := Resolve(tree, m)
	for i := 0; i < 5; i++ {
		again := Resolve(tree, m)
		assert.Equal(t, ids(first.Matched), ids(again.Matched))
		assert.Equal(t, first.Unmatched, again.Unmatched)
	}
	assert.Equal(t, []string{"T:A", "T:X"}, first.Unmatched)
}

func TestResolveEmptyManifest(t *testing.T) {
	res := Resolve(buildTree(), manifest.New())
	assert.Empty(t, res.Matched)
	assert.Empty(t, res.Unmatched)
}
