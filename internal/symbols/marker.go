package symbols

import (
	"strings"

	"refaudit/internal/source"
)

const attributeSuffix = "Attribute"

// Marker is an attribute applied to a symbol.
type Marker struct {
	// Name is the unqualified type name, always ending in "Attribute".
	Name string
	// Site is the span of the attribute application syntax.
	Site source.Span
}

// NormalizeMarkerName reduces an attribute reference as written in source
// ("System.ComponentModel.EditorBrowsable", "global::Foo.Bar<int>") to its
// unqualified type name with the Attribute suffix.
func NormalizeMarkerName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimPrefix(name, "@")
	if name == "" || strings.HasSuffix(name, attributeSuffix) {
		return name
	}
	return name + attributeSuffix
}

// ShortMarkerName drops the Attribute suffix, as the attribute is usually
// written in source.
func ShortMarkerName(name string) string {
	name = NormalizeMarkerName(name)
	if name == attributeSuffix {
		return name
	}
	return strings.TrimSuffix(name, attributeSuffix)
}
