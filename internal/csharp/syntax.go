// Package csharp is the C# front-end: it parses source files with the
// tree-sitter C# grammar, extracts a declaration-only syntax model and binds
// it into a symbols tree with documentation-comment identifiers.
//
// Only declarations are modelled. Method bodies, expressions and statements
// are parsed (so syntax errors inside them are reported) but never bound.
package csharp

import (
	"refaudit/internal/diag"
	"refaudit/internal/source"
	"refaudit/internal/symbols"
)

// Unit is the declaration model of one parsed file. It holds no tree-sitter
// state, so units can be produced concurrently and bound later.
type Unit struct {
	File source.FileID
	// Root is the compilation unit seen as the unnamed global namespace.
	Root *Node
	// AttributeLists holds every attribute list in the file, ordered by start.
	AttributeLists []source.Span
	// Assembly holds assembly- and module-targeted attributes.
	Assembly    []Attribute
	Diagnostics []diag.Diagnostic
}

// Node is a namespace, type or member declaration.
type Node struct {
	Kind symbols.Kind
	// Name is the simple name. Namespace names may be dotted.
	Name     string
	Span     source.Span
	NameSpan source.Span
	Flags    symbols.Flags
	// TypeParams are the declaration's own type parameter names.
	TypeParams []string
	Params     []Param
	// Type is the return, property, field, event or conversion target type.
	Type *TypeRef
	// Interface is set for explicit interface implementations.
	Interface *TypeRef
	// Operator is the operator token ("+", "==", "true") or, for
	// conversions, "implicit" / "explicit".
	Operator string
	Checked  bool
	Bases    []*TypeRef
	// Attributes are the attributes applied to this declaration itself.
	Attributes []Attribute
	Usings     []Using
	Members    []*Node
	// Accessors of a property, indexer or event. Name is the accessor
	// keyword: get, set, init, add or remove.
	Accessors []*Node
	// FileScoped marks a "namespace X;" declaration.
	FileScoped bool
}

// HasAttribute reports whether the declaration carries the named attribute.
func (n *Node) HasAttribute(name string) bool {
	name = symbols.NormalizeMarkerName(name)
	for _, a := range n.Attributes {
		if a.Normalized() == name {
			return true
		}
	}
	return false
}

// ParamMode is the passing convention of a parameter.
type ParamMode uint8

const (
	ParamValue ParamMode = iota
	ParamRef
	ParamOut
	ParamIn
	ParamParams
	ParamThis
)

// ByRef reports whether the parameter is passed by reference.
func (m ParamMode) ByRef() bool {
	return m == ParamRef || m == ParamOut || m == ParamIn
}

type Param struct {
	Name string
	Type *TypeRef
	Mode ParamMode
}

// Attribute is one attribute application inside an attribute list.
type Attribute struct {
	// Name as written, possibly qualified and without the Attribute suffix.
	Name string
	// Target is the explicit target specifier ("return", "assembly") or "".
	Target string
	// Arg is the first string literal argument, unquoted, if any.
	Arg string
	// Site spans the attribute itself; List spans the enclosing brackets.
	Site source.Span
	List source.Span
}

// Normalized returns the unqualified type name with the Attribute suffix.
func (a Attribute) Normalized() string {
	return symbols.NormalizeMarkerName(a.Name)
}

// AppliesTo reports whether the attribute marks a declaration of the given
// kind rather than its return value, backing field or the assembly.
func (a Attribute) AppliesTo(kind symbols.Kind) bool {
	switch a.Target {
	case "":
		return true
	case "field":
		return kind == symbols.KindField || kind == symbols.KindEnumMember
	case "property":
		return kind == symbols.KindProperty || kind == symbols.KindIndexer
	case "event":
		return kind == symbols.KindEvent
	case "method":
		return kind.IsMethodLike()
	case "type":
		return kind.IsType()
	}
	return false
}

// Using is a using directive. Alias is empty for namespace imports.
type Using struct {
	Alias  string
	Target *TypeRef
	Static bool
	Global bool
}

// TypeKind classifies a type reference.
type TypeKind uint8

const (
	TypeNamed TypeKind = iota
	TypePredefined
	TypeArray
	TypePointer
	TypeNullable
	TypeTuple
	TypeByRef
	TypeOpaque
)

// TypeRef is a type as written in a declaration signature.
type TypeRef struct {
	Kind TypeKind
	// Alias is the extern alias of an alias-qualified name ("global").
	Alias string
	// Parts are the dotted segments of a named type.
	Parts []NamePart
	// Keyword is the predefined type keyword ("int", "string").
	Keyword string
	// Elem is the element type of arrays, pointers, nullables and by-refs.
	Elem *TypeRef
	// Rank is the array rank; 1 for T[].
	Rank  int
	Elems []*TypeRef
	// Text is the source text of the reference.
	Text string
}

// NamePart is one dotted segment of a named type, with its type arguments.
type NamePart struct {
	Name string
	Args []*TypeRef
}

// Simple reports whether the reference is a single identifier without type
// arguments, the only shape that can name a type parameter.
func (t *TypeRef) Simple() bool {
	return t != nil && t.Kind == TypeNamed && t.Alias == "" && len(t.Parts) == 1 && len(t.Parts[0].Args) == 0
}
