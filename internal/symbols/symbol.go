// Package symbols models the declaration tree exposed by a compiled source
// tree: namespaces and types are containers, members are leaves.
package symbols

import (
	"refaudit/internal/source"
)

// Kind classifies the semantic meaning of a symbol.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNamespace
	KindClass
	KindStruct
	KindInterface
	KindEnum
	KindRecord
	KindDelegate
	KindMethod
	KindConstructor
	KindDestructor
	KindOperator
	KindConversion
	KindProperty
	KindIndexer
	KindField
	KindEvent
	KindEnumMember
)

func (k Kind) String() string {
	switch k {
	case KindNamespace:
		return "namespace"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	case KindDelegate:
		return "delegate"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	case KindDestructor:
		return "destructor"
	case KindOperator:
		return "operator"
	case KindConversion:
		return "conversion"
	case KindProperty:
		return "property"
	case KindIndexer:
		return "indexer"
	case KindField:
		return "field"
	case KindEvent:
		return "event"
	case KindEnumMember:
		return "enum member"
	default:
		return "invalid"
	}
}

// IsType reports whether k names a type declaration.
func (k Kind) IsType() bool {
	return k >= KindClass && k <= KindDelegate
}

// IsMethodLike reports whether symbols of kind k carry a parameter list in
// their identifier.
func (k Kind) IsMethodLike() bool {
	switch k {
	case KindMethod, KindConstructor, KindDestructor, KindOperator, KindConversion:
		return true
	}
	return false
}

// Flags encode modifiers relevant to auditing.
type Flags uint16

const (
	FlagPartial Flags = 1 << iota
	FlagStatic
	FlagUnsafe
	FlagOverride
	FlagPublic
)

// Strings returns a slice of textual flag labels.
func (f Flags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 5)
	if f&FlagPartial != 0 {
		labels = append(labels, "partial")
	}
	if f&FlagStatic != 0 {
		labels = append(labels, "static")
	}
	if f&FlagUnsafe != 0 {
		labels = append(labels, "unsafe")
	}
	if f&FlagOverride != 0 {
		labels = append(labels, "override")
	}
	if f&FlagPublic != 0 {
		labels = append(labels, "public")
	}
	return labels
}

// Symbol is one node of the declaration tree.
type Symbol interface {
	// ID is the canonical identifier, unique within one tree.
	ID() string
	Name() string
	// Display is the human readable, fully qualified name.
	Display() string
	Kind() Kind
	Markers() []Marker
}

// Container is a Symbol that owns further symbols (namespaces and types).
type Container interface {
	Symbol
	Members() []Symbol
}

// Decl is a leaf symbol. Scope embeds it for the shared attributes.
type Decl struct {
	id      string
	name    string
	display string
	kind    Kind
	flags   Flags
	markers []Marker
	spans   []source.Span
	parent  *Scope
}

// NewDecl creates a leaf symbol.
func NewDecl(kind Kind, name, id, display string) *Decl {
	return &Decl{id: id, name: name, display: display, kind: kind}
}

func (d *Decl) ID() string        { return d.id }
func (d *Decl) Name() string      { return d.name }
func (d *Decl) Display() string   { return d.display }
func (d *Decl) Kind() Kind        { return d.kind }
func (d *Decl) Markers() []Marker { return d.markers }
func (d *Decl) Flags() Flags      { return d.flags }

// Parent returns the enclosing container, nil for the global namespace.
func (d *Decl) Parent() *Scope { return d.parent }

// Spans returns the declaration spans; partial types have one per part.
func (d *Decl) Spans() []source.Span { return d.spans }

func (d *Decl) AddFlags(f Flags)       { d.flags |= f }
func (d *Decl) AddMarker(m Marker)     { d.markers = append(d.markers, m) }
func (d *Decl) AddSpan(sp source.Span) { d.spans = append(d.spans, sp) }
func (d *Decl) HasMarker(name string) bool {
	name = NormalizeMarkerName(name)
	for _, m := range d.markers {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Scope is a namespace or type: a Symbol with ordered members.
type Scope struct {
	Decl
	members []Symbol
	nested  map[string]*Scope
	// Arity is the number of type parameters declared on this type itself.
	Arity int
	// TypeParams holds the names of this type's own type parameters.
	TypeParams []string
}

// NewScope creates a container symbol.
func NewScope(kind Kind, name, id, display string) *Scope {
	return &Scope{
		Decl:   Decl{id: id, name: name, display: display, kind: kind},
		nested: make(map[string]*Scope),
	}
}

// Members returns members in declaration order.
func (s *Scope) Members() []Symbol { return s.members }

// Add appends a leaf member.
func (s *Scope) Add(d *Decl) {
	d.parent = s
	s.members = append(s.members, d)
}

// AddScope appends a nested container and indexes it by NestedKey.
func (s *Scope) AddScope(child *Scope) {
	child.parent = s
	s.members = append(s.members, child)
	s.nested[NestedKey(child.name, child.Arity)] = child
}

// Nested finds a directly nested namespace or type by name and arity.
func (s *Scope) Nested(name string, arity int) *Scope {
	return s.nested[NestedKey(name, arity)]
}

// NestedKey is the lookup key of a nested container: types with the same name
// but different arity are distinct.
func NestedKey(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return name + "`" + itoa(arity)
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return itoa(n/10) + string(rune('0'+n%10))
}

// Walk visits every symbol below root depth-first in member order.
// Returning false from fn skips the symbol's members.
func Walk(root Container, fn func(Symbol) bool) {
	for _, m := range root.Members() {
		if !fn(m) {
			continue
		}
		if c, ok := m.(Container); ok {
			Walk(c, fn)
		}
	}
}
