package csharp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tscsharp "github.com/smacker/go-tree-sitter/csharp"

	"refaudit/internal/diag"
	"refaudit/internal/source"
	"refaudit/internal/symbols"
)

var errNilFile = errors.New("nil source file")

var typeKinds = map[string]symbols.Kind{
	"class_declaration":         symbols.KindClass,
	"struct_declaration":        symbols.KindStruct,
	"interface_declaration":     symbols.KindInterface,
	"enum_declaration":          symbols.KindEnum,
	"record_declaration":        symbols.KindRecord,
	"record_struct_declaration": symbols.KindStruct,
	"delegate_declaration":      symbols.KindDelegate,
}

var typeNodes = map[string]struct{}{
	"predefined_type":       {},
	"identifier":            {},
	"generic_name":          {},
	"qualified_name":        {},
	"alias_qualified_name":  {},
	"array_type":            {},
	"pointer_type":          {},
	"nullable_type":         {},
	"tuple_type":            {},
	"ref_type":              {},
	"scoped_type":           {},
	"function_pointer_type": {},
	"implicit_type":         {},
}

var modifierFlags = map[string]symbols.Flags{
	"public":   symbols.FlagPublic,
	"static":   symbols.FlagStatic,
	"partial":  symbols.FlagPartial,
	"unsafe":   symbols.FlagUnsafe,
	"override": symbols.FlagOverride,
}

// Parse builds the declaration model of one file. Parse keeps no state
// between calls and may run concurrently for different files.
func Parse(ctx context.Context, file *source.File) (*Unit, error) {
	if file == nil {
		return nil, errNilFile
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tscsharp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, file.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file.Path, err)
	}
	defer tree.Close()

	p := &unitParser{
		src:  file.Content,
		file: file.ID,
		unit: &Unit{File: file.ID},
	}
	root := tree.RootNode()
	p.unit.Root = &Node{Kind: symbols.KindNamespace, Span: p.span(root)}
	p.scan(root, false)
	p.namespaceMembers(root, p.unit.Root)

	sort.Slice(p.unit.AttributeLists, func(i, j int) bool {
		a, b := p.unit.AttributeLists[i], p.unit.AttributeLists[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End > b.End
	})
	return p.unit, nil
}

type unitParser struct {
	src  []byte
	file source.FileID
	unit *Unit
}

func (p *unitParser) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(p.src)
}

// compact collapses all whitespace runs inside n's text.
func (p *unitParser) compact(n *sitter.Node) string {
	return strings.Join(strings.Fields(p.text(n)), " ")
}

func (p *unitParser) span(n *sitter.Node) source.Span {
	return source.Span{File: p.file, Start: n.StartByte(), End: n.EndByte()}
}

func (p *unitParser) report(code diag.Code, n *sitter.Node, msg string) {
	p.unit.Diagnostics = append(p.unit.Diagnostics, diag.NewError(code, p.span(n), msg))
}

// scan walks the whole tree once: it reports ERROR and MISSING nodes and
// indexes every attribute list.
func (p *unitParser) scan(n *sitter.Node, inError bool) {
	switch {
	case n.Type() == "ERROR":
		if !inError {
			p.report(diag.SynInvalidToken, n, fmt.Sprintf("invalid token '%s'", snippet(p.compact(n))))
		}
		inError = true
	case n.IsMissing():
		p.report(diag.SynExpected, n, fmt.Sprintf("syntax error, '%s' expected", n.Type()))
	case n.Type() == "attribute_list" || n.Type() == "global_attribute" || n.Type() == "global_attribute_list":
		p.unit.AttributeLists = append(p.unit.AttributeLists, p.span(n))
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil {
			p.scan(c, inError)
		}
	}
}

func snippet(s string) string {
	const limit = 24
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// field returns the first present field among names. Field names moved
// between grammar releases ("type" became "returns" on methods).
func field(n *sitter.Node, names ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	for _, name := range names {
		if c := n.ChildByFieldName(name); c != nil {
			return c
		}
	}
	return nil
}

func firstOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, c := range namedChildren(n) {
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

func isTypeNode(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	_, ok := typeNodes[n.Type()]
	return ok
}

func firstTypeChild(n *sitter.Node) *sitter.Node {
	for _, c := range namedChildren(n) {
		if isTypeNode(c) {
			return c
		}
	}
	return nil
}

func (p *unitParser) namespaceMembers(n *sitter.Node, ns *Node) {
	target := ns
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "using_directive":
			target.Usings = append(target.Usings, p.using(c))
		case "global_attribute", "global_attribute_list":
			p.assemblyAttributes(c)
		case "attribute_list":
			if t := p.listTarget(c); t == "assembly" || t == "module" {
				p.assemblyAttributes(c)
			}
		case "namespace_declaration":
			child := &Node{Kind: symbols.KindNamespace, Name: p.namespaceName(c), Span: p.span(c)}
			body := field(c, "body")
			if body == nil {
				body = firstOfType(c, "declaration_list")
			}
			p.namespaceMembers(body, child)
			target.Members = append(target.Members, child)
		case "file_scoped_namespace_declaration":
			child := &Node{Kind: symbols.KindNamespace, Name: p.namespaceName(c), Span: p.span(c), FileScoped: true}
			p.namespaceMembers(c, child)
			target.Members = append(target.Members, child)
			// older grammars attach the following declarations as siblings
			target = child
		case "declaration_list":
			p.namespaceMembers(c, target)
		default:
			if d := p.typeDeclaration(c); d != nil {
				target.Members = append(target.Members, d)
			}
		}
	}
}

func (p *unitParser) namespaceName(n *sitter.Node) string {
	name := field(n, "name")
	if name == nil {
		name = firstOfType(n, "qualified_name", "identifier")
	}
	return strings.Join(strings.Fields(p.text(name)), "")
}

func (p *unitParser) using(n *sitter.Node) Using {
	var u Using
	for _, c := range children(n) {
		switch c.Type() {
		case "static":
			u.Static = true
		case "global":
			u.Global = true
		case "name_equals":
			u.Alias = p.text(firstOfType(c, "identifier"))
		}
	}
	if a := field(n, "alias"); a != nil {
		u.Alias = p.text(a)
	}
	var target *sitter.Node
	for _, c := range namedChildren(n) {
		if isTypeNode(c) {
			target = c
		}
	}
	if target != nil {
		u.Target = p.typeRef(target)
	}
	return u
}

func (p *unitParser) assemblyAttributes(list *sitter.Node) {
	attrs := p.attributes(list)
	for i := range attrs {
		if attrs[i].Target == "" {
			attrs[i].Target = "assembly"
		}
	}
	p.unit.Assembly = append(p.unit.Assembly, attrs...)
}

func (p *unitParser) listTarget(list *sitter.Node) string {
	spec := firstOfType(list, "attribute_target_specifier")
	if spec == nil {
		// global attribute lists keep the target as a bare keyword
		for _, c := range children(list) {
			if t := c.Type(); t == "assembly" || t == "module" {
				return t
			}
		}
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p.text(spec)), ":"))
}

func (p *unitParser) attributes(list *sitter.Node) []Attribute {
	target := p.listTarget(list)
	listSpan := p.span(list)
	var out []Attribute
	for _, a := range namedChildren(list) {
		if a.Type() != "attribute" {
			continue
		}
		name := field(a, "name")
		if name == nil && a.NamedChildCount() > 0 {
			name = a.NamedChild(0)
		}
		attr := Attribute{
			Name:   strings.Join(strings.Fields(p.text(name)), ""),
			Target: target,
			Site:   p.span(a),
			List:   listSpan,
		}
		if args := firstOfType(a, "attribute_argument_list"); args != nil {
			attr.Arg = p.firstString(args)
		}
		out = append(out, attr)
	}
	return out
}

func (p *unitParser) firstString(n *sitter.Node) string {
	switch n.Type() {
	case "string_literal", "verbatim_string_literal", "raw_string_literal":
		s := strings.TrimPrefix(p.text(n), "@")
		return strings.Trim(s, `"`)
	}
	for _, c := range namedChildren(n) {
		if s := p.firstString(c); s != "" {
			return s
		}
	}
	return ""
}

// header collects attributes and modifiers shared by every declaration.
func (p *unitParser) header(n *sitter.Node, kind symbols.Kind) *Node {
	d := &Node{Kind: kind, Span: p.span(n)}
	for _, c := range children(n) {
		switch {
		case c.Type() == "attribute_list":
			d.Attributes = append(d.Attributes, p.attributes(c)...)
		case c.Type() == "modifier":
			d.Flags |= modifierFlags[strings.TrimSpace(p.text(c))]
		case !c.IsNamed():
			d.Flags |= modifierFlags[c.Type()]
		}
	}
	return d
}

// nameOf returns the declared identifier. Without a name field it is the
// last direct identifier before the parameter or body part, which skips a
// leading return type.
func (p *unitParser) nameOf(n *sitter.Node) (string, source.Span) {
	if f := field(n, "name"); f != nil {
		return p.text(f), p.span(f)
	}
	var last *sitter.Node
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "identifier":
			last = c
		case "parameter_list", "bracketed_parameter_list", "type_parameter_list",
			"declaration_list", "accessor_list", "block", "arrow_expression_clause",
			"base_list", "enum_member_declaration_list", "equals_value_clause":
			if last != nil {
				return p.text(last), p.span(last)
			}
		}
	}
	if last == nil {
		return "", p.span(n)
	}
	return p.text(last), p.span(last)
}

func (p *unitParser) typeParams(n *sitter.Node) []string {
	list := field(n, "type_parameters")
	if list == nil {
		list = firstOfType(n, "type_parameter_list")
	}
	var out []string
	for _, tp := range namedChildren(list) {
		switch tp.Type() {
		case "type_parameter":
			name, _ := p.nameOf(tp)
			out = append(out, name)
		case "identifier":
			out = append(out, p.text(tp))
		}
	}
	return out
}

func (p *unitParser) typeDeclaration(n *sitter.Node) *Node {
	kind, ok := typeKinds[n.Type()]
	if !ok {
		return nil
	}
	d := p.header(n, kind)
	if kind == symbols.KindRecord {
		for _, c := range children(n) {
			if c.Type() == "struct" {
				d.Kind = symbols.KindStruct
			}
		}
	}
	d.Name, d.NameSpan = p.nameOf(n)
	d.TypeParams = p.typeParams(n)
	if bases := firstOfType(n, "base_list"); bases != nil {
		for _, b := range namedChildren(bases) {
			if b.Type() == "primary_constructor_base_type" {
				b = firstTypeChild(b)
			}
			if isTypeNode(b) {
				d.Bases = append(d.Bases, p.typeRef(b))
			}
		}
	}

	switch kind {
	case symbols.KindDelegate:
		d.Type = p.returnType(n)
		d.Params = p.params(firstOfType(n, "parameter_list"))
		return d
	case symbols.KindEnum:
		body := field(n, "body")
		if body == nil {
			body = firstOfType(n, "enum_member_declaration_list")
		}
		for _, m := range namedChildren(body) {
			if m.Type() != "enum_member_declaration" {
				continue
			}
			em := p.header(m, symbols.KindEnumMember)
			em.Name, em.NameSpan = p.nameOf(m)
			d.Members = append(d.Members, em)
		}
		return d
	}

	if pl := firstOfType(n, "parameter_list"); pl != nil {
		p.primaryConstructor(d, pl, strings.HasPrefix(n.Type(), "record"))
	}
	body := field(n, "body")
	if body == nil {
		body = firstOfType(n, "declaration_list")
	}
	p.typeMembers(body, d)
	return d
}

// primaryConstructor adds the constructor implied by a parameter list on the
// type header. Positional record parameters also become properties.
func (p *unitParser) primaryConstructor(d *Node, pl *sitter.Node, recordLike bool) {
	params := p.params(pl)
	ctor := &Node{
		Kind:   symbols.KindConstructor,
		Name:   d.Name,
		Span:   p.span(pl),
		Flags:  d.Flags & symbols.FlagPublic,
		Params: params,
	}
	d.Members = append(d.Members, ctor)
	if !recordLike {
		return
	}
	for _, prm := range params {
		prop := &Node{
			Kind:  symbols.KindProperty,
			Name:  prm.Name,
			Span:  p.span(pl),
			Flags: symbols.FlagPublic,
			Type:  prm.Type,
		}
		prop.Accessors = []*Node{implicitAccessor(prop, "get"), implicitAccessor(prop, "init")}
		d.Members = append(d.Members, prop)
	}
}

func (p *unitParser) typeMembers(body *sitter.Node, parent *Node) {
	for _, m := range namedChildren(body) {
		switch m.Type() {
		case "method_declaration":
			d := p.header(m, symbols.KindMethod)
			d.Name, d.NameSpan = p.nameOf(m)
			d.Type = p.returnType(m)
			d.Interface = p.explicitInterface(m)
			d.TypeParams = p.typeParams(m)
			d.Params = p.params(firstOfType(m, "parameter_list"))
			parent.Members = append(parent.Members, d)
		case "constructor_declaration":
			d := p.header(m, symbols.KindConstructor)
			d.Name, d.NameSpan = p.nameOf(m)
			d.Params = p.params(firstOfType(m, "parameter_list"))
			parent.Members = append(parent.Members, d)
		case "destructor_declaration":
			d := p.header(m, symbols.KindDestructor)
			d.Name, d.NameSpan = p.nameOf(m)
			parent.Members = append(parent.Members, d)
		case "property_declaration":
			d := p.header(m, symbols.KindProperty)
			d.Name, d.NameSpan = p.nameOf(m)
			d.Type = p.returnType(m)
			d.Interface = p.explicitInterface(m)
			d.Accessors = p.accessors(m, d, "get")
			parent.Members = append(parent.Members, d)
		case "indexer_declaration":
			d := p.header(m, symbols.KindIndexer)
			d.Name = "this"
			d.NameSpan = p.span(m)
			d.Type = p.returnType(m)
			d.Interface = p.explicitInterface(m)
			d.Params = p.params(firstOfType(m, "bracketed_parameter_list"))
			d.Accessors = p.accessors(m, d, "get")
			parent.Members = append(parent.Members, d)
		case "event_declaration":
			d := p.header(m, symbols.KindEvent)
			d.Name, d.NameSpan = p.nameOf(m)
			d.Type = p.returnType(m)
			d.Interface = p.explicitInterface(m)
			d.Accessors = p.accessors(m, d, "add", "remove")
			parent.Members = append(parent.Members, d)
		case "field_declaration":
			parent.Members = append(parent.Members, p.variables(m, symbols.KindField)...)
		case "event_field_declaration":
			parent.Members = append(parent.Members, p.variables(m, symbols.KindEvent)...)
		case "operator_declaration":
			d := p.header(m, symbols.KindOperator)
			d.Type = p.returnType(m)
			d.Operator, d.Checked = p.operatorToken(m)
			d.Name = d.Operator
			d.NameSpan = p.span(m)
			d.Params = p.params(firstOfType(m, "parameter_list"))
			parent.Members = append(parent.Members, d)
		case "conversion_operator_declaration":
			d := p.header(m, symbols.KindConversion)
			for _, c := range children(m) {
				switch c.Type() {
				case "implicit", "explicit":
					d.Operator = c.Type()
				case "checked":
					d.Checked = true
				}
			}
			d.Name = d.Operator
			d.NameSpan = p.span(m)
			if t := field(m, "type"); t != nil {
				d.Type = p.typeRef(t)
			} else {
				d.Type = p.typeRef(firstTypeChild(m))
			}
			d.Params = p.params(firstOfType(m, "parameter_list"))
			parent.Members = append(parent.Members, d)
		default:
			if d := p.typeDeclaration(m); d != nil {
				parent.Members = append(parent.Members, d)
			}
		}
	}
}

// variables expands a field or field-like event declaration into one node
// per declarator; the declarators share attributes and modifiers.
func (p *unitParser) variables(m *sitter.Node, kind symbols.Kind) []*Node {
	proto := p.header(m, kind)
	vd := firstOfType(m, "variable_declaration")
	if vd == nil {
		return nil
	}
	typ := field(vd, "type")
	if typ == nil {
		typ = firstTypeChild(vd)
	}
	t := p.typeRef(typ)
	var out []*Node
	for _, decl := range namedChildren(vd) {
		if decl.Type() != "variable_declarator" {
			continue
		}
		d := *proto
		d.Name, d.NameSpan = p.nameOf(decl)
		if d.Name == "" {
			d.Name = p.text(firstOfType(decl, "identifier"))
		}
		d.Type = t
		if kind == symbols.KindEvent {
			d.Accessors = []*Node{implicitAccessor(&d, "add"), implicitAccessor(&d, "remove")}
		}
		out = append(out, &d)
	}
	return out
}

var accessorKeywords = map[string]bool{
	"get": true, "set": true, "init": true, "add": true, "remove": true,
}

// accessors reads the accessor list of a property, indexer or event. A
// declaration without a list (an expression body) gets the implicit
// accessors named by implied.
func (p *unitParser) accessors(m *sitter.Node, owner *Node, implied ...string) []*Node {
	list := field(m, "accessors")
	if list == nil {
		list = firstOfType(m, "accessor_list")
	}
	if list == nil {
		out := make([]*Node, 0, len(implied))
		for _, name := range implied {
			out = append(out, implicitAccessor(owner, name))
		}
		return out
	}
	var out []*Node
	for _, a := range namedChildren(list) {
		if a.Type() != "accessor_declaration" {
			continue
		}
		d := p.header(a, symbols.KindMethod)
		restricted := false
		for _, c := range children(a) {
			switch t := c.Type(); {
			case accessorKeywords[t]:
				d.Name, d.NameSpan = t, p.span(c)
			case t == "identifier" && d.Name == "":
				d.Name, d.NameSpan = p.text(c), p.span(c)
			case t == "modifier" || t == "private" || t == "protected" || t == "internal":
				switch strings.TrimSpace(p.text(c)) {
				case "private", "protected", "internal":
					restricted = true
				}
			}
		}
		if !accessorKeywords[d.Name] {
			continue
		}
		d.Flags |= owner.Flags
		if restricted {
			d.Flags &^= symbols.FlagPublic
		}
		out = append(out, d)
	}
	return out
}

func implicitAccessor(owner *Node, name string) *Node {
	return &Node{
		Kind:     symbols.KindMethod,
		Name:     name,
		Span:     owner.Span,
		NameSpan: owner.NameSpan,
		Flags:    owner.Flags,
	}
}

func (p *unitParser) returnType(n *sitter.Node) *TypeRef {
	if t := field(n, "returns", "type"); t != nil {
		return p.typeRef(t)
	}
	return p.typeRef(firstTypeChild(n))
}

func (p *unitParser) explicitInterface(n *sitter.Node) *TypeRef {
	spec := firstOfType(n, "explicit_interface_specifier")
	if spec == nil {
		return nil
	}
	if t := field(spec, "name"); t != nil {
		return p.typeRef(t)
	}
	return p.typeRef(firstTypeChild(spec))
}

func (p *unitParser) operatorToken(n *sitter.Node) (string, bool) {
	checked := false
	for _, c := range children(n) {
		if c.Type() == "checked" {
			checked = true
		}
	}
	if op := field(n, "operator"); op != nil {
		return strings.TrimSpace(p.text(op)), checked
	}
	seen := false
	for _, c := range children(n) {
		switch {
		case c.Type() == "operator":
			seen = true
		case seen && c.Type() != "checked" && !c.IsNamed():
			return strings.TrimSpace(p.text(c)), checked
		case seen && (c.Type() == "boolean_literal" || c.Type() == "true" || c.Type() == "false"):
			return p.text(c), checked
		}
	}
	return "", checked
}

// params reads a parameter list. The pinned grammar has no node for a
// params array: the "params" token and its type and name sit directly in
// the list.
func (p *unitParser) params(list *sitter.Node) []Param {
	var out []Param
	all := children(list)
	for i := 0; i < len(all); i++ {
		c := all[i]
		switch c.Type() {
		case "parameter":
			out = append(out, p.param(c, ParamValue))
		case "parameter_array":
			out = append(out, p.param(c, ParamParams))
		case "params":
			prm := Param{Mode: ParamParams}
			for i+1 < len(all) && all[i+1].Type() != "," && all[i+1].Type() != ")" && all[i+1].Type() != "]" {
				i++
				n := all[i]
				switch {
				case prm.Type == nil && isTypeNode(n):
					prm.Type = p.typeRef(n)
				case n.Type() == "identifier":
					prm.Name = p.text(n)
				}
			}
			out = append(out, prm)
		}
	}
	return out
}

func (p *unitParser) param(n *sitter.Node, mode ParamMode) Param {
	for _, c := range children(n) {
		tok := c.Type()
		if tok == "parameter_modifier" || tok == "modifier" {
			tok = strings.TrimSpace(p.text(c))
		}
		switch tok {
		case "ref":
			mode = ParamRef
		case "out":
			mode = ParamOut
		case "in":
			mode = ParamIn
		case "this":
			if !mode.ByRef() {
				mode = ParamThis
			}
		case "params":
			if !mode.ByRef() {
				mode = ParamParams
			}
		}
	}
	prm := Param{Mode: mode}
	prm.Name, _ = p.nameOf(n)
	if t := field(n, "type"); t != nil {
		prm.Type = p.typeRef(t)
	} else {
		prm.Type = p.typeRef(firstTypeChild(n))
	}
	if prm.Type != nil && prm.Type.Kind == TypeByRef {
		if !prm.Mode.ByRef() {
			prm.Mode = ParamRef
		}
		prm.Type = prm.Type.Elem
	}
	return prm
}

func (p *unitParser) typeRef(n *sitter.Node) *TypeRef {
	if n == nil {
		return nil
	}
	t := &TypeRef{Text: p.compact(n)}
	switch n.Type() {
	case "predefined_type":
		t.Kind = TypePredefined
		t.Keyword = strings.TrimSpace(p.text(n))
	case "identifier":
		t.Parts = []NamePart{{Name: p.text(n)}}
	case "generic_name":
		t.Parts = []NamePart{p.genericPart(n)}
	case "qualified_name":
		q, name := field(n, "qualifier"), field(n, "name")
		if q == nil || name == nil {
			named := namedChildren(n)
			if len(named) < 2 {
				t.Kind = TypeOpaque
				return t
			}
			q, name = named[0], named[len(named)-1]
		}
		left := p.typeRef(q)
		t.Alias = left.Alias
		t.Parts = append(append([]NamePart(nil), left.Parts...), p.simplePart(name))
	case "alias_qualified_name":
		named := namedChildren(n)
		alias := field(n, "alias")
		if alias == nil {
			alias = n.Child(0)
		}
		t.Alias = strings.TrimSpace(p.text(alias))
		if len(named) > 0 {
			t.Parts = []NamePart{p.simplePart(named[len(named)-1])}
		}
	case "array_type":
		elem := field(n, "type")
		if elem == nil {
			elem = firstTypeChild(n)
		}
		cur := p.typeRef(elem)
		for _, c := range namedChildren(n) {
			if c.Type() != "array_rank_specifier" {
				continue
			}
			rank := 1
			for _, tok := range children(c) {
				if tok.Type() == "," {
					rank++
				}
			}
			cur = &TypeRef{Kind: TypeArray, Elem: cur, Rank: rank}
		}
		if cur == nil || cur.Kind != TypeArray {
			cur = &TypeRef{Kind: TypeArray, Elem: cur, Rank: 1}
		}
		cur.Text = t.Text
		return cur
	case "pointer_type":
		t.Kind = TypePointer
		t.Elem = p.typeRef(firstTypeChild(n))
	case "nullable_type":
		t.Kind = TypeNullable
		t.Elem = p.typeRef(firstTypeChild(n))
	case "ref_type":
		t.Kind = TypeByRef
		elem := field(n, "type")
		if elem == nil {
			elem = firstTypeChild(n)
		}
		t.Elem = p.typeRef(elem)
	case "scoped_type":
		return p.typeRef(firstTypeChild(n))
	case "tuple_type":
		t.Kind = TypeTuple
		for _, el := range namedChildren(n) {
			if el.Type() != "tuple_element" {
				continue
			}
			et := field(el, "type")
			if et == nil {
				et = firstTypeChild(el)
			}
			t.Elems = append(t.Elems, p.typeRef(et))
		}
	default:
		t.Kind = TypeOpaque
	}
	return t
}

func (p *unitParser) simplePart(n *sitter.Node) NamePart {
	if n.Type() == "generic_name" {
		return p.genericPart(n)
	}
	return NamePart{Name: p.text(n)}
}

func (p *unitParser) genericPart(n *sitter.Node) NamePart {
	name := field(n, "name")
	if name == nil {
		name = firstOfType(n, "identifier")
	}
	part := NamePart{Name: p.text(name)}
	for _, a := range namedChildren(firstOfType(n, "type_argument_list")) {
		part.Args = append(part.Args, p.typeRef(a))
	}
	return part
}
