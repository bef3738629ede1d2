package csharp

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"refaudit/internal/diag"
	"refaudit/internal/source"
	"refaudit/internal/symbols"
)

const (
	obsoleteAttribute     = "ObsoleteAttribute"
	clsCompliantAttribute = "CLSCompliantAttribute"
	indexerNameAttribute  = "IndexerNameAttribute"
)

// frame is one lexical namespace level with the using directives declared
// at that level.
type frame struct {
	ns     *symbols.Scope
	usings []Using
	parent *frame
}

type typePart struct {
	node  *Node
	frame *frame
}

// typeInfo is the binder's view of one (possibly partial) type.
type typeInfo struct {
	scope *symbols.Scope
	// qual is the identifier body without prefix, e.g. "N.Outer`1.Inner".
	qual  string
	outer *typeInfo
	parts []typePart
	// params are the type parameters in scope, outermost type first.
	params []string
	bases  []*symbols.Scope
	refs   []*symbols.Scope
	sigs   map[string]*symbols.Decl
	// names of fields, properties and events; method names; nested types
	names   map[string]struct{}
	methods map[string]struct{}
	types   map[string]struct{}
}

type memberInfo struct {
	decl  *symbols.Decl
	node  *Node
	owner *typeInfo
	refs  []*symbols.Scope
}

type binder struct {
	opts     Options
	log      *zap.Logger
	bag      *diag.Bag
	rep      diag.Reporter
	global   *symbols.Scope
	quals    map[*symbols.Scope]string
	types    map[*symbols.Scope]*typeInfo
	order    []*typeInfo
	members  []*memberInfo
	messages map[*symbols.Decl]string
	assembly []Attribute
}

func newBinder(opts Options, log *zap.Logger) *binder {
	bag := diag.NewBag(opts.MaxDiagnostics)
	global := symbols.NewScope(symbols.KindNamespace, "", prefixNamespace, "<global namespace>")
	return &binder{
		opts:     opts,
		log:      log,
		bag:      bag,
		rep:      diag.BagReporter{Bag: bag},
		global:   global,
		quals:    map[*symbols.Scope]string{global: ""},
		types:    make(map[*symbols.Scope]*typeInfo),
		messages: make(map[*symbols.Decl]string),
	}
}

func (b *binder) bind(units []*Unit) {
	var globalUsings []Using
	for _, u := range units {
		for _, us := range u.Root.Usings {
			if us.Global {
				globalUsings = append(globalUsings, us)
			}
		}
	}
	for _, u := range units {
		usings := append([]Using(nil), globalUsings...)
		for _, us := range u.Root.Usings {
			if !us.Global {
				usings = append(usings, us)
			}
		}
		b.declareMembers(u.Root, b.global, &frame{ns: b.global, usings: usings})
	}
	for _, ti := range b.order {
		b.bindType(ti)
	}
}

func (b *binder) declareMembers(n *Node, ns *symbols.Scope, f *frame) {
	for _, m := range n.Members {
		switch {
		case m.Kind == symbols.KindNamespace:
			child, outer := ns, f
			var parts []string
			for _, part := range strings.Split(m.Name, ".") {
				if part != "" {
					parts = append(parts, part)
				}
			}
			for i, part := range parts {
				child = b.namespace(child, part)
				if i < len(parts)-1 {
					outer = &frame{ns: child, parent: outer}
				}
			}
			b.declareMembers(m, child, &frame{ns: child, usings: m.Usings, parent: outer})
		case m.Kind.IsType():
			b.declareType(m, ns, nil, f)
		}
	}
}

func (b *binder) namespace(parent *symbols.Scope, name string) *symbols.Scope {
	if s := parent.Nested(name, 0); s != nil {
		return s
	}
	qual := qualify(b.quals[parent], name)
	s := symbols.NewScope(symbols.KindNamespace, name, prefixNamespace+qual, qual)
	parent.AddScope(s)
	b.quals[s] = qual
	return s
}

func (b *binder) declareType(n *Node, parent *symbols.Scope, outer *typeInfo, f *frame) {
	arity := len(n.TypeParams)
	if existing := parent.Nested(n.Name, arity); existing != nil {
		ti := b.types[existing]
		if ti != nil && existing.Kind() == n.Kind &&
			existing.Flags()&symbols.FlagPartial != 0 && n.Flags&symbols.FlagPartial != 0 {
			existing.AddSpan(n.Span)
			existing.AddFlags(n.Flags)
			b.addMarkers(&existing.Decl, n)
			ti.parts = append(ti.parts, typePart{node: n, frame: f})
			b.declareNested(n, ti, f)
			return
		}
		var rb *diag.ReportBuilder
		if parent.Kind() == symbols.KindNamespace {
			rb = diag.ReportError(b.rep, diag.SemaDuplicateType, n.NameSpan,
				fmt.Sprintf("The namespace '%s' already contains a definition for '%s'", parent.Display(), n.Name))
		} else {
			rb = diag.ReportError(b.rep, diag.SemaDuplicateMember, n.NameSpan,
				fmt.Sprintf("The type '%s' already contains a definition for '%s'", parent.Display(), n.Name))
		}
		if spans := existing.Spans(); len(spans) > 0 {
			rb.WithNote(spans[0], "previous definition")
		}
		rb.Emit()
		return
	}

	var qual, display string
	if outer != nil {
		qual = qualify(outer.qual, typeArity(n.Name, arity))
		display = qualify(outer.scope.Display(), n.Name)
	} else {
		qual = qualify(b.quals[parent], typeArity(n.Name, arity))
		display = qualify(b.quals[parent], n.Name)
	}
	s := symbols.NewScope(n.Kind, n.Name, prefixType+qual, display+typeParamList(n.TypeParams))
	s.Arity = arity
	s.TypeParams = n.TypeParams
	s.AddFlags(n.Flags)
	s.AddSpan(n.Span)
	b.addMarkers(&s.Decl, n)
	parent.AddScope(s)

	ti := &typeInfo{
		scope:   s,
		qual:    qual,
		outer:   outer,
		parts:   []typePart{{node: n, frame: f}},
		sigs:    make(map[string]*symbols.Decl),
		names:   make(map[string]struct{}),
		methods: make(map[string]struct{}),
		types:   make(map[string]struct{}),
	}
	if outer != nil {
		ti.params = append(ti.params, outer.params...)
		outer.types[n.Name] = struct{}{}
	}
	ti.params = append(ti.params, n.TypeParams...)
	b.types[s] = ti
	b.order = append(b.order, ti)
	b.declareNested(n, ti, f)
}

func (b *binder) declareNested(n *Node, ti *typeInfo, f *frame) {
	for _, m := range n.Members {
		if m.Kind.IsType() {
			b.declareType(m, ti.scope, ti, f)
		}
	}
}

func (b *binder) addMarkers(d *symbols.Decl, n *Node) {
	for _, a := range n.Attributes {
		if !a.AppliesTo(n.Kind) {
			continue
		}
		name := a.Normalized()
		d.AddMarker(symbols.Marker{Name: name, Site: a.Site})
		if name == obsoleteAttribute {
			b.messages[d] = a.Arg
		}
	}
}

func (b *binder) unsafeCode(n *Node) {
	if b.opts.AllowUnsafe || n.Flags&symbols.FlagUnsafe == 0 {
		return
	}
	sp := n.NameSpan
	if sp.Empty() {
		sp = n.Span
	}
	diag.ReportError(b.rep, diag.SemaUnsafeNotAllowed, sp,
		"Unsafe code may only appear if compiling with /unsafe").Emit()
}

func (b *binder) bindType(ti *typeInfo) {
	for _, part := range ti.parts {
		n := part.node
		b.unsafeCode(n)
		ctx := &bindContext{frame: part.frame, typ: ti}
		for _, base := range n.Bases {
			b.encode(ctx, base)
			if s := b.lookup(ctx, base); s != nil {
				ti.bases = append(ti.bases, s)
			}
		}
		if n.Kind == symbols.KindDelegate {
			b.encode(ctx, n.Type)
			b.encodeParams(ctx, n.Params)
			b.delegateMembers(ti, part)
		}
		ti.refs = append(ti.refs, ctx.refs...)
		for _, m := range n.Members {
			if m.Kind.IsType() {
				continue
			}
			b.bindMember(ti, part, m)
		}
	}
	b.implicitConstructor(ti)
}

// synthesize declares a member the compiler generates. It does nothing when
// the identifier is already taken.
func (b *binder) synthesize(ti *typeInfo, kind symbols.Kind, name, id, display string, flags symbols.Flags, sp source.Span) *symbols.Decl {
	if ti.sigs[id] != nil {
		return nil
	}
	d := symbols.NewDecl(kind, name, id, display)
	d.AddFlags(flags)
	d.AddSpan(sp)
	ti.scope.Add(d)
	ti.sigs[id] = d
	return d
}

func opaqueParam(name string) Param {
	return Param{Type: &TypeRef{Kind: TypeOpaque, Text: name}}
}

// delegateMembers declares the constructor and the invocation methods of a
// delegate type.
func (b *binder) delegateMembers(ti *typeInfo, part typePart) {
	n := part.node
	ctx := &bindContext{frame: part.frame, typ: ti}
	owner := prefixMethod + ti.qual + "."
	disp := ti.scope.Display() + "."
	flags := n.Flags & symbols.FlagPublic

	ctor := []Param{{Type: &TypeRef{Kind: TypePredefined, Keyword: "object", Text: "object"}}, opaqueParam("System.IntPtr")}
	begin := append(append([]Param(nil), n.Params...), opaqueParam("System.AsyncCallback"), ctor[0])
	var end []Param
	for _, p := range n.Params {
		if p.Mode.ByRef() {
			end = append(end, p)
		}
	}
	end = append(end, opaqueParam("System.IAsyncResult"))

	b.synthesize(ti, symbols.KindConstructor, "#ctor", owner+"#ctor"+b.encodeParams(ctx, ctor),
		disp+n.Name+"("+displayParams(ctor)+")", flags, n.Span)
	for _, m := range []struct {
		name   string
		params []Param
	}{
		{"Invoke", n.Params},
		{"BeginInvoke", begin},
		{"EndInvoke", end},
	} {
		b.synthesize(ti, symbols.KindMethod, m.name, owner+m.name+b.encodeParams(ctx, m.params),
			disp+m.name+"("+displayParams(m.params)+")", flags, n.Span)
	}
}

// implicitConstructor declares the parameterless constructor of a class
// without instance constructors, and of every struct that does not declare
// one itself.
func (b *binder) implicitConstructor(ti *typeInfo) {
	s := ti.scope
	id := prefixMethod + ti.qual + ".#ctor"
	switch s.Kind() {
	case symbols.KindClass, symbols.KindRecord:
		if s.Flags()&symbols.FlagStatic != 0 {
			return
		}
		for sig := range ti.sigs {
			if sig == id || strings.HasPrefix(sig, id+"(") {
				return
			}
		}
	case symbols.KindStruct:
	default:
		return
	}
	b.synthesize(ti, symbols.KindConstructor, "#ctor", id, s.Display()+"."+s.Name()+"()",
		s.Flags()&symbols.FlagPublic, ti.parts[0].node.Span)
}

// bindAccessors declares the accessor methods of a property, indexer or
// event. Markers come from the attribute lists on each accessor.
func (b *binder) bindAccessors(ti *typeInfo, part typePart, m *Node, name, display string) {
	if len(m.Accessors) == 0 {
		return
	}
	ctx := &bindContext{frame: part.frame, typ: ti}
	iface := ""
	if m.Interface != nil {
		iface = explicitName(b.interfaceName(ctx, m.Interface))
	}
	value := Param{Name: "value", Type: m.Type}
	for _, a := range m.Accessors {
		var prefix string
		var params []Param
		switch a.Name {
		case "get":
			prefix, params = "get_", m.Params
		case "set", "init":
			prefix, params = "set_", append(append([]Param(nil), m.Params...), value)
		case "add", "remove":
			prefix, params = a.Name+"_", []Param{value}
		default:
			continue
		}
		id := prefixMethod + ti.qual + "." + iface + prefix + name + b.encodeParams(ctx, params)
		if prev := ti.sigs[id]; prev != nil {
			if prev.Flags()&symbols.FlagPartial != 0 && a.Flags&symbols.FlagPartial != 0 {
				prev.AddSpan(a.Span)
				b.addMarkers(prev, a)
				continue
			}
			diag.ReportError(b.rep, diag.SemaDuplicateSignature, m.NameSpan,
				fmt.Sprintf("Type '%s' already reserves a member called '%s' with the same parameter types", ti.scope.Display(), prefix+name)).
				WithNote(prev.Spans()[0], "previous definition").Emit()
			continue
		}
		d := b.synthesize(ti, symbols.KindMethod, prefix+name, id, display+"."+a.Name, a.Flags, a.Span)
		b.addMarkers(d, a)
	}
}

func (b *binder) bindMember(ti *typeInfo, part typePart, m *Node) {
	b.unsafeCode(m)
	ctx := &bindContext{frame: part.frame, typ: ti, method: m.TypeParams}
	name, id, display := b.identity(ctx, ti, m)
	methodLike := m.Kind.IsMethodLike() || m.Kind == symbols.KindIndexer

	if prev := ti.sigs[id]; prev != nil {
		if prev.Flags()&symbols.FlagPartial != 0 && m.Flags&symbols.FlagPartial != 0 {
			prev.AddSpan(m.Span)
			b.addMarkers(prev, m)
			b.bindAccessors(ti, part, m, name, display)
			return
		}
		if methodLike {
			diag.ReportError(b.rep, diag.SemaDuplicateSignature, m.NameSpan,
				fmt.Sprintf("Type '%s' already defines a member called '%s' with the same parameter types", ti.scope.Display(), name)).
				WithNote(prev.Spans()[0], "previous definition").Emit()
		} else {
			diag.ReportError(b.rep, diag.SemaDuplicateMember, m.NameSpan,
				fmt.Sprintf("The type '%s' already contains a definition for '%s'", ti.scope.Display(), name)).
				WithNote(prev.Spans()[0], "previous definition").Emit()
		}
		return
	}
	_, clashName := ti.names[name]
	_, clashType := ti.types[name]
	_, clashMethod := ti.methods[name]
	if clashName || clashType || (!methodLike && clashMethod) {
		diag.ReportError(b.rep, diag.SemaDuplicateMember, m.NameSpan,
			fmt.Sprintf("The type '%s' already contains a definition for '%s'", ti.scope.Display(), name)).Emit()
		return
	}

	d := symbols.NewDecl(m.Kind, name, id, display)
	d.AddFlags(m.Flags)
	d.AddSpan(m.Span)
	b.addMarkers(d, m)
	ti.scope.Add(d)
	ti.sigs[id] = d
	if methodLike {
		ti.methods[name] = struct{}{}
	} else {
		ti.names[name] = struct{}{}
	}
	b.members = append(b.members, &memberInfo{decl: d, node: m, owner: ti, refs: ctx.refs})
	b.bindAccessors(ti, part, m, name, display)
}

// identity computes the symbol name, documentation ID and display name of
// a member.
func (b *binder) identity(ctx *bindContext, ti *typeInfo, m *Node) (name, id, display string) {
	owner := ti.qual
	disp := ti.scope.Display()
	iface, ifaceDisp := "", ""
	if m.Interface != nil {
		iface = explicitName(b.interfaceName(ctx, m.Interface))
		ifaceDisp = m.Interface.Text + "."
	}
	params := b.encodeParams(ctx, m.Params)
	pdisp := displayParams(m.Params)

	switch m.Kind {
	case symbols.KindMethod:
		b.encode(ctx, m.Type)
		name = m.Name
		id = prefixMethod + owner + "." + methodArity(iface+m.Name, len(m.TypeParams)) + params
		display = disp + "." + ifaceDisp + m.Name + typeParamList(m.TypeParams) + "(" + pdisp + ")"
	case symbols.KindConstructor:
		name = "#ctor"
		if m.Flags&symbols.FlagStatic != 0 {
			name = "#cctor"
		}
		id = prefixMethod + owner + "." + name + params
		display = disp + "." + ti.scope.Name() + "(" + pdisp + ")"
	case symbols.KindDestructor:
		name = "Finalize"
		id = prefixMethod + owner + "." + name
		display = disp + ".~" + ti.scope.Name() + "()"
	case symbols.KindOperator:
		b.encode(ctx, m.Type)
		name = OperatorName(m.Operator, len(m.Params), m.Checked)
		id = prefixMethod + owner + "." + name + params
		display = disp + ".operator " + m.Operator + "(" + pdisp + ")"
	case symbols.KindConversion:
		name = ConversionName(m.Operator, m.Checked)
		id = prefixMethod + owner + "." + name + params + "~" + b.encode(ctx, m.Type)
		display = disp + "." + m.Operator + " operator " + typeText(m.Type) + "(" + pdisp + ")"
	case symbols.KindProperty:
		b.encode(ctx, m.Type)
		name = m.Name
		id = prefixProperty + owner + "." + iface + m.Name
		display = disp + "." + ifaceDisp + m.Name
	case symbols.KindIndexer:
		b.encode(ctx, m.Type)
		name = indexerName(m)
		id = prefixProperty + owner + "." + iface + name + params
		display = disp + "." + ifaceDisp + "this[" + pdisp + "]"
	case symbols.KindEvent:
		b.encode(ctx, m.Type)
		name = m.Name
		id = prefixEvent + owner + "." + iface + m.Name
		display = disp + "." + ifaceDisp + m.Name
	default:
		b.encode(ctx, m.Type)
		name = m.Name
		id = memberPrefix(m.Kind) + owner + "." + m.Name
		display = disp + "." + m.Name
	}
	return name, id, display
}

func indexerName(m *Node) string {
	for _, a := range m.Attributes {
		if a.Normalized() == indexerNameAttribute && a.Arg != "" {
			return a.Arg
		}
	}
	return "Item"
}

func typeParamList(params []string) string {
	if len(params) == 0 {
		return ""
	}
	return "<" + strings.Join(params, ", ") + ">"
}

func typeText(t *TypeRef) string {
	if t == nil {
		return "?"
	}
	return t.Text
}

func displayParams(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		var mode string
		switch p.Mode {
		case ParamRef:
			mode = "ref "
		case ParamOut:
			mode = "out "
		case ParamIn:
			mode = "in "
		case ParamParams:
			mode = "params "
		case ParamThis:
			mode = "this "
		}
		parts[i] = mode + typeText(p.Type)
	}
	return strings.Join(parts, ", ")
}
