package csharp

import (
	"strings"

	"refaudit/internal/symbols"
)

// bindContext carries what a type reference inside one declaration can see.
type bindContext struct {
	frame  *frame
	typ    *typeInfo
	method []string
	// names renders type parameters by name instead of by position.
	names bool
	// refs collects the compilation types the encoded references resolved to.
	refs []*symbols.Scope
}

func lastIndex(list []string, name string) int {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] == name {
			return i
		}
	}
	return -1
}

func (b *binder) encodeParams(ctx *bindContext, params []Param) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		s := b.encode(ctx, p.Type)
		if p.Mode.ByRef() {
			s += "@"
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// encode renders t in documentation ID form.
func (b *binder) encode(ctx *bindContext, t *TypeRef) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypePredefined:
		if full, ok := predefinedTypes[t.Keyword]; ok {
			return full
		}
		return t.Keyword
	case TypeArray:
		return b.encode(ctx, t.Elem) + arraySuffix(t.Rank)
	case TypePointer:
		return b.encode(ctx, t.Elem) + "*"
	case TypeByRef:
		return b.encode(ctx, t.Elem)
	case TypeNullable:
		inner := b.encode(ctx, t.Elem)
		if b.isValueType(ctx, t.Elem) {
			return "System.Nullable{" + inner + "}"
		}
		return inner
	case TypeTuple:
		elems := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = b.encode(ctx, e)
		}
		return "System.ValueTuple{" + strings.Join(elems, ",") + "}"
	case TypeNamed:
		if len(t.Parts) > 0 {
			return b.encodeNamed(ctx, t)
		}
	}
	return strings.ReplaceAll(t.Text, " ", "")
}

func (b *binder) encodeNamed(ctx *bindContext, t *TypeRef) string {
	if t.Simple() {
		name := t.Parts[0].Name
		if i := lastIndex(ctx.method, name); i >= 0 {
			if ctx.names {
				return name
			}
			return methodParamRef(i)
		}
		if ctx.typ != nil {
			if i := lastIndex(ctx.typ.params, name); i >= 0 {
				if ctx.names {
					return name
				}
				return typeParamRef(i)
			}
		}
	}
	if s := b.lookup(ctx, t); s != nil {
		ctx.refs = append(ctx.refs, s)
		return b.encodeScope(ctx, s, t.Parts)
	}

	// Outside the compilation: the name is taken as written, with a
	// leading using alias expanded.
	parts := t.Parts
	var segs []string
	if t.Alias == "" && len(parts[0].Args) == 0 {
		if u := findAlias(ctx.frame, parts[0].Name); u != nil && u.Target != nil {
			actx := &bindContext{frame: &frame{ns: b.global}, names: ctx.names}
			segs = append(segs, b.encode(actx, u.Target))
			ctx.refs = append(ctx.refs, actx.refs...)
			parts = parts[1:]
		}
	}
	for _, p := range parts {
		segs = append(segs, b.encodePart(ctx, p))
	}
	return strings.Join(segs, ".")
}

func (b *binder) encodePart(ctx *bindContext, p NamePart) string {
	if len(p.Args) == 0 {
		return p.Name
	}
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = b.encode(ctx, a)
	}
	return p.Name + "{" + strings.Join(args, ",") + "}"
}

// encodeScope renders a reference to a compilation type. Written type
// arguments are aligned with the tail of the containing-type chain; generic
// containers left implicit use their own type parameters.
func (b *binder) encodeScope(ctx *bindContext, s *symbols.Scope, parts []NamePart) string {
	var chain []*typeInfo
	for ti := b.types[s]; ti != nil; ti = ti.outer {
		chain = append([]*typeInfo{ti}, chain...)
	}
	if len(chain) == 0 {
		return s.ID()[len(prefixType):]
	}
	nsQual := b.quals[chain[0].scope.Parent()]
	offset := len(chain) - len(parts)
	segs := make([]string, 0, len(chain))
	for i, ti := range chain {
		seg := ti.scope.Name()
		own := len(ti.scope.TypeParams)
		pi := i - offset
		switch {
		case pi >= 0 && pi < len(parts) && len(parts[pi].Args) > 0:
			seg = b.encodePart(ctx, NamePart{Name: seg, Args: parts[pi].Args})
		case own > 0:
			start := len(ti.params) - own
			args := make([]string, own)
			for k := range args {
				if ctx.names {
					args[k] = ti.scope.TypeParams[k]
				} else {
					args[k] = typeParamRef(start + k)
				}
			}
			seg += "{" + strings.Join(args, ",") + "}"
		}
		segs = append(segs, seg)
	}
	return qualify(nsQual, strings.Join(segs, "."))
}

// interfaceName renders an explicitly implemented interface with type
// parameters by name, as explicit member names spell them.
func (b *binder) interfaceName(ctx *bindContext, t *TypeRef) string {
	c := *ctx
	c.names = true
	c.refs = nil
	s := b.encode(&c, t)
	ctx.refs = append(ctx.refs, c.refs...)
	return s
}

func (b *binder) isValueType(ctx *bindContext, t *TypeRef) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case TypePredefined:
		switch t.Keyword {
		case "string", "object", "dynamic", "void":
			return false
		}
		return true
	case TypeTuple:
		return true
	case TypeNamed:
		if s := b.lookup(ctx, t); s != nil {
			return s.Kind() == symbols.KindStruct || s.Kind() == symbols.KindEnum
		}
		if t.Simple() {
			name := t.Parts[0].Name
			if lastIndex(ctx.method, name) >= 0 || (ctx.typ != nil && lastIndex(ctx.typ.params, name) >= 0) {
				return false
			}
		}
		if len(t.Parts) == 0 {
			return false
		}
		_, ok := knownValueTypes[t.Parts[len(t.Parts)-1].Name]
		return ok
	}
	return false
}

// lookup resolves a named reference to a type declared in the compilation.
func (b *binder) lookup(ctx *bindContext, t *TypeRef) *symbols.Scope {
	if t == nil || t.Kind != TypeNamed || len(t.Parts) == 0 {
		return nil
	}
	first := t.Parts[0]
	var cur *symbols.Scope
	switch t.Alias {
	case "":
		cur = b.lookupFirst(ctx, first)
	case "global":
		cur = b.global.Nested(first.Name, len(first.Args))
	default:
		return nil
	}
	for _, p := range t.Parts[1:] {
		if cur == nil {
			return nil
		}
		cur = cur.Nested(p.Name, len(p.Args))
	}
	if cur == nil || !cur.Kind().IsType() {
		return nil
	}
	return cur
}

// lookupFirst finds the namespace or type a leading name segment binds to:
// enclosing types innermost first, then each enclosing namespace followed
// by the aliases and imports declared at that level.
func (b *binder) lookupFirst(ctx *bindContext, part NamePart) *symbols.Scope {
	arity := len(part.Args)
	for ti := ctx.typ; ti != nil; ti = ti.outer {
		if s := ti.scope.Nested(part.Name, arity); s != nil {
			return s
		}
		for _, base := range ti.bases {
			if s := base.Nested(part.Name, arity); s != nil {
				return s
			}
		}
	}
	for f := ctx.frame; f != nil; f = f.parent {
		if s := f.ns.Nested(part.Name, arity); s != nil {
			return s
		}
		if arity == 0 {
			for _, u := range f.usings {
				if u.Alias == part.Name {
					return b.lookupPath(u.Target)
				}
			}
		}
		for _, u := range f.usings {
			if u.Alias != "" {
				continue
			}
			if ns := b.lookupPath(u.Target); ns != nil {
				if s := ns.Nested(part.Name, arity); s != nil && s.Kind().IsType() {
					return s
				}
			}
		}
	}
	return nil
}

// lookupPath resolves a fully qualified name from the global namespace.
func (b *binder) lookupPath(t *TypeRef) *symbols.Scope {
	if t == nil || t.Kind != TypeNamed {
		return nil
	}
	cur := b.global
	for _, p := range t.Parts {
		cur = cur.Nested(p.Name, len(p.Args))
		if cur == nil {
			return nil
		}
	}
	return cur
}

func findAlias(f *frame, name string) *Using {
	for ; f != nil; f = f.parent {
		for i := range f.usings {
			if f.usings[i].Alias == name {
				return &f.usings[i]
			}
		}
	}
	return nil
}
