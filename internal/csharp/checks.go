package csharp

import (
	"fmt"
	"strings"

	"refaudit/internal/diag"
	"refaudit/internal/source"
	"refaudit/internal/symbols"
)

// check runs the semantic checks that need the whole symbol tree.
func (b *binder) check() {
	b.checkObsoleteUsage()
	b.checkObsoleteOverrides()
	b.checkCLSCompliant()
}

// obsoleteIn reports whether d or any of its containers is marked obsolete.
func obsoleteIn(d *symbols.Decl) bool {
	for d != nil {
		if d.HasMarker(obsoleteAttribute) {
			return true
		}
		p := d.Parent()
		if p == nil {
			return false
		}
		d = &p.Decl
	}
	return false
}

func (b *binder) obsoleteMessage(s *symbols.Scope) string {
	msg := fmt.Sprintf("'%s' is obsolete", s.Display())
	if text := b.messages[&s.Decl]; text != "" {
		msg += fmt.Sprintf(": '%s'", text)
	}
	return msg
}

func (b *binder) reportObsoleteRefs(user *symbols.Decl, at source.Span, refs []*symbols.Scope) {
	if obsoleteIn(user) {
		return
	}
	seen := make(map[*symbols.Scope]struct{}, len(refs))
	for _, s := range refs {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if obsoleteIn(&s.Decl) {
			diag.ReportWarning(b.rep, diag.SemaObsoleteUsage, at, b.obsoleteMessage(s)).Emit()
		}
	}
}

// checkObsoleteUsage warns when a signature or base list names an obsolete
// type from a declaration that is not itself obsolete.
func (b *binder) checkObsoleteUsage() {
	for _, ti := range b.order {
		if len(ti.refs) > 0 {
			b.reportObsoleteRefs(&ti.scope.Decl, ti.parts[0].node.NameSpan, ti.refs)
		}
	}
	for _, mi := range b.members {
		if len(mi.refs) > 0 {
			b.reportObsoleteRefs(mi.decl, mi.node.NameSpan, mi.refs)
		}
	}
}

func (b *binder) baseClass(ti *typeInfo) *typeInfo {
	for _, s := range ti.bases {
		if k := s.Kind(); k == symbols.KindClass || k == symbols.KindRecord {
			return b.types[s]
		}
	}
	return nil
}

// checkObsoleteOverrides warns when an obsolete override replaces a base
// member that is not obsolete. Only bases declared in the compilation are
// searched.
func (b *binder) checkObsoleteOverrides() {
	for _, mi := range b.members {
		d := mi.decl
		if d.Flags()&symbols.FlagOverride == 0 || !d.HasMarker(obsoleteAttribute) {
			continue
		}
		prefix := memberPrefix(d.Kind())
		suffix := strings.TrimPrefix(d.ID(), prefix+mi.owner.qual)
		visited := map[*typeInfo]struct{}{mi.owner: {}}
		for base := b.baseClass(mi.owner); base != nil; base = b.baseClass(base) {
			if _, loop := visited[base]; loop {
				break
			}
			visited[base] = struct{}{}
			overridden := base.sigs[prefix+base.qual+suffix]
			if overridden == nil {
				continue
			}
			if !overridden.HasMarker(obsoleteAttribute) {
				diag.ReportWarning(b.rep, diag.SemaObsoleteOverride, mi.node.NameSpan,
					fmt.Sprintf("Obsolete member '%s' overrides non-obsolete member '%s'", d.Display(), overridden.Display())).
					WithNote(overridden.Spans()[0], "overridden member").Emit()
			}
			break
		}
	}
}

// checkCLSCompliant warns about CLSCompliant on symbols when the assembly
// itself carries no CLSCompliant attribute.
func (b *binder) checkCLSCompliant() {
	for _, a := range b.assembly {
		if a.Normalized() == clsCompliantAttribute {
			return
		}
	}
	symbols.Walk(b.global, func(s symbols.Symbol) bool {
		for _, m := range s.Markers() {
			if m.Name != clsCompliantAttribute {
				continue
			}
			diag.ReportWarning(b.rep, diag.SemaCLSCompliantNotNeeded, m.Site,
				fmt.Sprintf("'%s' does not need a CLSCompliant attribute because the assembly does not have a CLSCompliant attribute", s.Display())).Emit()
		}
		return true
	})
}
