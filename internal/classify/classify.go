// Package classify splits matched symbols by whether they carry a marker
// attribute and records where each matching attribute list sits in source.
package classify

import (
	"errors"
	"fmt"

	"refaudit/internal/source"
	"refaudit/internal/symbols"
)

// ErrNoAttributeList means a marker site had no enclosing attribute list in
// the syntax tree. Locations are never approximated, so this aborts.
var ErrNoAttributeList = errors.New("marker application has no enclosing attribute list")

// Syntax answers structural questions about the source a symbol came from.
type Syntax interface {
	// EnclosingAttributeList returns the full span of the smallest attribute
	// list containing site.
	EnclosingAttributeList(site source.Span) (source.Span, bool)
}

// Result is the partition produced by Classify.
type Result struct {
	// Locations holds one attribute-list span per matching marker, in
	// symbol order then marker order.
	Locations   []source.Span
	Annotated   []symbols.Symbol
	Unannotated []symbols.Symbol
}

// Found is the number of annotated symbols.
func (r Result) Found() int { return len(r.Annotated) }

// Missing is the number of unannotated symbols.
func (r Result) Missing() int { return len(r.Unannotated) }

// Classify inspects the markers of every matched symbol. A marker matches when
// its unqualified type name equals marker; both sides are compared with the
// Attribute suffix applied. Each symbol lands in exactly one of Annotated and
// Unannotated, in matched order. Classify is pure.
func Classify(matched []symbols.Symbol, marker string, syn Syntax) (Result, error) {
	want := symbols.NormalizeMarkerName(marker)
	var res Result
	seen := make(map[symbols.Symbol]struct{}, len(matched))

	for _, sym := range matched {
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}

		annotated := false
		for _, m := range sym.Markers() {
			if symbols.NormalizeMarkerName(m.Name) != want {
				continue
			}
			list, ok := syn.EnclosingAttributeList(m.Site)
			if !ok {
				return res, fmt.Errorf("%w: %s at %s", ErrNoAttributeList, sym.ID(), m.Site)
			}
			res.Locations = append(res.Locations, list)
			annotated = true
		}
		if annotated {
			res.Annotated = append(res.Annotated, sym)
		} else {
			res.Unannotated = append(res.Unannotated, sym)
		}
	}
	return res, nil
}
