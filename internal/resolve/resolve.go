// Package resolve matches manifest entries against a declaration tree.
package resolve

import (
	"sort"

	"refaudit/internal/manifest"
	"refaudit/internal/symbols"
)

// Result holds the symbols whose identifiers are in the manifest and the
// manifest entries nothing matched.
type Result struct {
	Matched   []symbols.Symbol
	Unmatched []string
	// Visited counts every symbol inspected during the walk.
	Visited int
}

// Resolve walks root depth-first in member order. Every member of every
// container is tested against m; members that are themselves containers are
// descended into. The tree has no sharing, so each symbol appears in Matched
// at most once.
func Resolve(root symbols.Container, m manifest.Set) Result {
	var res Result
	found := make(map[string]struct{})
	collect(root, m, &res, found)

	for _, id := range m.Sorted() {
		if _, ok := found[id]; !ok {
			res.Unmatched = append(res.Unmatched, id)
		}
	}
	sort.Strings(res.Unmatched)
	return res
}

func collect(container symbols.Container, m manifest.Set, res *Result, found map[string]struct{}) {
	for _, member := range container.Members() {
		res.Visited++
		id := member.ID()
		if m.Contains(id) {
			res.Matched = append(res.Matched, member)
			found[id] = struct{}{}
		}
		if nested, ok := member.(symbols.Container); ok {
			collect(nested, m, res, found)
		}
	}
}
