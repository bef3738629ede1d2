// Package manifest loads the set of canonical identifiers that make up a
// recorded API surface.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Set is an immutable set of canonical identifiers. Matching is exact.
type Set struct {
	ids map[string]struct{}
}

// New builds a Set from ids; duplicates collapse.
func New(ids ...string) Set {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is a member of the set.
func (s Set) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers.
func (s Set) Len() int {
	return len(s.ids)
}

// Sorted returns the identifiers in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Stats describes what Parse skipped.
type Stats struct {
	Lines      int
	Duplicates []string
}

// Parse reads one identifier per line. Blank lines and lines starting with
// '#' are ignored; surrounding whitespace is trimmed. A malformed entry (no
// "X:" kind prefix) is an error carrying its line number.
func Parse(r io.Reader) (Set, Stats, error) {
	var stats Stats
	set := Set{ids: make(map[string]struct{})}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		stats.Lines++
		line := sc.Bytes()
		if stats.Lines == 1 {
			line = bytes.TrimPrefix(line, []byte{0xEF, 0xBB, 0xBF})
		}
		id := strings.TrimSpace(string(line))
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		if !validID(id) {
			return Set{}, stats, fmt.Errorf("line %d: %q is not a documentation comment id", stats.Lines, id)
		}
		if _, dup := set.ids[id]; dup {
			stats.Duplicates = append(stats.Duplicates, id)
			continue
		}
		set.ids[id] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return Set{}, stats, err
	}
	return set, stats, nil
}

// Load parses the manifest file at path.
func Load(path string) (Set, Stats, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return Set{}, Stats{}, err
	}
	defer f.Close()
	set, stats, err := Parse(f)
	if err != nil {
		return Set{}, stats, fmt.Errorf("%s: %w", path, err)
	}
	return set, stats, nil
}

func validID(id string) bool {
	if len(id) < 3 || id[1] != ':' {
		return false
	}
	switch id[0] {
	case 'N', 'T', 'M', 'P', 'F', 'E':
		return true
	}
	return false
}
