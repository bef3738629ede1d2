package csharp

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"refaudit/internal/diag"
	"refaudit/internal/source"
	"refaudit/internal/symbols"
)

// Options configures binding.
type Options struct {
	// AllowUnsafe permits the unsafe modifier (the /unsafe compiler switch).
	AllowUnsafe bool
	// MaxDiagnostics caps the diagnostics kept; <= 0 is unbounded.
	MaxDiagnostics int
	Logger         *zap.Logger
}

// Compilation is a bound set of files.
type Compilation struct {
	files    *source.FileSet
	global   *symbols.Scope
	units    []*Unit
	lists    map[source.FileID][]source.Span
	assembly []Attribute
	diags    []diag.Diagnostic
	dropped  int
}

// Compile parses files sequentially and binds them. Use Parse and Bind
// directly to parse in parallel.
func Compile(ctx context.Context, fs *source.FileSet, files []source.FileID, opts Options) (*Compilation, error) {
	units := make([]*Unit, 0, len(files))
	for _, id := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := fs.Get(id)
		if f == nil {
			return nil, fmt.Errorf("compile: unknown file id %d", id)
		}
		u, err := Parse(ctx, f)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return Bind(fs, units, opts), nil
}

// Diagnostics returns syntax and semantic diagnostics ordered by position.
func (c *Compilation) Diagnostics() []diag.Diagnostic { return c.diags }

// Dropped is the number of diagnostics discarded by Options.MaxDiagnostics.
func (c *Compilation) Dropped() int { return c.dropped }

// Global returns the unnamed global namespace.
func (c *Compilation) Global() *symbols.Scope { return c.global }

// Files returns the file set the compilation was built from.
func (c *Compilation) Files() *source.FileSet { return c.files }

// Units returns the parsed units in binding order.
func (c *Compilation) Units() []*Unit { return c.units }

// AssemblyAttributes returns the assembly- and module-level attributes.
func (c *Compilation) AssemblyAttributes() []Attribute { return c.assembly }

// EnclosingAttributeList returns the smallest attribute list containing site.
func (c *Compilation) EnclosingAttributeList(site source.Span) (source.Span, bool) {
	lists := c.lists[site.File]
	// lists are ordered by start, longest first on ties
	i := sort.Search(len(lists), func(i int) bool { return lists[i].Start > site.Start })
	for i--; i >= 0; i-- {
		if lists[i].Contains(site) {
			return lists[i], true
		}
	}
	return source.Span{}, false
}

// Bind declares every unit into one symbol tree and runs the semantic
// checks. Units are bound in the order given.
func Bind(fs *source.FileSet, units []*Unit, opts Options) *Compilation {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Compilation{
		files: fs,
		units: units,
		lists: make(map[source.FileID][]source.Span, len(units)),
	}
	b := newBinder(opts, log)
	c.global = b.global

	syntax := 0
	for _, u := range units {
		c.lists[u.File] = u.AttributeLists
		c.assembly = append(c.assembly, u.Assembly...)
		for _, d := range u.Diagnostics {
			b.bag.Add(d)
			syntax++
		}
	}
	b.assembly = c.assembly
	b.bind(units)
	b.check()

	b.bag.Sort()
	b.bag.Dedup()
	c.diags = b.bag.Items()
	c.dropped = b.bag.Dropped()

	log.Debug("bound compilation",
		zap.Int("files", len(units)),
		zap.Int("types", len(b.order)),
		zap.Int("members", len(b.members)),
		zap.Int("syntax_diagnostics", syntax),
		zap.Int("diagnostics", len(c.diags)),
	)
	return c
}
