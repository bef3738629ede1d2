// Package report renders audit results for people (coloured text) and for
// downstream tooling (JSON and msgpack documents).
package report

import (
	"fmt"
	"strings"

	"refaudit/internal/diag"
	"refaudit/internal/diagfmt"
	"refaudit/internal/driver"
	"refaudit/internal/gate"
	"refaudit/internal/observ"
	"refaudit/internal/source"
	"refaudit/internal/symbols"
	"refaudit/internal/version"
)

// SchemaVersion is bumped whenever Document changes shape.
const SchemaVersion uint16 = 1

// Format selects the report encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat accepts text, json and msgpack, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatMsgpack:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (must be text, json or msgpack)", s)
	}
}

// Options configures rendering.
type Options struct {
	Color    bool
	PathMode diagfmt.PathMode
	// Allow marks which diagnostics were suppressed by the gate.
	Allow gate.Allow
	// Quiet drops per-file progress lines from text output.
	Quiet   bool
	Timings bool
}

func (o Options) suppressed() func(diag.Code) bool {
	if o.Allow == nil {
		return nil
	}
	return o.Allow.Contains
}

// Symbol is a matched manifest entry.
type Symbol struct {
	ID       string                `json:"id" msgpack:"id"`
	Display  string                `json:"display" msgpack:"display"`
	Kind     string                `json:"kind" msgpack:"kind"`
	Location *diagfmt.LocationJSON `json:"location,omitempty" msgpack:"location,omitempty"`
}

// Change is one rewritten (or, for dry runs, planned) file.
type Change struct {
	Path    string `json:"path" msgpack:"path"`
	Removed int    `json:"removed" msgpack:"removed"`
	Diff    string `json:"diff,omitempty" msgpack:"diff,omitempty"`
}

// Skip is a marker location left in place.
type Skip struct {
	Path   string `json:"path" msgpack:"path"`
	Line   uint32 `json:"line" msgpack:"line"`
	Reason string `json:"reason" msgpack:"reason"`
}

// Failure is a file that could not be written.
type Failure struct {
	Path  string `json:"path" msgpack:"path"`
	Error string `json:"error" msgpack:"error"`
}

// Document is the machine-readable form of an audit.
type Document struct {
	Schema      uint16                    `json:"schema" msgpack:"schema"`
	Tool        string                    `json:"tool" msgpack:"tool"`
	Version     string                    `json:"version" msgpack:"version"`
	Dir         string                    `json:"dir" msgpack:"dir"`
	Marker      string                    `json:"marker" msgpack:"marker"`
	Blocked     bool                      `json:"blocked" msgpack:"blocked"`
	DryRun      bool                      `json:"dry_run,omitempty" msgpack:"dry_run,omitempty"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics" msgpack:"diagnostics"`
	Unmatched   []string                  `json:"unmatched" msgpack:"unmatched"`
	Found       int                       `json:"found" msgpack:"found"`
	Missing     int                       `json:"missing" msgpack:"missing"`
	Annotated   []Symbol                  `json:"annotated" msgpack:"annotated"`
	Unannotated []Symbol                  `json:"unannotated" msgpack:"unannotated"`
	Changes     []Change                  `json:"changes" msgpack:"changes"`
	Skipped     []Skip                    `json:"skipped,omitempty" msgpack:"skipped,omitempty"`
	Failed      []Failure                 `json:"failed,omitempty" msgpack:"failed,omitempty"`
	Timings     *observ.Report            `json:"timings,omitempty" msgpack:"timings,omitempty"`
}

// Build converts an audit result into a Document. Stages that did not run
// contribute empty sections.
func Build(res *driver.AuditResult, dryRun bool, opts Options) Document {
	doc := Document{
		Schema:      SchemaVersion,
		Tool:        "refaudit",
		Version:     version.String(),
		Marker:      res.Marker,
		Blocked:     res.Blocked(),
		DryRun:      dryRun,
		Unmatched:   append([]string{}, res.Resolve.Unmatched...),
		Found:       res.Classify.Found(),
		Missing:     res.Classify.Missing(),
		Annotated:   []Symbol{},
		Unannotated: []Symbol{},
		Changes:     []Change{},
	}
	var fs *source.FileSet
	if res.Compile != nil {
		doc.Dir = res.Compile.Dir
		fs = res.Compile.FileSet
		doc.Diagnostics = diagfmt.BuildDiagnosticsOutput(res.Compile.Diagnostics, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			PathMode:         opts.PathMode,
			Suppressed:       opts.suppressed(),
		})
	}
	if doc.Diagnostics.Diagnostics == nil {
		doc.Diagnostics.Diagnostics = []diagfmt.DiagnosticJSON{}
	}
	for _, s := range res.Classify.Annotated {
		doc.Annotated = append(doc.Annotated, symbolOf(s, fs, opts.PathMode))
	}
	for _, s := range res.Classify.Unannotated {
		doc.Unannotated = append(doc.Unannotated, symbolOf(s, fs, opts.PathMode))
	}
	if res.Fix != nil {
		for _, c := range res.Fix.FileChanges {
			doc.Changes = append(doc.Changes, Change{Path: c.Path, Removed: c.Removed, Diff: c.Diff})
		}
		for _, s := range res.Fix.Skipped {
			doc.Skipped = append(doc.Skipped, Skip{Path: s.Path, Line: s.Line, Reason: s.Reason})
		}
		for _, f := range res.Fix.Failed {
			doc.Failed = append(doc.Failed, Failure{Path: f.Path, Error: f.Err.Error()})
		}
	}
	if opts.Timings && res.Timer != nil {
		r := res.Timer.Report()
		doc.Timings = &r
	}
	return doc
}

type spanned interface {
	Spans() []source.Span
}

func symbolOf(s symbols.Symbol, fs *source.FileSet, mode diagfmt.PathMode) Symbol {
	out := Symbol{ID: s.ID(), Display: s.Display(), Kind: s.Kind().String()}
	if sp, ok := s.(spanned); ok && fs != nil && len(sp.Spans()) > 0 {
		loc := diagfmt.MakeLocation(sp.Spans()[0], fs, mode, true)
		out.Location = &loc
	}
	return out
}
