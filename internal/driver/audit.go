package driver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"refaudit/internal/classify"
	"refaudit/internal/fix"
	"refaudit/internal/gate"
	"refaudit/internal/manifest"
	"refaudit/internal/observ"
	"refaudit/internal/resolve"
)

// DefaultMarker is the attribute whose lines the audit removes.
const DefaultMarker = "EditorBrowsableAttribute"

// AuditOptions configures Audit.
type AuditOptions struct {
	Compile  CompileOptions
	Manifest manifest.Set
	Marker   string
	// Allow lists the diagnostic codes that do not block; nil means
	// gate.DefaultAllow.
	Allow   gate.Allow
	DryRun  bool
	Lenient bool
	// Findings is called once resolving and classifying are done and before
	// any file is touched.
	Findings func(*AuditResult)
}

// AuditResult collects what each stage produced. Stages that did not run
// leave their field zero.
type AuditResult struct {
	Compile  *CompileResult
	Gate     gate.Result
	Resolve  resolve.Result
	Classify classify.Result
	Fix      *fix.ApplyResult
	Marker   string
	Timer    *observ.Timer
}

// Blocked reports whether the gate stopped the audit.
func (r *AuditResult) Blocked() bool { return r.Gate.HasIssues }

// Clean reports whether every manifest entry resolved and every match
// carried the marker.
func (r *AuditResult) Clean() bool {
	return !r.Gate.HasIssues && len(r.Resolve.Unmatched) == 0 && r.Classify.Missing() == 0
}

// Audit compiles dir and, when the gate passes, resolves the manifest,
// classifies the matches and removes the marker lines. Each stage runs to
// completion before the next starts; on error the partial result is
// returned with it.
func Audit(ctx context.Context, dir string, opts AuditOptions) (*AuditResult, error) {
	if opts.Compile.Timer == nil {
		opts.Compile.Timer = observ.NewTimer()
	}
	comp, err := Compile(ctx, dir, opts.Compile)
	if err != nil {
		return &AuditResult{Marker: markerOrDefault(opts.Marker), Timer: opts.Compile.Timer}, err
	}
	return AuditCompiled(ctx, comp, opts)
}

func markerOrDefault(marker string) string {
	if marker == "" {
		return DefaultMarker
	}
	return marker
}

// AuditCompiled runs the audit stages on an existing compilation. Timings
// are appended to comp.Timer; opts.Compile only contributes the logger and
// the phase observer.
func AuditCompiled(ctx context.Context, comp *CompileResult, opts AuditOptions) (*AuditResult, error) {
	log := opts.Compile.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timer := comp.Timer
	if timer == nil {
		timer = observ.NewTimer()
		comp.Timer = timer
	}
	marker := markerOrDefault(opts.Marker)
	allow := opts.Allow
	if allow == nil {
		allow = gate.DefaultAllow()
	}
	res := &AuditResult{Compile: comp, Marker: marker, Timer: timer}
	phases := phaseTracker{timer: timer, observer: opts.Compile.Phases}

	end := phases.begin("gate")
	res.Gate = gate.Check(comp.Diagnostics, allow)
	end(fmt.Sprintf("%d blocking, %d suppressed", len(res.Gate.Blocking), res.Gate.Suppressed))
	if err := res.Gate.Err(); err != nil {
		log.Debug("gate closed", zap.Int("blocking", len(res.Gate.Blocking)))
		return res, err
	}

	end = phases.begin("resolve")
	res.Resolve = resolve.Resolve(comp.Compilation.Global(), opts.Manifest)
	end(fmt.Sprintf("%d matched, %d unmatched", len(res.Resolve.Matched), len(res.Resolve.Unmatched)))
	log.Debug("resolved manifest",
		zap.Int("entries", opts.Manifest.Len()),
		zap.Int("visited", res.Resolve.Visited),
		zap.Int("matched", len(res.Resolve.Matched)),
	)

	end = phases.begin("classify")
	var err error
	res.Classify, err = classify.Classify(res.Resolve.Matched, marker, comp.Compilation)
	if err != nil {
		end("failed")
		return res, fmt.Errorf("classify: %w", err)
	}
	end(fmt.Sprintf("found %d, missing %d", res.Classify.Found(), res.Classify.Missing()))

	if opts.Findings != nil {
		opts.Findings(res)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	end = phases.begin("fix")
	res.Fix, err = fix.Apply(comp.FileSet, res.Classify.Locations, fix.Options{
		DryRun:  opts.DryRun,
		Lenient: opts.Lenient,
		Logger:  log,
	})
	if errors.Is(err, fix.ErrNoLocations) {
		err = nil
	}
	end(fmt.Sprintf("%d lines removed", res.Fix.Removed()))
	if err != nil {
		return res, fmt.Errorf("fix: %w", err)
	}
	return res, nil
}
