// Package gate decides whether a compilation is clean enough to audit.
//
// Every diagnostic whose code is not allow-listed blocks the run. Blocking is
// all-or-nothing: callers must not resolve, classify or mutate anything when
// Result.HasIssues is set.
package gate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"refaudit/internal/diag"
)

// ErrCompilationBlocking is returned by Result.Err when the gate is closed.
var ErrCompilationBlocking = errors.New("compilation has blocking diagnostics")

// Allow is the set of diagnostic codes treated as non-fatal.
type Allow map[diag.Code]struct{}

// DefaultAllow returns the allow-list used when none is configured:
// CLSCompliant-not-needed, obsolete-override and obsolete-usage warnings.
func DefaultAllow() Allow {
	return NewAllow(diag.SemaCLSCompliantNotNeeded, diag.SemaObsoleteOverride, diag.SemaObsoleteUsage)
}

// NewAllow builds an allow-list from codes.
func NewAllow(codes ...diag.Code) Allow {
	a := make(Allow, len(codes))
	for _, c := range codes {
		a[c] = struct{}{}
	}
	return a
}

// ParseAllow builds an allow-list from textual codes such as "CS0618".
// Blank entries are ignored; codes are upper-cased.
func ParseAllow(codes []string) Allow {
	a := make(Allow, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		a[diag.Code(c)] = struct{}{}
	}
	return a
}

// Contains reports whether code is allow-listed.
func (a Allow) Contains(code diag.Code) bool {
	_, ok := a[code]
	return ok
}

// Codes returns the allow-listed codes in ascending order.
func (a Allow) Codes() []diag.Code {
	out := make([]diag.Code, 0, len(a))
	for c := range a {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Result is the outcome of Check.
type Result struct {
	HasIssues  bool
	Blocking   []diag.Diagnostic
	Suppressed int
}

// Err returns ErrCompilationBlocking wrapped with the blocking count, or nil.
func (r Result) Err() error {
	if !r.HasIssues {
		return nil
	}
	return fmt.Errorf("%w: %d diagnostic(s)", ErrCompilationBlocking, len(r.Blocking))
}

// Check splits diagnostics into suppressed and blocking ones. Blocking
// diagnostics keep their input order.
func Check(diagnostics []diag.Diagnostic, allow Allow) Result {
	var res Result
	for _, d := range diagnostics {
		if allow.Contains(d.Code) {
			res.Suppressed++
			continue
		}
		res.HasIssues = true
		res.Blocking = append(res.Blocking, d)
	}
	return res
}
