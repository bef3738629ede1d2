package main

import (
	"fmt"
	"io"
	"time"

	"refaudit/internal/observ"
)

// printStageTimings writes one line per stage group that ran. verbose adds
// the per-phase table.
func printStageTimings(out io.Writer, timer *observ.Timer, verbose bool) {
	if out == nil || timer == nil {
		return
	}
	groups := []struct {
		label  string
		phases []string
	}{
		{"compiled", []string{"discover", "parse", "bind"}},
		{"audited", []string{"gate", "resolve", "classify"}},
		{"fixed", []string{"fix"}},
	}
	for _, g := range groups {
		var total time.Duration
		seen := false
		for _, name := range g.phases {
			if p, ok := timer.Lookup(name); ok {
				total += p.Dur
				seen = true
			}
		}
		if seen {
			fmt.Fprintf(out, "%s %.1f ms\n", g.label, toMillis(total))
		}
	}
	if verbose {
		fmt.Fprint(out, timer.Summary())
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
