package fix

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContext = 3

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

// unifiedDiff renders a line-level diff of before/after in unified format.
func unifiedDiff(path string, before, after []byte) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var all []diffLine
	for _, d := range diffs {
		for _, l := range splitLines(d.Text) {
			all = append(all, diffLine{op: d.Type, text: l})
		}
	}

	var sb strings.Builder
	oldLine, newLine := 1, 1
	for i := 0; i < len(all); {
		if all[i].op == diffmatchpatch.DiffEqual {
			i++
			oldLine++
			newLine++
			continue
		}
		// hunk: back up for leading context, extend while changes are close
		start := max(i-diffContext, 0)
		end := i
		for end < len(all) {
			if all[end].op != diffmatchpatch.DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(all) && all[run].op == diffmatchpatch.DiffEqual {
				run++
			}
			if run < len(all) && run-end <= 2*diffContext {
				end = run
				continue
			}
			end = min(end+diffContext, len(all))
			break
		}

		hunkOld, hunkNew := oldLine-(i-start), newLine-(i-start)
		var oldCount, newCount int
		var body strings.Builder
		for _, l := range all[start:end] {
			switch l.op {
			case diffmatchpatch.DiffEqual:
				oldCount++
				newCount++
				body.WriteString(" ")
			case diffmatchpatch.DiffDelete:
				oldCount++
				body.WriteString("-")
			case diffmatchpatch.DiffInsert:
				newCount++
				body.WriteString("+")
			}
			body.WriteString(l.text)
			body.WriteString("\n")
		}
		if sb.Len() == 0 {
			fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
		}
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", hunkOld, oldCount, hunkNew, newCount)
		sb.WriteString(body.String())

		for _, l := range all[i:end] {
			if l.op != diffmatchpatch.DiffInsert {
				oldLine++
			}
			if l.op != diffmatchpatch.DiffDelete {
				newLine++
			}
		}
		i = end
	}
	return sb.String()
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}
