package fix

import (
	"sort"

	"refaudit/internal/source"
)

type filePlan struct {
	// offsets are span starts in descending order, one per line to remove
	offsets []int
	skipped []SkippedLocation
}

// planFile decides which locations of one file can be removed line-wise.
// A location is unsupported when its attribute list runs past the end of
// its first line, when the line holds other code, or when another location
// starts on the same line. Lenient mode accepts shared lines as long as
// everything else on them is attribute lists.
func planFile(file *source.File, locs []source.Span, lenient bool) filePlan {
	sorted := append([]source.Span(nil), locs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End > sorted[j].End
		}
		return sorted[i].Start > sorted[j].Start
	})

	var plan filePlan
	content := file.Content
	type lineGroup struct {
		start, end int
		locs       []source.Span
	}
	var groups []*lineGroup
	byLine := make(map[int]*lineGroup, len(sorted))
	for _, loc := range sorted {
		if int(loc.End) > len(content) || loc.Start > loc.End {
			plan.skipped = append(plan.skipped, skip(file, loc, "location out of range"))
			continue
		}
		start, end := source.LineExtent(content, int(loc.Start))
		g := byLine[start]
		if g == nil {
			g = &lineGroup{start: start, end: end}
			byLine[start] = g
			groups = append(groups, g)
		}
		g.locs = append(g.locs, loc)
	}

	// groups are in descending line order since sorted is
	for _, g := range groups {
		text := source.TrimLineBreak(content[g.start:g.end])
		textEnd := g.start + len(text)
		if reason := lineReason(content, g.start, textEnd, g.locs, lenient); reason != "" {
			for _, loc := range g.locs {
				plan.skipped = append(plan.skipped, skip(file, loc, reason))
			}
			continue
		}
		// one removal per line keeps offsets valid
		plan.offsets = append(plan.offsets, int(g.locs[0].Start))
	}
	return plan
}

// lineReason returns why the line [lineStart, textEnd) cannot be removed for
// locs, or "" when it can.
func lineReason(content []byte, lineStart, textEnd int, locs []source.Span, lenient bool) string {
	for _, loc := range locs {
		if int(loc.End) > textEnd {
			return "attribute list spans several lines"
		}
	}
	if len(locs) > 1 && !lenient {
		return "several attribute lists share one line"
	}
	if !lenient {
		loc := locs[0]
		if !source.IsBlank(content[lineStart:loc.Start]) || !onlyTrivia(content[loc.End:textEnd]) {
			return "attribute list shares its line with other code"
		}
		return ""
	}
	// blank out the locations, then demand that only attribute lists remain
	rest := append([]byte(nil), content[lineStart:textEnd]...)
	for _, loc := range locs {
		for i := int(loc.Start); i < int(loc.End); i++ {
			rest[i-lineStart] = ' '
		}
	}
	if !onlyAttributes(rest) {
		return "attribute list shares its line with other code"
	}
	return ""
}

// onlyAttributes accepts whitespace and complete bracketed attribute lists,
// optionally followed by a line comment.
func onlyAttributes(b []byte) bool {
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case ' ', '\t', '\f', '\v':
			continue
		case '[':
			end := closingBracket(b, i)
			if end < 0 {
				return false
			}
			i = end
		default:
			return onlyTrivia(b[i:])
		}
	}
	return true
}

// closingBracket returns the index of the ']' matching b[open], skipping
// string and char literals, or -1 when the list does not close on this line.
func closingBracket(b []byte, open int) int {
	depth := 0
	for i := open; i < len(b); i++ {
		switch b[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'':
			q := b[i]
			for i++; i < len(b) && b[i] != q; i++ {
				if b[i] == '\\' {
					i++
				}
			}
			if i >= len(b) {
				return -1
			}
		}
	}
	return -1
}

// onlyTrivia accepts whitespace optionally followed by a line comment.
func onlyTrivia(b []byte) bool {
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case ' ', '\t', '\f', '\v':
			continue
		case '/':
			return i+1 < len(b) && b[i+1] == '/'
		default:
			return false
		}
	}
	return true
}

func skip(file *source.File, loc source.Span, reason string) SkippedLocation {
	line := uint32(0)
	if int(loc.Start) <= len(file.Content) {
		line = toLine(file, loc.Start)
	}
	return SkippedLocation{Span: loc, Line: line, Reason: reason}
}

func toLine(file *source.File, off uint32) uint32 {
	// число терминаторов строго до off
	n := sort.Search(len(file.LineIdx), func(i int) bool { return file.LineIdx[i] >= off })
	return uint32(n + 1)
}
