package source

// LineExtent returns the [start, end) byte range of the line holding off,
// terminator included. Offsets past the buffer clamp to its end.
func LineExtent(buf []byte, off int) (start, end int) {
	if off < 0 {
		off = 0
	}
	if off > len(buf) {
		off = len(buf)
	}
	// '\n' of a "\r\n" pair belongs to the line the '\r' ends
	if off > 0 && off < len(buf) && buf[off] == '\n' && buf[off-1] == '\r' {
		off--
	}

	start = off
	for start > 0 {
		if b := buf[start-1]; b == '\n' || b == '\r' {
			break
		}
		start--
	}

	end = off
	for end < len(buf) {
		switch buf[end] {
		case '\n':
			return start, end + 1
		case '\r':
			if end+1 < len(buf) && buf[end+1] == '\n' {
				return start, end + 2
			}
			return start, end + 1
		}
		end++
	}
	return start, end
}

// TrimLineBreak drops a trailing "\n", "\r\n" or "\r" from line.
func TrimLineBreak(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return line[:n]
}

// RemoveLine returns a copy of buf without the line holding off.
// buf itself is never modified.
func RemoveLine(buf []byte, off int) []byte {
	start, end := LineExtent(buf, off)
	out := make([]byte, 0, len(buf)-(end-start))
	out = append(out, buf[:start]...)
	return append(out, buf[end:]...)
}

// IsBlank reports whether b holds only spaces, tabs and line terminators.
func IsBlank(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n', '\f', '\v':
		default:
			return false
		}
	}
	return true
}
