package mdfmt

import (
	"bytes"
	"regexp"
)

var (
	fenceLine    = regexp.MustCompile("^ {0,3}(?:> ?)*(?: {0,3})(`{3,}|~{3,})")
	tightHeading = regexp.MustCompile(`^( {0,3}(?:> ?)*)(#{1,6})([^\s#])`)
)

func normalizeNewlines(src []byte) []byte {
	if !bytes.Contains(src, []byte("\r")) {
		return src
	}
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(src, []byte("\r"), []byte("\n"))
}

// splitFrontMatter cuts a leading YAML block delimited by "---" lines.
// The block is returned verbatim and always ends with a newline.
func splitFrontMatter(src []byte) (front, rest []byte) {
	if !bytes.HasPrefix(src, []byte("---\n")) {
		return nil, src
	}
	pos := len("---\n")
	for pos < len(src) {
		end := bytes.IndexByte(src[pos:], '\n')
		var line []byte
		next := len(src)
		if end < 0 {
			line = src[pos:]
		} else {
			line = src[pos : pos+end]
			next = pos + end + 1
		}
		closing := string(bytes.TrimRight(line, " \t"))
		if closing == "---" || closing == "..." {
			front = append(append([]byte(nil), src[:pos]...), closing...)
			front = append(front, '\n')
			return front, bytes.TrimLeft(src[next:], "\n")
		}
		pos = next
	}
	return nil, src
}

// fixHeadingSpace turns "#Title" into "# Title" outside fenced code.
func fixHeadingSpace(src []byte) []byte {
	lines := bytes.SplitAfter(src, []byte("\n"))
	var fence []byte
	for i, line := range lines {
		if m := fenceLine.FindSubmatch(line); m != nil {
			switch {
			case fence == nil:
				fence = m[1]
			case m[1][0] == fence[0] && len(m[1]) >= len(fence):
				fence = nil
			}
			continue
		}
		if fence != nil {
			continue
		}
		lines[i] = tightHeading.ReplaceAll(line, []byte("$1$2 $3"))
	}
	return bytes.Join(lines, nil)
}
