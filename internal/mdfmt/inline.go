package mdfmt

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

func (p *printer) inlines(parent ast.Node) {
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		p.inline(c)
	}
}

func (p *printer) inline(n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		seg := n.Segment
		v := seg.Value(p.src)
		if p.bol {
			v = bytes.TrimLeft(v, " \t")
			if !p.flat && n.PreviousSibling() != nil {
				v = escapeLineStart(v)
			}
		}
		brk := n.HardLineBreak() || n.SoftLineBreak()
		if brk {
			v = bytes.TrimRight(v, " \t")
		}
		p.write(string(v))
		if brk {
			p.lineBreak(n.HardLineBreak())
		}
	case *ast.String:
		p.write(string(n.Value))
	case *ast.CodeSpan:
		p.write(p.codeSpan(n))
	case *ast.Emphasis:
		delim := strings.Repeat("*", n.Level)
		if n.Level == 2 {
			delim = p.lay.strong
		}
		p.write(delim)
		p.inlines(n)
		p.write(delim)
	case *ast.Link:
		p.write("[")
		p.inlines(n)
		p.write("](" + linkDestination(n.Destination) + linkTitle(n.Title) + ")")
	case *ast.Image:
		p.write("![")
		p.inlines(n)
		p.write("](" + linkDestination(n.Destination) + linkTitle(n.Title) + ")")
	case *ast.AutoLink:
		p.write("<" + string(n.Label(p.src)) + ">")
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			lines := strings.Split(string(seg.Value(p.src)), "\n")
			for j, line := range lines {
				if j > 0 {
					p.newline()
				}
				p.write(line)
			}
		}
	case *extast.Strikethrough:
		p.write("~~")
		p.inlines(n)
		p.write("~~")
	case *extast.TaskCheckBox:
		if n.IsChecked {
			p.write("[x] ")
		} else {
			p.write("[ ] ")
		}
	case *extast.FootnoteLink:
		p.write("[^" + string(p.notes[n.Index]) + "]")
	case *extast.FootnoteBacklink:
	default:
		p.inlines(n)
	}
}

// escapeLineStart escapes the marker of a continuation line that would
// open a block once its indentation is gone.
func escapeLineStart(v []byte) []byte {
	if len(v) == 0 {
		return v
	}
	switch v[0] {
	case '-', '+', '*', '_', '=', '#', '>':
		return append([]byte{'\\'}, v...)
	case '`', '~':
		if len(v) >= 3 && v[1] == v[0] && v[2] == v[0] {
			return append([]byte{'\\'}, v...)
		}
		return v
	}
	i := 0
	for i < len(v) && i < 9 && v[i] >= '0' && v[i] <= '9' {
		i++
	}
	if i > 0 && i < len(v) && (v[i] == '.' || v[i] == ')') {
		out := make([]byte, 0, len(v)+1)
		out = append(out, v[:i]...)
		out = append(out, '\\')
		return append(out, v[i:]...)
	}
	return v
}

// codeSpan picks the shortest backtick fence that does not occur inside the
// content and pads content that would otherwise merge with the fence.
func (p *printer) codeSpan(n *ast.CodeSpan) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			seg := t.Segment
			b.Write(seg.Value(p.src))
		case *ast.String:
			b.Write(t.Value)
		}
	}
	content := strings.ReplaceAll(b.String(), "\n", " ")

	runs := make(map[int]bool)
	cur := 0
	for i := 0; i <= len(content); i++ {
		if i < len(content) && content[i] == '`' {
			cur++
			continue
		}
		if cur > 0 {
			runs[cur] = true
		}
		cur = 0
	}
	width := 1
	for runs[width] {
		width++
	}
	fence := strings.Repeat("`", width)

	if content != "" {
		first, last := content[0], content[len(content)-1]
		allSpace := strings.Trim(content, " ") == ""
		if first == '`' || last == '`' || (first == ' ' && last == ' ' && !allSpace) {
			content = " " + content + " "
		}
	}
	return fence + content + fence
}

func linkDestination(dest []byte) string {
	d := string(dest)
	if d == "" {
		return "<>"
	}
	if (strings.ContainsAny(d, " \t") || !balancedParens(d)) && !strings.ContainsAny(d, "<>\n") {
		return "<" + d + ">"
	}
	return d
}

func balancedParens(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func linkTitle(title []byte) string {
	if len(title) == 0 {
		return ""
	}
	t := string(title)
	switch {
	case !strings.Contains(t, `"`):
		return ` "` + t + `"`
	case !strings.Contains(t, "'"):
		return " '" + t + "'"
	case !strings.ContainsAny(t, "()"):
		return " (" + t + ")"
	default:
		return ` "` + strings.ReplaceAll(t, `"`, `\"`) + `"`
	}
}
