package mdfmt

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// indent is one level of container prefix. first is written on the line
// that opens the container, rest on every following line.
type indent struct {
	first, rest string
	used        bool
}

type printer struct {
	src   []byte
	lay   layout
	notes map[int][]byte
	out   bytes.Buffer
	stack []*indent
	bol   bool
	// flat printers render inline content on a single line.
	flat bool
}

func newPrinter(src []byte, lay layout, notes map[int][]byte) *printer {
	return &printer{src: src, lay: lay, notes: notes, bol: true}
}

func (p *printer) sub() *printer {
	return &printer{src: p.src, lay: p.lay, notes: p.notes, bol: true, flat: true}
}

func (p *printer) String() string { return p.out.String() }

func (p *printer) push(first, rest string) {
	p.stack = append(p.stack, &indent{first: first, rest: rest})
}

func (p *printer) pop() {
	p.stack = p.stack[:len(p.stack)-1]
}

func (p *printer) prefix() string {
	var b strings.Builder
	for _, in := range p.stack {
		if in.used {
			b.WriteString(in.rest)
		} else {
			b.WriteString(in.first)
			in.used = true
		}
	}
	return b.String()
}

func (p *printer) write(s string) {
	if s == "" {
		return
	}
	if p.bol {
		p.out.WriteString(p.prefix())
		p.bol = false
	}
	p.out.WriteString(s)
}

// newline ends the current line. At the start of a line it emits a line
// holding only the container prefixes.
func (p *printer) newline() {
	if p.bol {
		p.out.WriteString(strings.TrimRight(p.prefix(), " "))
	}
	p.out.WriteByte('\n')
	p.bol = true
}

func (p *printer) lineBreak(hard bool) {
	if p.flat {
		p.write(" ")
		return
	}
	if hard {
		p.write("\\")
	}
	p.newline()
}

// openMarker returns the first byte of the innermost container prefix not
// yet written.
func (p *printer) openMarker() byte {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if in := p.stack[i]; !in.used && in.first != "" {
			return in.first[0]
		}
	}
	return 0
}

// skip reports whether n prints nothing. goldmark leaves an empty text
// block where a paragraph held only link reference definitions.
func skip(n ast.Node) bool {
	switch n.(type) {
	case *extast.FootnoteBacklink:
		return true
	case *ast.Paragraph, *ast.TextBlock:
		return n.Lines().Len() == 0 && n.FirstChild() == nil
	}
	return false
}

// hollow reports whether a container has no printable children.
func hollow(n ast.Node) bool {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if !skip(c) {
			return false
		}
	}
	return true
}

// children prints the block children of parent, separated by a blank line
// when loose is set.
func (p *printer) children(parent ast.Node, loose bool) {
	var prev *ast.List
	alt := false
	first := true
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		if skip(c) {
			continue
		}
		if !first && loose {
			p.newline()
		}
		first = false

		l, ok := c.(*ast.List)
		if !ok {
			prev = nil
			p.block(c)
			continue
		}
		alt = prev != nil && prev.IsOrdered() == l.IsOrdered() && !alt
		p.list(l, alt)
		prev = l
	}
}

func (p *printer) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Paragraph:
		p.inlines(n)
		p.newline()
	case *ast.TextBlock:
		p.inlines(n)
		p.newline()
	case *ast.Heading:
		p.heading(n)
	case *ast.ThematicBreak:
		if p.openMarker() == '-' {
			p.write("***")
		} else {
			p.write("---")
		}
		p.newline()
	case *ast.CodeBlock:
		p.code("", lineValues(n.Lines(), p.src), true)
	case *ast.FencedCodeBlock:
		var info string
		if n.Info != nil {
			seg := n.Info.Segment
			info = strings.TrimSpace(string(seg.Value(p.src)))
		}
		p.code(info, lineValues(n.Lines(), p.src), false)
	case *ast.HTMLBlock:
		for _, line := range lineValues(n.Lines(), p.src) {
			p.write(line)
			p.newline()
		}
		if n.HasClosure() {
			seg := n.ClosureLine
			p.write(strings.TrimRight(string(seg.Value(p.src)), "\n"))
			p.newline()
		}
	case *ast.Blockquote:
		p.push("> ", "> ")
		if hollow(n) {
			p.newline()
		} else {
			p.children(n, true)
		}
		p.pop()
	case *extast.Table:
		p.table(n)
	case *extast.FootnoteList:
		p.children(n, true)
	case *extast.Footnote:
		p.push("[^"+string(n.Ref)+"]: ", "    ")
		if hollow(n) {
			p.newline()
		} else {
			p.children(n, true)
		}
		p.pop()
	default:
		if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
			for _, line := range lineValues(n.Lines(), p.src) {
				p.write(line)
				p.newline()
			}
			return
		}
		p.children(n, true)
	}
}

func lineValues(lines *text.Segments, src []byte) []string {
	out := make([]string, lines.Len())
	for i := range out {
		seg := lines.At(i)
		out[i] = strings.TrimRight(string(seg.Value(src)), "\n")
	}
	return out
}

func (p *printer) heading(h *ast.Heading) {
	s := p.sub()
	s.inlines(h)
	title := strings.TrimSpace(s.String())

	if p.lay.setext && h.Level <= 2 && title != "" {
		p.write(title)
		p.newline()
		underline := "="
		if h.Level == 2 {
			underline = "-"
		}
		p.write(strings.Repeat(underline, max(3, displayWidth(title))))
		p.newline()
		return
	}

	p.write(strings.Repeat("#", h.Level))
	if title != "" {
		p.write(" " + title)
	}
	p.newline()
}

// code prints a fenced block. Indented blocks lose their trailing blank
// lines, which never belong to the content.
func (p *printer) code(info string, body []string, indented bool) {
	if indented {
		for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
			body = body[:len(body)-1]
		}
	}
	if info == "" {
		info = p.lay.lang
	}
	mark := byte('`')
	if strings.ContainsRune(info, '`') {
		mark = '~'
	}
	width := 3
	for _, line := range body {
		if run := longestRun(line, mark) + 1; run > width {
			width = run
		}
	}
	fence := strings.Repeat(string(mark), width)

	p.write(fence + info)
	p.newline()
	for _, line := range body {
		p.write(line)
		p.newline()
	}
	p.write(fence)
	p.newline()
}

func longestRun(s string, c byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			best = max(best, cur)
		} else {
			cur = 0
		}
	}
	return best
}

func (p *printer) list(l *ast.List, alt bool) {
	num := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		if item != l.FirstChild() && !l.IsTight {
			p.newline()
		}
		marker := p.marker(l, alt, num)
		p.push(marker+p.lay.gap, strings.Repeat(" ", len(marker)+len(p.lay.gap)))
		if hollow(item) {
			p.newline()
		} else {
			p.children(item, !l.IsTight)
		}
		p.pop()
		num++
	}
}

func (p *printer) marker(l *ast.List, alt bool, num int) string {
	if l.IsOrdered() {
		if alt {
			return strconv.Itoa(num) + ")"
		}
		return strconv.Itoa(num) + "."
	}
	b := p.lay.bullet
	if alt {
		if b == '*' {
			b = '-'
		} else {
			b = '*'
		}
	}
	return string(b)
}

// definitions appends the link reference definitions of the document. Links
// are printed inline, so the definitions only keep the source lossless.
func (p *printer) definitions(refs []parser.Reference) {
	if len(refs) == 0 {
		return
	}
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	if p.out.Len() > 0 {
		p.newline()
	}
	for _, ref := range refs {
		p.write("[" + string(ref.Label()) + "]: " + linkDestination(ref.Destination()) + linkTitle(ref.Title()))
		p.newline()
	}
}

// footnoteRefs maps footnote indexes to their labels.
func footnoteRefs(doc ast.Node) map[int][]byte {
	refs := make(map[int][]byte)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fn, ok := n.(*extast.Footnote); ok && entering {
			refs[fn.Index] = fn.Ref
		}
		return ast.WalkContinue, nil
	})
	return refs
}
