package lint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"

	"go-markdown-fmt/internal/mdfmt"
)

// Rules returns every rule in code order.
func Rules() []Rule {
	return []Rule{
		{"MD001", "Heading levels increment by one level at a time", md001},
		{"MD003", "Heading style", md003},
		{"MD004", "Unordered list style", md004},
		{"MD009", "Trailing spaces", md009},
		{"MD010", "Hard tabs", md010},
		{"MD011", "Reversed link syntax", md011},
		{"MD012", "Multiple consecutive blank lines", md012},
		{"MD014", "Dollar signs before commands without output", md014},
		{"MD018", "No space after hash on atx heading", md018},
		{"MD019", "Multiple spaces after hash on atx heading", md019},
		{"MD020", "No space inside hashes on closed atx heading", md020},
		{"MD021", "Multiple spaces inside hashes on closed atx heading", md021},
		{"MD022", "Headings surrounded by blank lines", md022},
		{"MD023", "Headings start at the beginning of the line", md023},
		{"MD024", "Multiple headings with the same content", md024},
		{"MD025", "Multiple top-level headings", md025},
		{"MD026", "Trailing punctuation in heading", md026},
		{"MD027", "Multiple spaces after blockquote symbol", md027},
		{"MD028", "Blank line inside blockquote", md028},
		{"MD029", "Ordered list item prefix", md029},
		{"MD030", "Spaces after list markers", md030},
		{"MD031", "Fenced code blocks surrounded by blank lines", md031},
		{"MD033", "Inline HTML", md033},
		{"MD046", "Code block style", md046},
		{"MD051", "Link fragments are valid", md051},
	}
}

var (
	reversedLink  = regexp.MustCompile(`(^|[^\]])\(([^()\n]+)\)\[([^\[\]\n]+)\]`)
	atxNoSpace    = regexp.MustCompile(`^ {0,3}#{1,6}[^#\s]`)
	atxWideSpace  = regexp.MustCompile(`^ {0,3}#{1,6}[ \t]{2,}\S`)
	closedTight   = regexp.MustCompile(`^ {0,3}#{1,6}[^#\s].*[^#\s\\]#+[ \t]*$`)
	closedWide    = regexp.MustCompile(`^ {0,3}#{1,6}(?:[ \t]{2,}\S.*\S[ \t]+|[ \t]+\S(?:.*\S)?[ \t]{2,})#+[ \t]*$`)
	closedATX     = regexp.MustCompile(`^ {0,3}#{1,6}[ \t]+.*\S[ \t]+#+[ \t]*$`)
	quoteWide     = regexp.MustCompile(`^ {0,3}(?:> ?)*>[ \t]{2,4}[^ \t]`)
	containerHead = regexp.MustCompile(`^[ \t>]*`)
	htmlTag       = regexp.MustCompile(`^<([A-Za-z][A-Za-z0-9-]*)`)
	htmlAnchor    = regexp.MustCompile(`\b(?:id|name)\s*=\s*["']([^"']+)["']`)
)

func md001(d *document) []Violation {
	var out []Violation
	prev := 0
	for _, n := range d.headings() {
		if h, ok := d.describe(n); ok && prev > 0 && n.Level > prev+1 {
			out = append(out, Violation{
				Line:    h.start,
				Message: fmt.Sprintf("heading level jumps from h%d to h%d", prev, n.Level),
				Fix:     fmt.Sprintf("use h%d or lower", prev+1),
			})
		}
		prev = n.Level
	}
	return out
}

func md003(d *document) []Violation {
	var hs []heading
	for _, n := range d.headings() {
		if h, ok := d.describe(n); ok {
			hs = append(hs, h)
		}
	}
	if len(hs) == 0 {
		return nil
	}

	var setext bool
	switch d.config.Style.Headings {
	case mdfmt.HeadingSetext:
		setext = true
	case mdfmt.HeadingConsistent:
		setext = !hs[0].atx
	}

	var out []Violation
	for _, h := range hs {
		// Only levels 1 and 2 have a setext form.
		if setext && h.node.Level > 2 {
			continue
		}
		if h.atx == !setext {
			continue
		}
		want, got := "atx", "setext"
		if setext {
			want, got = got, want
		}
		out = append(out, Violation{
			Line:    h.start,
			Message: fmt.Sprintf("expected %s heading, got %s", want, got),
		})
	}
	return out
}

func md004(d *document) []Violation {
	var lists []*ast.List
	d.walk(func(n ast.Node) {
		l, ok := n.(*ast.List)
		if !ok || l.IsOrdered() {
			return
		}
		// Adjacent lists need different bullets to stay apart.
		if prev, ok := l.PreviousSibling().(*ast.List); ok && !prev.IsOrdered() {
			return
		}
		lists = append(lists, l)
	})
	if len(lists) == 0 {
		return nil
	}

	var want byte
	switch d.config.Style.UnorderedLists {
	case mdfmt.ListAsterisk:
		want = '*'
	case mdfmt.ListPlus:
		want = '+'
	case mdfmt.ListConsistent:
		want = lists[0].Marker
	default:
		want = '-'
	}

	var out []Violation
	for _, l := range lists {
		if l.Marker == want {
			continue
		}
		if line, ok := d.startLine(l); ok {
			out = append(out, Violation{
				Line:    line,
				Message: fmt.Sprintf("expected %q list marker, got %q", want, l.Marker),
			})
		}
	}
	return out
}

func md009(d *document) []Violation {
	var out []Violation
	d.textLines(func(n int, line string) {
		if strings.HasSuffix(line, " ") {
			out = append(out, Violation{Line: n, Message: "trailing spaces", Fix: "remove the trailing spaces"})
		}
	})
	return out
}

func md010(d *document) []Violation {
	var out []Violation
	d.textLines(func(n int, line string) {
		if strings.ContainsRune(line, '\t') {
			out = append(out, Violation{Line: n, Message: "hard tab", Fix: "replace tabs with spaces"})
		}
	})
	return out
}

func md011(d *document) []Violation {
	var out []Violation
	d.textLines(func(n int, line string) {
		for _, m := range reversedLink.FindAllStringSubmatch(line, -1) {
			if strings.HasPrefix(m[3], "^") {
				continue // footnote reference after a parenthesis
			}
			out = append(out, Violation{
				Line:    n,
				Message: fmt.Sprintf("reversed link syntax (%s)[%s]", m[2], m[3]),
				Fix:     fmt.Sprintf("[%s](%s)", m[2], m[3]),
			})
		}
	})
	return out
}

func md012(d *document) []Violation {
	var out []Violation
	run := 0
	for i, line := range d.lines {
		n := i + 1
		if d.code[n] || strings.TrimSpace(line) != "" {
			run = 0
			continue
		}
		run++
		if run == 2 {
			out = append(out, Violation{Line: n, Message: "multiple consecutive blank lines", Fix: "keep a single blank line"})
		}
	}
	return out
}

func md014(d *document) []Violation {
	var out []Violation
	d.walk(func(n ast.Node) {
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
		default:
			return
		}
		lines := n.Lines()
		commands := 0
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			v := strings.TrimSpace(string(seg.Value(d.src)))
			if v == "" {
				continue
			}
			if !strings.HasPrefix(v, "$") {
				return
			}
			commands++
		}
		if commands == 0 {
			return
		}
		line := d.lineOf(lines.At(0).Start)
		if _, fenced := n.(*ast.FencedCodeBlock); fenced {
			line--
		}
		out = append(out, Violation{
			Line:    line,
			Message: "every line of the code block starts with a dollar sign",
			Fix:     "drop the dollar signs or show the command output",
		})
	})
	return out
}

func md018(d *document) []Violation {
	var out []Violation
	d.textLines(func(n int, line string) {
		if atxNoSpace.MatchString(line) && !closedTight.MatchString(line) {
			out = append(out, Violation{Line: n, Message: "no space after hash on atx heading", Fix: "add a space after the hashes"})
		}
	})
	return out
}

func md019(d *document) []Violation {
	var out []Violation
	d.textLines(func(n int, line string) {
		if atxWideSpace.MatchString(line) && !closedATX.MatchString(line) {
			out = append(out, Violation{Line: n, Message: "multiple spaces after hash on atx heading", Fix: "keep a single space after the hashes"})
		}
	})
	return out
}

func md020(d *document) []Violation {
	var out []Violation
	d.textLines(func(n int, line string) {
		if closedTight.MatchString(line) {
			out = append(out, Violation{Line: n, Message: "no space inside hashes on closed atx heading", Fix: "add a space inside the hashes"})
		}
	})
	return out
}

func md021(d *document) []Violation {
	var out []Violation
	d.textLines(func(n int, line string) {
		if closedWide.MatchString(line) {
			out = append(out, Violation{Line: n, Message: "multiple spaces inside hashes on closed atx heading", Fix: "keep a single space inside the hashes"})
		}
	})
	return out
}

func md022(d *document) []Violation {
	var out []Violation
	for _, n := range d.headings() {
		if n.Parent() == nil || n.Parent().Kind() != ast.KindDocument {
			continue
		}
		h, ok := d.describe(n)
		if !ok {
			continue
		}
		before := h.start-1 <= d.front || d.blank(h.start-1)
		if !before || !d.blank(h.end+1) {
			out = append(out, Violation{
				Line:    h.start,
				Message: "heading is not surrounded by blank lines",
				Fix:     "add a blank line before and after the heading",
			})
		}
	}
	return out
}

func md023(d *document) []Violation {
	var out []Violation
	for _, n := range d.headings() {
		if n.Parent() == nil || n.Parent().Kind() != ast.KindDocument {
			continue
		}
		h, ok := d.describe(n)
		if !ok {
			continue
		}
		if line := d.line(h.start); line != "" && (line[0] == ' ' || line[0] == '\t') {
			out = append(out, Violation{Line: h.start, Message: "heading is indented", Fix: "start the heading at the beginning of the line"})
		}
	}
	return out
}

func md024(d *document) []Violation {
	var out []Violation
	seen := make(map[string]bool)
	for _, n := range d.headings() {
		h, ok := d.describe(n)
		if !ok {
			continue
		}
		if seen[h.text] {
			out = append(out, Violation{Line: h.start, Message: fmt.Sprintf("duplicate heading %q", h.text)})
			continue
		}
		seen[h.text] = true
	}
	return out
}

func md025(d *document) []Violation {
	var out []Violation
	first := true
	for _, n := range d.headings() {
		if n.Level != 1 {
			continue
		}
		if first {
			first = false
			continue
		}
		if h, ok := d.describe(n); ok {
			out = append(out, Violation{Line: h.start, Message: "multiple top-level headings", Fix: "keep a single h1 as the document title"})
		}
	}
	return out
}

func md026(d *document) []Violation {
	var out []Violation
	for _, n := range d.headings() {
		h, ok := d.describe(n)
		if !ok || h.text == "" {
			continue
		}
		if last := h.text[len(h.text)-1]; strings.IndexByte(".,;:!", last) >= 0 {
			out = append(out, Violation{Line: h.start, Message: fmt.Sprintf("trailing punctuation %q in heading", last)})
		}
	}
	return out
}

func md027(d *document) []Violation {
	var out []Violation
	d.textLines(func(n int, line string) {
		if quoteWide.MatchString(line) {
			out = append(out, Violation{Line: n, Message: "multiple spaces after blockquote symbol", Fix: "keep a single space after >"})
		}
	})
	return out
}

func md028(d *document) []Violation {
	var out []Violation
	d.walk(func(n ast.Node) {
		if _, ok := n.(*ast.Blockquote); !ok {
			return
		}
		next, ok := n.NextSibling().(*ast.Blockquote)
		if !ok {
			return
		}
		if line, ok := d.startLine(next); ok {
			out = append(out, Violation{
				Line:    line - 1,
				Message: "blank line inside blockquote",
				Fix:     "remove the blank line or put text between the blockquotes",
			})
		}
	})
	return out
}

// itemMarker returns the marker written on the first line of item and the
// number of spaces after it.
func (d *document) itemMarker(l *ast.List, item ast.Node) (marker string, gap int, ok bool) {
	line, ok := d.startLine(item)
	if !ok {
		return "", 0, false
	}
	s := d.line(line)
	s = s[len(containerHead.FindString(s)):]

	i := 0
	if l.IsOrdered() {
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return "", 0, false
		}
	}
	if i >= len(s) || s[i] != l.Marker {
		return "", 0, false
	}
	marker, s = s[:i+1], s[i+1:]
	for gap < len(s) && s[gap] == ' ' {
		gap++
	}
	if gap == len(s) {
		return marker, 0, false
	}
	return marker, gap, true
}

func md029(d *document) []Violation {
	var out []Violation
	d.walk(func(n ast.Node) {
		l, ok := n.(*ast.List)
		if !ok || !l.IsOrdered() {
			return
		}
		type numbered struct {
			num, line int
		}
		var items []numbered
		for item := l.FirstChild(); item != nil; item = item.NextSibling() {
			marker, _, ok := d.itemMarker(l, item)
			if !ok {
				continue
			}
			num, err := strconv.Atoi(marker[:len(marker)-1])
			if err != nil {
				continue
			}
			line, _ := d.startLine(item)
			items = append(items, numbered{num, line})
		}
		if len(items) < 2 {
			return
		}
		same := items[0].num <= 1 && items[1].num == items[0].num
		for i, it := range items {
			want := items[0].num + i
			if same {
				want = items[0].num
			}
			if it.num != want {
				out = append(out, Violation{
					Line:    it.line,
					Message: fmt.Sprintf("ordered list item prefix %d, expected %d", it.num, want),
				})
			}
		}
	})
	return out
}

func md030(d *document) []Violation {
	want := d.config.Style.SpacesAfterListMarker
	if want < 1 {
		want = 1
	}
	want = min(want, mdfmt.MaxSpacesAfterListMarker)

	var out []Violation
	d.walk(func(n ast.Node) {
		l, ok := n.(*ast.List)
		if !ok {
			return
		}
		for item := l.FirstChild(); item != nil; item = item.NextSibling() {
			_, gap, ok := d.itemMarker(l, item)
			// Five or more spaces start indented code inside the item.
			if !ok || gap > 4 || gap == want {
				continue
			}
			line, _ := d.startLine(item)
			out = append(out, Violation{
				Line:    line,
				Message: fmt.Sprintf("expected %d space(s) after list marker, got %d", want, gap),
			})
		}
	})
	return out
}

func md031(d *document) []Violation {
	var out []Violation
	for _, f := range d.fences {
		before := f.open - 1
		ok := before <= d.front || d.blank(before)
		if f.close > 0 && !d.blank(f.close+1) {
			ok = false
		}
		if !ok {
			out = append(out, Violation{
				Line:    f.open,
				Message: "fenced code block is not surrounded by blank lines",
				Fix:     "add a blank line before and after the fence",
			})
		}
	}
	return out
}

func md033(d *document) []Violation {
	allowed := make(map[string]bool, len(d.config.AllowedHTML))
	for _, name := range d.config.AllowedHTML {
		allowed[strings.ToLower(name)] = true
	}

	var out []Violation
	report := func(offset int, value string) {
		m := htmlTag.FindStringSubmatch(strings.TrimSpace(value))
		if m == nil || allowed[strings.ToLower(m[1])] {
			return
		}
		out = append(out, Violation{
			Line:    d.lineOf(offset),
			Message: fmt.Sprintf("inline HTML <%s>", m[1]),
			Fix:     "use Markdown instead of HTML",
		})
	}
	d.walk(func(n ast.Node) {
		switch n := n.(type) {
		case *ast.RawHTML:
			if n.Segments.Len() > 0 {
				seg := n.Segments.At(0)
				report(seg.Start, string(seg.Value(d.src)))
			}
		case *ast.HTMLBlock:
			if n.Lines().Len() > 0 {
				seg := n.Lines().At(0)
				report(seg.Start, string(seg.Value(d.src)))
			}
		}
	})
	return out
}

func md046(d *document) []Violation {
	var out []Violation
	d.walk(func(n ast.Node) {
		if _, ok := n.(*ast.CodeBlock); !ok {
			return
		}
		if line, ok := d.startLine(n); ok {
			out = append(out, Violation{Line: line, Message: "expected fenced code block, got indented", Fix: "wrap the code in a ``` fence"})
		}
	})
	return out
}

func md051(d *document) []Violation {
	anchors := make(map[string]bool)
	var links []*ast.Link
	d.walk(func(n ast.Node) {
		switch n := n.(type) {
		case *ast.Heading:
			if id, ok := n.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok {
					anchors[strings.ToLower(string(b))] = true
				}
			}
		case *ast.Link:
			if len(n.Destination) > 1 && n.Destination[0] == '#' {
				links = append(links, n)
			}
		case *ast.RawHTML:
			for i := 0; i < n.Segments.Len(); i++ {
				seg := n.Segments.At(i)
				addAnchors(anchors, string(seg.Value(d.src)))
			}
		case *ast.HTMLBlock:
			for i := 0; i < n.Lines().Len(); i++ {
				seg := n.Lines().At(i)
				addAnchors(anchors, string(seg.Value(d.src)))
			}
		}
	})

	var out []Violation
	for _, l := range links {
		frag := string(l.Destination[1:])
		if anchors[strings.ToLower(frag)] {
			continue
		}
		if line, ok := d.startLine(l); ok {
			out = append(out, Violation{Line: line, Message: fmt.Sprintf("link fragment #%s matches no heading", frag)})
		}
	}
	return out
}

func addAnchors(anchors map[string]bool, html string) {
	for _, m := range htmlAnchor.FindAllStringSubmatch(html, -1) {
		anchors[strings.ToLower(m[1])] = true
	}
}
