// Package lint reports markdownlint rule violations in Markdown documents.
//
// Rules run over the goldmark AST and over the raw source lines. Lines inside
// code blocks and front matter are never checked by the line rules.
package lint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"go-markdown-fmt/internal/mdfmt"
)

// ErrUnknownRule is returned for a disabled rule code that does not exist.
var ErrUnknownRule = errors.New("lint: unknown rule")

// Violation is one rule failure. Line is 1-based.
type Violation struct {
	Rule    string `json:"rule"`
	Line    int    `json:"line"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%d: %s %s", v.Line, v.Rule, v.Message)
}

// Rule is a single check.
type Rule struct {
	Code        string
	Description string
	check       func(d *document) []Violation
}

// Config selects the expected style and the rules to skip.
type Config struct {
	Style   mdfmt.Style
	Disable []string
	// AllowedHTML lists element names MD033 accepts.
	AllowedHTML []string
}

// Linter checks documents against the enabled rules. It is safe for
// concurrent use.
type Linter struct {
	config Config
	md     goldmark.Markdown
	rules  []Rule
}

// New returns a Linter running every rule not named in cfg.Disable.
func New(cfg Config) (*Linter, error) {
	known := make(map[string]bool)
	for _, r := range Rules() {
		known[r.Code] = true
	}
	disabled := make(map[string]bool, len(cfg.Disable))
	for _, code := range cfg.Disable {
		if !known[code] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRule, code)
		}
		disabled[code] = true
	}

	l := &Linter{
		config: cfg,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
	for _, r := range Rules() {
		if !disabled[r.Code] {
			l.rules = append(l.rules, r)
		}
	}
	return l, nil
}

// Lint returns the violations in content ordered by line, then rule.
func (l *Linter) Lint(ctx context.Context, content string) ([]Violation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := l.parse(content)

	var out []Violation
	for _, r := range l.rules {
		for _, v := range r.check(d) {
			v.Rule = r.Code
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Rule < out[j].Rule
	})
	return out, nil
}

type fence struct {
	open, close int // close is 0 for a fence left open
}

// document is one parsed input. Line numbers are 1-based.
type document struct {
	config Config
	src    []byte
	lines  []string
	starts []int
	front  int
	code   []bool
	fences []fence
	root   ast.Node
}

var fenceLine = regexp.MustCompile("^ {0,3}(?:> ?)*(`{3,}|~{3,})(.*)$")

func (l *Linter) parse(content string) *document {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	d := &document{config: l.config}
	if body := strings.TrimSuffix(content, "\n"); body != "" {
		d.lines = strings.Split(body, "\n")
	}
	d.starts = make([]int, len(d.lines))
	off := 0
	for i, line := range d.lines {
		d.starts[i] = off
		off += len(line) + 1
	}

	// Front matter is blanked so goldmark does not read it as a heading.
	d.front = frontMatterLines(d.lines)
	d.src = []byte(content)
	for i := 0; i < d.front; i++ {
		for j := d.starts[i]; j < d.starts[i]+len(d.lines[i]); j++ {
			d.src[j] = ' '
		}
	}
	d.root = l.md.Parser().Parse(text.NewReader(d.src))

	d.code = make([]bool, len(d.lines)+2)
	for i := 1; i <= d.front; i++ {
		d.code[i] = true
	}
	d.fences = findFences(d.lines, d.front)
	for _, f := range d.fences {
		end := f.close
		if end == 0 {
			end = len(d.lines)
		}
		for i := f.open; i <= end; i++ {
			d.code[i] = true
		}
	}
	d.walk(func(n ast.Node) {
		if cb, ok := n.(*ast.CodeBlock); ok {
			for i := 0; i < cb.Lines().Len(); i++ {
				d.code[d.lineOf(cb.Lines().At(i).Start)] = true
			}
		}
	})
	return d
}

func frontMatterLines(lines []string) int {
	if len(lines) == 0 || lines[0] != "---" {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] == "---" || lines[i] == "..." {
			return i + 1
		}
	}
	return 0
}

func findFences(lines []string, from int) []fence {
	var out []fence
	open := false
	var mark string
	for i := from; i < len(lines); i++ {
		m := fenceLine.FindStringSubmatch(lines[i])
		if !open {
			if m == nil || (m[1][0] == '`' && strings.Contains(m[2], "`")) {
				continue
			}
			out = append(out, fence{open: i + 1})
			open, mark = true, m[1]
			continue
		}
		if m != nil && m[1][0] == mark[0] && len(m[1]) >= len(mark) && strings.TrimSpace(m[2]) == "" {
			out[len(out)-1].close = i + 1
			open = false
		}
	}
	return out
}

func (d *document) walk(fn func(ast.Node)) {
	_ = ast.Walk(d.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			fn(n)
		}
		return ast.WalkContinue, nil
	})
}

func (d *document) lineOf(offset int) int {
	return sort.Search(len(d.starts), func(i int) bool { return d.starts[i] > offset })
}

func (d *document) line(n int) string {
	if n < 1 || n > len(d.lines) {
		return ""
	}
	return d.lines[n-1]
}

// blank reports whether line n is empty apart from blockquote markers. Lines
// outside the document count as blank.
func (d *document) blank(n int) bool {
	return strings.Trim(d.line(n), " \t>") == ""
}

// textLines yields every line the line rules may inspect.
func (d *document) textLines(fn func(n int, line string)) {
	for i, line := range d.lines {
		if !d.code[i+1] {
			fn(i+1, line)
		}
	}
}

// start returns the source offset of the first content of n.
func (d *document) start(n ast.Node) (int, bool) {
	off := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() == ast.TypeBlock && c.Lines().Len() > 0 {
			off = c.Lines().At(0).Start
			return ast.WalkStop, nil
		}
		if t, ok := c.(*ast.Text); ok {
			off = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return off, off >= 0
}

func (d *document) startLine(n ast.Node) (int, bool) {
	off, ok := d.start(n)
	if !ok {
		return 0, false
	}
	return d.lineOf(off), true
}

func (d *document) headings() []*ast.Heading {
	var out []*ast.Heading
	d.walk(func(n ast.Node) {
		if h, ok := n.(*ast.Heading); ok {
			out = append(out, h)
		}
	})
	return out
}

// heading describes a heading with content.
type heading struct {
	node       *ast.Heading
	start, end int
	atx        bool
	text       string
}

func (d *document) describe(h *ast.Heading) (heading, bool) {
	lines := h.Lines()
	if lines.Len() == 0 {
		return heading{}, false
	}
	first := lines.At(0)
	start := d.lineOf(first.Start)
	lineStart := d.starts[start-1]
	atx := strings.Contains(string(d.src[lineStart:first.Start]), "#")

	parts := make([]string, lines.Len())
	for i := range parts {
		seg := lines.At(i)
		parts[i] = strings.TrimSpace(string(seg.Value(d.src)))
	}
	end := start
	if !atx {
		end = d.lineOf(lines.At(lines.Len()-1).Start) + 1
	}
	return heading{node: h, start: start, end: end, atx: atx, text: strings.Join(parts, " ")}, true
}
