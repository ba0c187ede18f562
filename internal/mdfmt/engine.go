// Package mdfmt prints Markdown back out in a canonical layout.
//
// The document is parsed with goldmark and the AST is walked to emit
// normalized Markdown: one blank line between blocks, ATX headings, a single
// bullet character, fenced code, padded tables. Inline text is copied from the
// source byte for byte, so escapes and entities survive a round trip and the
// output is stable when formatted again.
package mdfmt

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"go-markdown-fmt/internal/contracts"
	"go-markdown-fmt/internal/format"
)

// Parser is the only parser name the engine accepts.
const Parser = string(format.DialectMarkdown)

var (
	// ErrUnsupportedParser is returned for a parser other than "markdown".
	ErrUnsupportedParser = errors.New("mdfmt: unsupported parser")
	// ErrUnknownPlugin is returned for a plugin the engine does not provide.
	ErrUnknownPlugin = errors.New("mdfmt: unknown plugin")
)

// Engine formats Markdown with goldmark.
type Engine struct {
	style Style
}

// New returns an Engine using style.
func New(style Style) *Engine {
	return &Engine{style: style}
}

type plugins struct {
	table         bool
	strikethrough bool
	taskList      bool
	footnote      bool
	frontMatter   bool
	headingSpace  bool
}

func parsePlugins(names []string) (plugins, error) {
	var p plugins
	for _, name := range names {
		switch format.ExtensionID(name) {
		case format.ExtTable:
			p.table = true
		case format.ExtStrikethrough:
			p.strikethrough = true
		case format.ExtTaskList:
			p.taskList = true
		case format.ExtFootnote:
			p.footnote = true
		case format.ExtFrontMatter:
			p.frontMatter = true
		case format.ExtHeadingSpace:
			p.headingSpace = true
		default:
			return plugins{}, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
		}
	}
	return p, nil
}

func (p plugins) extenders() []goldmark.Extender {
	var exts []goldmark.Extender
	if p.table {
		exts = append(exts, extension.Table)
	}
	if p.strikethrough {
		exts = append(exts, extension.Strikethrough)
	}
	if p.taskList {
		exts = append(exts, extension.TaskList)
	}
	if p.footnote {
		exts = append(exts, extension.Footnote)
	}
	return exts
}

// Format implements format.Engine.
func (e *Engine) Format(ctx context.Context, text string, opts contracts.FormatOptions) (string, error) {
	if opts.Parser != Parser {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedParser, opts.Parser)
	}
	enabled, err := parsePlugins(opts.Plugins)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.format([]byte(text), enabled), nil
}

func (e *Engine) format(src []byte, enabled plugins) string {
	src = normalizeNewlines(src)

	var front []byte
	if enabled.frontMatter {
		front, src = splitFrontMatter(src)
	}
	if enabled.headingSpace {
		src = fixHeadingSpace(src)
	}

	md := goldmark.New(goldmark.WithExtensions(enabled.extenders()...))
	pc := parser.NewContext()
	doc := md.Parser().Parse(text.NewReader(src), parser.WithContext(pc))

	p := newPrinter(src, e.style.layout(doc, src), footnoteRefs(doc))
	p.children(doc, true)
	p.definitions(pc.References())

	body := bytes.TrimRight(p.out.Bytes(), " \n")

	var out bytes.Buffer
	out.Write(front)
	if len(front) > 0 && len(body) > 0 {
		out.WriteByte('\n')
	}
	if len(body) > 0 {
		out.Write(body)
		out.WriteByte('\n')
	}
	return out.String()
}
