// Package render turns Markdown into the HTML shown by the preview.
package render

import (
	"bytes"
	_ "embed"
	"strings"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	alertcallouts "github.com/zmtcreative/gm-alert-callouts"
)

// DefaultStyle is the chroma style used for code blocks.
const DefaultStyle = "github"

//go:embed page.html
var pageTemplate string

// Renderer is a goldmark pipeline with the preview extensions registered.
type Renderer struct {
	md    goldmark.Markdown
	style string
}

// NewRenderer returns a Renderer highlighting code with the named chroma
// style. Unknown names fall back to DefaultStyle.
func NewRenderer(style string) *Renderer {
	if styles.Get(style) == styles.Fallback || style == "" {
		style = DefaultStyle
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			alertcallouts.AlertCallouts,
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Renderer{md: md, style: style}
}

// Fragment renders source to an HTML fragment.
func (r *Renderer) Fragment(source []byte) (string, error) {
	doc := r.md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Page renders source inside the preview page.
func (r *Renderer) Page(source []byte) (string, error) {
	fragment, err := r.Fragment(source)
	if err != nil {
		return "", err
	}
	return r.page(fragment), nil
}

// Shell returns the page with no content. Documents arrive over the
// WebSocket.
func (r *Renderer) Shell() string {
	return r.page("")
}

func (r *Renderer) page(content string) string {
	var css bytes.Buffer
	_ = chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&css, styles.Get(r.style))
	return strings.NewReplacer("{{CSS}}", css.String(), "{{CONTENT}}", content).Replace(pageTemplate)
}
