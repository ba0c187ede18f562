package mdfmt

import (
	"strings"

	"github.com/yuin/goldmark/ast"
)

// HeadingStyle selects how level 1 and 2 headings are written.
type HeadingStyle string

const (
	HeadingATX        HeadingStyle = "atx"
	HeadingSetext     HeadingStyle = "setext"
	HeadingConsistent HeadingStyle = "consistent"
)

// ListStyle selects the bullet of unordered lists.
type ListStyle string

const (
	ListDash       ListStyle = "dash"
	ListAsterisk   ListStyle = "asterisk"
	ListPlus       ListStyle = "plus"
	ListConsistent ListStyle = "consistent"
)

// BoldStyle selects the strong emphasis delimiter.
type BoldStyle string

const (
	BoldAsterisk   BoldStyle = "asterisk"
	BoldUnderscore BoldStyle = "underscore"
	BoldConsistent BoldStyle = "consistent"
)

// MaxSpacesAfterListMarker is the largest gap that still keeps list content
// out of indented code.
const MaxSpacesAfterListMarker = 4

// Style controls the canonical layout. The consistent variants follow the
// first occurrence in the document being formatted.
type Style struct {
	Headings              HeadingStyle
	UnorderedLists        ListStyle
	Bold                  BoldStyle
	SpacesAfterListMarker int
	// DefaultCodeLanguage is written on code blocks without an info string.
	DefaultCodeLanguage string
}

// DefaultStyle returns ATX headings, dash bullets and "**" bold.
func DefaultStyle() Style {
	return Style{
		Headings:              HeadingATX,
		UnorderedLists:        ListDash,
		Bold:                  BoldAsterisk,
		SpacesAfterListMarker: 1,
	}
}

// layout is a Style resolved against one document.
type layout struct {
	setext bool
	bullet byte
	strong string
	gap    string
	lang   string
}

func (s Style) layout(doc ast.Node, src []byte) layout {
	l := layout{bullet: '-', strong: "**", gap: " ", lang: s.DefaultCodeLanguage}
	if n := s.SpacesAfterListMarker; n > 1 {
		l.gap = strings.Repeat(" ", min(n, MaxSpacesAfterListMarker))
	}

	switch s.Headings {
	case HeadingSetext:
		l.setext = true
	case HeadingConsistent:
		l.setext = firstHeadingIsSetext(doc, src)
	}

	switch s.UnorderedLists {
	case ListAsterisk:
		l.bullet = '*'
	case ListPlus:
		l.bullet = '+'
	case ListConsistent:
		if b := firstBullet(doc); b != 0 {
			l.bullet = b
		}
	}

	switch s.Bold {
	case BoldUnderscore:
		l.strong = "__"
	case BoldConsistent:
		if firstStrongUnderscored(doc, src) {
			l.strong = "__"
		}
	}
	return l
}

func find(doc ast.Node, match func(ast.Node) bool) ast.Node {
	var found ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && match(n) {
			found = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

// firstHeadingIsSetext reports whether the first level 1 or 2 heading is
// underlined rather than opened with '#'.
func firstHeadingIsSetext(doc ast.Node, src []byte) bool {
	n := find(doc, func(n ast.Node) bool {
		h, ok := n.(*ast.Heading)
		return ok && h.Level <= 2
	})
	if n == nil || n.Lines().Len() == 0 {
		return false
	}
	start := n.Lines().At(0).Start
	for i := start - 1; i >= 0 && src[i] != '\n'; i-- {
		if src[i] == '#' {
			return false
		}
	}
	return true
}

func firstBullet(doc ast.Node) byte {
	n := find(doc, func(n ast.Node) bool {
		l, ok := n.(*ast.List)
		return ok && !l.IsOrdered()
	})
	if n == nil {
		return 0
	}
	return n.(*ast.List).Marker
}

func firstStrongUnderscored(doc ast.Node, src []byte) bool {
	n := find(doc, func(n ast.Node) bool {
		e, ok := n.(*ast.Emphasis)
		return ok && e.Level == 2
	})
	if n == nil {
		return false
	}
	t := find(n, func(n ast.Node) bool {
		_, ok := n.(*ast.Text)
		return ok
	})
	if t == nil {
		return false
	}
	start := t.(*ast.Text).Segment.Start
	return start >= 2 && string(src[start-2:start]) == "__"
}
