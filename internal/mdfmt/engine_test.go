package mdfmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-markdown-fmt/internal/contracts"
	"go-markdown-fmt/internal/format"
)

func allPlugins() contracts.FormatOptions {
	return format.NewService(nil, format.DefaultConfig()).Options()
}

func formatWith(t *testing.T, style Style, input string) string {
	t.Helper()
	got, err := New(style).Format(context.Background(), input, allPlugins())
	require.NoError(t, err)
	return got
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"blank lines only", "\n\n\n", ""},
		{"heading missing space", "#Title\nbody", "# Title\n\nbody\n"},
		{"already canonical", "# Title\n\nBody text.\n", "# Title\n\nBody text.\n"},
		{"crlf", "# Title\r\n\r\nBody\r\n", "# Title\n\nBody\n"},
		{"setext to atx", "Title\n=====\n\nSub\n---\n", "# Title\n\n## Sub\n"},
		{"trailing newlines collapsed", "text\n\n\n\n", "text\n"},
		{"blocks separated", "# A\ntext\n***\nmore", "# A\n\ntext\n\n---\n\nmore\n"},
		{"bullets", "* a\n* b\n", "- a\n- b\n"},
		{"adjacent lists alternate", "* a\n* b\n+ c\n", "- a\n- b\n\n* c\n"},
		{"ordered delimiter", "1) one\n2) two\n", "1. one\n2. two\n"},
		{"ordered renumbered", "1. a\n1. b\n1. c\n", "1. a\n2. b\n3. c\n"},
		{"ordered start kept", "3. a\n4. b\n", "3. a\n4. b\n"},
		{"nested list", "- a\n    - b\n", "- a\n  - b\n"},
		{"loose list", "- a\n\n- b\n", "- a\n\n- b\n"},
		{"empty item", "- a\n-\n- c\n", "- a\n-\n- c\n"},
		{"emphasis", "_a_ and __b__\n", "*a* and **b**\n"},
		{"hard break", "a  \nb\n", "a\\\nb\n"},
		{"soft break", "a\nb\n", "a\nb\n"},
		{"indented code", "    code\n", "```\ncode\n```\n"},
		{"fenced code", "~~~go\nfmt.Println()\n~~~\n", "```go\nfmt.Println()\n```\n"},
		{"fence longer than content", "~~~\n```\n~~~\n", "````\n```\n````\n"},
		{"blockquote", ">quote\n>more\n", "> quote\n> more\n"},
		{"blockquote paragraphs", "> a\n>\n> b\n", "> a\n>\n> b\n"},
		{"thematic break", "___\n", "---\n"},
		{"html block", "<div>\nhi\n</div>\n", "<div>\nhi\n</div>\n"},
		{"code span", "`a`\n", "`a`\n"},
		{"code span with backtick", "``a`b``\n", "``a`b``\n"},
		{"link", "[text](http://x.com \"T\")\n", "[text](http://x.com \"T\")\n"},
		{"autolink", "<https://a.b>\n", "<https://a.b>\n"},
		{"image", "![alt](img.png)\n", "![alt](img.png)\n"},
		{"escapes preserved", "\\# not a heading\n", "\\# not a heading\n"},
		{"reference link", "[a][r]\n\n[r]: http://x\n", "[a](http://x)\n\n[r]: http://x\n"},
		{"definition between paragraphs", "a\n\n[r]: /u\n\nb\n", "a\n\nb\n\n[r]: /u\n"},
		{"definition only", "[r]: /u\n", "[r]: /u\n"},
		{"definition in blockquote", "> [r]: /u\n", ">\n\n[r]: /u\n"},
		{"definition beside quoted text", "> a\n>\n> [r]: /u\n", "> a\n\n[r]: /u\n"},
		{"definition in list item", "- a\n- [r]: /u\n", "- a\n-\n\n[r]: /u\n"},
		{"continuation dash", "foo\n    - bar\n", "foo\n\\- bar\n"},
		{"continuation hash", "foo\n    # bar\n", "foo\n\\# bar\n"},
		{"continuation quote", "foo\n    > bar\n", "foo\n\\> bar\n"},
		{"continuation ordered", "foo\n    1. bar\n", "foo\n1\\. bar\n"},
		{"continuation plain", "foo\n    bar\n", "foo\nbar\n"},
		{"strikethrough", "~~gone~~\n", "~~gone~~\n"},
		{"task list", "- [x] done\n- [ ] todo\n", "- [x] done\n- [ ] todo\n"},
		{"front matter", "---\ntitle: x\n---\n#Title\n", "---\ntitle: x\n---\n\n# Title\n"},
		{"heading space skips fences", "```\n#notheading\n```\n", "```\n#notheading\n```\n"},
		{"footnote", "Text[^1].\n\n[^1]: Note.\n", "Text[^1].\n\n[^1]: Note.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatWith(t, DefaultStyle(), tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, formatWith(t, DefaultStyle(), got), "second pass")
		})
	}
}

func TestFormatTable(t *testing.T) {
	input := "|a|b|\n|-|:-:|\n|long cell|x|\n"
	want := "| a         |  b  |\n" +
		"| --------- | :-: |\n" +
		"| long cell |  x  |\n"

	assert.Equal(t, want, formatWith(t, DefaultStyle(), input))
}

func TestFormatIsIdempotent(t *testing.T) {
	input := `---
title: doc
---
#Intro
Some *text* with __bold__ and ` + "`code`" + `.

* one
* two
    1. nested
    2. nested again

> quoted
> - item

| x | y |
|---|--:|
| 1 | 22 |

Note[^n].

[^n]: The note.
`
	once := formatWith(t, DefaultStyle(), input)
	twice := formatWith(t, DefaultStyle(), once)
	assert.Equal(t, once, twice)
}

func TestFormatStyles(t *testing.T) {
	tests := []struct {
		name  string
		style Style
		input string
		want  string
	}{
		{
			name:  "setext headings",
			style: Style{Headings: HeadingSetext},
			input: "# Title\n\n## Sub\n\n### Deep\n",
			want:  "Title\n=====\n\nSub\n---\n\n### Deep\n",
		},
		{
			name:  "consistent headings follow setext",
			style: Style{Headings: HeadingConsistent},
			input: "Title\n===\n\n# Other\n",
			want:  "Title\n=====\n\nOther\n=====\n",
		},
		{
			name:  "consistent headings follow atx",
			style: Style{Headings: HeadingConsistent},
			input: "# Title\n\nOther\n===\n",
			want:  "# Title\n\n# Other\n",
		},
		{
			name:  "plus bullets",
			style: Style{UnorderedLists: ListPlus},
			input: "- a\n- b\n",
			want:  "+ a\n+ b\n",
		},
		{
			name:  "consistent bullets",
			style: Style{UnorderedLists: ListConsistent},
			input: "* a\n\ntext\n\n- b\n",
			want:  "* a\n\ntext\n\n* b\n",
		},
		{
			name:  "underscore bold",
			style: Style{Bold: BoldUnderscore},
			input: "**a**\n",
			want:  "__a__\n",
		},
		{
			name:  "consistent bold",
			style: Style{Bold: BoldConsistent},
			input: "__a__ and **b**\n",
			want:  "__a__ and __b__\n",
		},
		{
			name:  "spaces after marker",
			style: Style{SpacesAfterListMarker: 3},
			input: "- a\n    - b\n",
			want:  "-   a\n    -   b\n",
		},
		{
			name:  "default code language",
			style: Style{DefaultCodeLanguage: "text"},
			input: "```\nx\n```\n\n```go\ny\n```\n",
			want:  "```text\nx\n```\n\n```go\ny\n```\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatWith(t, tt.style, tt.input))
		})
	}
}

func TestFormatWithoutPlugins(t *testing.T) {
	got, err := New(DefaultStyle()).Format(context.Background(), "#Title\n", contracts.FormatOptions{Parser: Parser})
	require.NoError(t, err)
	assert.Equal(t, "#Title\n", got, "heading-space is a plugin")
}

func TestFormatRejectsUnknownOptions(t *testing.T) {
	engine := New(DefaultStyle())

	_, err := engine.Format(context.Background(), "x", contracts.FormatOptions{Parser: "commonmark"})
	assert.ErrorIs(t, err, ErrUnsupportedParser)

	_, err = engine.Format(context.Background(), "x", contracts.FormatOptions{Parser: Parser, Plugins: []string{"mermaid"}})
	assert.ErrorIs(t, err, ErrUnknownPlugin)
}

func TestFormatHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultStyle()).Format(ctx, "x", allPlugins())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFixHeadingSpace(t *testing.T) {
	tests := map[string]string{
		"#a":               "# a",
		"###### six":       "###### six",
		"####### seven":    "####### seven",
		"> ##quoted":       "> ## quoted",
		"   #indented":     "   # indented",
		"text #inline":     "text #inline",
		"#":                "#",
		"~~~\n#x\n~~~\n#y": "~~~\n#x\n~~~\n# y",
	}
	for input, want := range tests {
		assert.Equal(t, want, string(fixHeadingSpace([]byte(input))), input)
	}
}

func TestSplitFrontMatter(t *testing.T) {
	front, rest := splitFrontMatter([]byte("---\na: 1\n...\n\nbody\n"))
	assert.Equal(t, "---\na: 1\n...\n", string(front))
	assert.Equal(t, "body\n", string(rest))

	front, rest = splitFrontMatter([]byte("---\nunterminated\n"))
	assert.Nil(t, front)
	assert.Equal(t, "---\nunterminated\n", string(rest))
}
