package host

import (
	"testing"

	"github.com/neovim/go-client/nvim"
	"github.com/stretchr/testify/assert"

	"go-markdown-fmt/internal/lint"
)

func TestBufferText(t *testing.T) {
	assert.Equal(t, "", bufferText([][]byte{[]byte("")}))
	assert.Equal(t, "", bufferText(nil))
	assert.Equal(t, "# Title\n\nbody\n", bufferText([][]byte{[]byte("# Title"), []byte(""), []byte("body")}))
}

func TestTextLines(t *testing.T) {
	assert.Equal(t, [][]byte{[]byte("# Title"), []byte(""), []byte("body")}, textLines("# Title\n\nbody\n"))
	assert.Equal(t, [][]byte{[]byte("")}, textLines(""))
}

func TestBufferRoundTrip(t *testing.T) {
	doc := "- a\n- b\n\n> quote\n"
	assert.Equal(t, doc, bufferText(textLines(doc)))
}

func TestVimQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, vimQuote("plain"))
	assert.Equal(t, `'it''s'`, vimQuote("it's"))
	assert.Equal(t, `''`, vimQuote(""))
}

func TestMessageIsOneChunk(t *testing.T) {
	assert.Equal(t, []nvim.TextChunk{{Text: "line one\nline two"}}, message("line one\nline two"))
	assert.Equal(t, []nvim.TextChunk{{Text: "42"}}, message(42))
}

func TestQuickfixItems(t *testing.T) {
	vs := []lint.Violation{
		{Rule: "MD018", Line: 1, Message: "no space after hash on atx heading"},
		{Rule: "MD012", Line: 4, Message: "multiple consecutive blank lines"},
	}
	items := quickfix(nvim.Buffer(3), vs)

	assert.Equal(t, []map[string]interface{}{
		{"bufnr": 3, "lnum": 1, "type": "W", "text": "MD018 no space after hash on atx heading"},
		{"bufnr": 3, "lnum": 4, "type": "W", "text": "MD012 multiple consecutive blank lines"},
	}, items)
	assert.Empty(t, quickfix(nvim.Buffer(3), nil))
}
