package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragment(t *testing.T) {
	r := NewRenderer(DefaultStyle)

	got, err := r.Fragment([]byte("# Title\n\n- [x] done\n\n| a |\n| - |\n| b |\n"))
	require.NoError(t, err)

	assert.Contains(t, got, `<h1 id="title">Title</h1>`)
	assert.Contains(t, got, `checked=""`)
	assert.Contains(t, got, "<table>")
}

func TestFragmentHighlightsCode(t *testing.T) {
	got, err := NewRenderer(DefaultStyle).Fragment([]byte("```go\nfunc main() {}\n```\n"))
	require.NoError(t, err)

	assert.Contains(t, got, `class="chroma"`)
}

func TestShellHasNoContent(t *testing.T) {
	shell := NewRenderer("no-such-style").Shell()

	assert.Contains(t, shell, `<main id="content"></main>`)
	assert.Contains(t, shell, ".chroma")
	assert.NotContains(t, shell, "{{CSS}}")
}

func TestPage(t *testing.T) {
	page, err := NewRenderer(DefaultStyle).Page([]byte("hello\n"))
	require.NoError(t, err)

	assert.Contains(t, page, `<main id="content"><p>hello</p>`)
}
