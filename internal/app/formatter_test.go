package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-markdown-fmt/internal/config"
	"go-markdown-fmt/internal/contracts"
	"go-markdown-fmt/internal/diag"
	"go-markdown-fmt/internal/lint"
)

func newFormatter(t *testing.T, cfg config.Config) *Formatter {
	t.Helper()
	f, err := NewFormatter(cfg, diag.PrinterFunc(func(any) error { return nil }), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFormat(t *testing.T) {
	f := newFormatter(t, config.Default())

	got, err := f.Format(context.Background(), "#Title\nbody")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody\n", got)

	got, err = f.Format(context.Background(), "# Title\n\nBody text.\n")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody text.\n", got)
}

func TestFormatCommonMarkDialect(t *testing.T) {
	cfg := config.Default()
	cfg.Dialect = "commonmark"
	f := newFormatter(t, cfg)

	got, err := f.Format(context.Background(), "Hello\n")
	require.NoError(t, err)
	assert.Contains(t, got, "Hello")
}

func TestCheck(t *testing.T) {
	f := newFormatter(t, config.Default())

	report, err := f.Check(context.Background(), "doc.md", "#Title\nbody\n")
	require.NoError(t, err)
	assert.Equal(t, "doc.md", report.Path)
	assert.False(t, report.Formatted)
	assert.Equal(t, "# Title\n\nbody\n", report.Output)
	assert.Contains(t, report.Diff, "--- doc.md\n")
	assert.Contains(t, report.Diff, "-#Title\n")
	assert.Contains(t, report.Diff, "+# Title\n")
	assert.Equal(t, 3, report.ChangedLines())

	report, err = f.Check(context.Background(), "doc.md", "# Title\n\nbody\n")
	require.NoError(t, err)
	assert.True(t, report.Formatted)
	assert.Equal(t, "# Title\n\nbody\n", report.Output)
	assert.Empty(t, report.Diff)
}

func TestLint(t *testing.T) {
	f := newFormatter(t, config.Default())

	vs, err := f.Lint(context.Background(), "doc.md", "#Title\nbody\n")
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "MD018", vs[0].Rule)
	assert.Equal(t, 1, vs[0].Line)

	vs, err = f.Lint(context.Background(), "doc.md", "# Title\n\nbody\n")
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestLintUnknownRule(t *testing.T) {
	cfg := config.Default()
	cfg.Lint.Disable = []string{"MD999"}

	_, err := NewFormatter(cfg, nil, nil)
	assert.ErrorIs(t, err, lint.ErrUnknownRule)
}

func TestPreviewPublishesFormattedHTML(t *testing.T) {
	f := newFormatter(t, config.Default())
	assert.Empty(t, f.PreviewURL())

	require.NoError(t, f.Preview(context.Background(), "/notes/doc.md", "#Title\n"))
	url := f.PreviewURL()
	require.NotEmpty(t, url)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg contracts.RenderMessage
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, "doc.md", msg.Filename)
	assert.False(t, msg.Formatted)
	assert.Contains(t, msg.HTML, "<h1")
}
