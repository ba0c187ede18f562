package host

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
	"go.uber.org/zap"

	"go-markdown-fmt/internal/app"
	"go-markdown-fmt/internal/config"
	"go-markdown-fmt/internal/diag"
	"go-markdown-fmt/internal/lint"
)

const messagePrefix = "[mdfmt] "

// Commands is a state container for Neovim command handlers. Formatting is
// delegated to the app.Formatter.
type Commands struct {
	formatter *app.Formatter
	logger    *zap.Logger
}

func NewCommands(formatter *app.Formatter, logger *zap.Logger) *Commands {
	return &Commands{formatter: formatter, logger: logger}
}

// Register builds the formatter and registers Neovim command/function
// handlers. Sandbox diagnostics are echoed into :messages.
func Register(p *plugin.Plugin, cfg config.Config, logger *zap.Logger) error {
	formatter, err := app.NewFormatter(cfg, Echo(p.Nvim), logger)
	if err != nil {
		return err
	}
	commands := NewCommands(formatter, logger)

	p.Handle("poll", func() (string, error) {
		return "ok", nil
	})

	p.HandleCommand(&plugin.CommandOptions{
		Name: "MarkdownFormat",
	}, commands.MarkdownFormat)

	p.HandleCommand(&plugin.CommandOptions{
		Name: "MarkdownFormatCheck",
	}, commands.MarkdownFormatCheck)

	p.HandleCommand(&plugin.CommandOptions{
		Name: "MarkdownFormatPreview",
	}, commands.MarkdownFormatPreview)

	p.HandleCommand(&plugin.CommandOptions{
		Name: "MarkdownLint",
	}, commands.MarkdownLint)

	p.HandleFunction(&plugin.FunctionOptions{
		Name: "MarkdownFormatText",
	}, commands.MarkdownFormatText)

	return nil
}

// MarkdownFormat rewrites the current buffer when formatting changes it.
func (c *Commands) MarkdownFormat(v *nvim.Nvim) error {
	buf, text, err := currentBuffer(v)
	if err != nil {
		return err
	}

	formatted, err := c.formatter.Format(context.Background(), text)
	if err != nil {
		return c.fail(v, err)
	}
	if formatted == text {
		return nil
	}
	return v.SetBufferLines(buf, 0, -1, true, textLines(formatted))
}

// MarkdownFormatCheck reports whether the buffer is already formatted.
func (c *Commands) MarkdownFormatCheck(v *nvim.Nvim) error {
	_, text, err := currentBuffer(v)
	if err != nil {
		return err
	}
	path, err := v.BufferName(0)
	if err != nil {
		return err
	}

	report, err := c.formatter.Check(context.Background(), path, text)
	if err != nil {
		return c.fail(v, err)
	}
	if report.Formatted {
		return echo(v, "already formatted")
	}
	return echo(v, fmt.Sprintf("needs formatting (%d changed lines)", report.ChangedLines()))
}

// MarkdownFormatPreview shows the formatted buffer in the browser.
func (c *Commands) MarkdownFormatPreview(v *nvim.Nvim) error {
	_, text, err := currentBuffer(v)
	if err != nil {
		return err
	}
	path, err := v.BufferName(0)
	if err != nil {
		return err
	}

	if err := c.formatter.Preview(context.Background(), path, text); err != nil {
		return c.fail(v, err)
	}
	return echo(v, "preview: "+c.formatter.PreviewURL())
}

// MarkdownLint replaces the quickfix list with the rule violations of the
// buffer.
func (c *Commands) MarkdownLint(v *nvim.Nvim) error {
	buf, text, err := currentBuffer(v)
	if err != nil {
		return err
	}
	path, err := v.BufferName(buf)
	if err != nil {
		return err
	}

	vs, err := c.formatter.Lint(context.Background(), path, text)
	if err != nil {
		return c.fail(v, err)
	}
	if err := v.Call("setqflist", nil, quickfix(buf, vs), "r"); err != nil {
		return err
	}
	if len(vs) == 0 {
		return echo(v, "no lint violations")
	}
	return echo(v, fmt.Sprintf("%d lint violations, see :copen", len(vs)))
}

// quickfix converts violations into setqflist() items.
func quickfix(buf nvim.Buffer, vs []lint.Violation) []map[string]interface{} {
	items := make([]map[string]interface{}, len(vs))
	for i, v := range vs {
		items[i] = map[string]interface{}{
			"bufnr": int(buf),
			"lnum":  v.Line,
			"type":  "W",
			"text":  v.Rule + " " + v.Message,
		}
	}
	return items
}

// MarkdownFormatText returns its first argument formatted.
func (c *Commands) MarkdownFormatText(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("MarkdownFormatText: missing text argument")
	}
	return c.formatter.Format(context.Background(), args[0])
}

// Close releases the formatter.
func (c *Commands) Close() error {
	return c.formatter.Close()
}

func (c *Commands) fail(v *nvim.Nvim, err error) error {
	c.logger.Warn("format failed", zap.Error(err))
	_ = echo(v, "format failed: "+err.Error())
	return err
}

func currentBuffer(v *nvim.Nvim) (nvim.Buffer, string, error) {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return 0, "", err
	}
	lines, err := v.BufferLines(buf, 0, -1, true)
	if err != nil {
		return 0, "", err
	}
	return buf, bufferText(lines), nil
}

// bufferText joins buffer lines into a document ending in a newline. An
// empty buffer is the empty document.
func bufferText(lines [][]byte) string {
	text := string(bytes.Join(lines, []byte("\n")))
	if text == "" {
		return ""
	}
	return text + "\n"
}

// textLines splits a document into buffer lines.
func textLines(text string) [][]byte {
	parts := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([][]byte, len(parts))
	for i, part := range parts {
		lines[i] = []byte(part)
	}
	return lines
}

// Echo returns a Printer writing each value to :messages as one entry,
// embedded newlines included.
func Echo(v *nvim.Nvim) diag.Printer {
	return diag.PrinterFunc(func(val any) error {
		return v.Echo(message(val), true, map[string]interface{}{})
	})
}

func message(val any) []nvim.TextChunk {
	return []nvim.TextChunk{{Text: fmt.Sprint(val)}}
}

func echo(v *nvim.Nvim, msg string) error {
	return v.Command("echom " + vimQuote(messagePrefix+msg))
}

// vimQuote returns s as a single-quoted Vim string literal.
func vimQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
