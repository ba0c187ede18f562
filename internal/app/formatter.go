package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"go-markdown-fmt/internal/commonmark"
	"go-markdown-fmt/internal/config"
	"go-markdown-fmt/internal/contracts"
	"go-markdown-fmt/internal/diag"
	"go-markdown-fmt/internal/format"
	"go-markdown-fmt/internal/lint"
	"go-markdown-fmt/internal/mdfmt"
	"go-markdown-fmt/internal/render"
	"go-markdown-fmt/internal/sandbox"
	httptransport "go-markdown-fmt/internal/transport/http"
)

// Formatter is a coordinator between the sandboxed format service, diff
// reporting and the browser preview.
type Formatter struct {
	logger   *zap.Logger
	runtime  *sandbox.Runtime
	linter   *lint.Linter
	renderer *render.Renderer
	preview  *httptransport.PreviewServer
}

// Report is the outcome of checking one document.
type Report struct {
	Path      string
	Formatted bool
	// Output is the formatted text.
	Output string
	// Diff is a unified diff from the input to the formatted text, empty
	// when the input is already formatted.
	Diff string
}

// ChangedLines counts the removed and added lines of the diff.
func (r Report) ChangedLines() int {
	n := 0
	for _, line := range strings.Split(r.Diff, "\n") {
		if strings.HasPrefix(line, "+++ ") || strings.HasPrefix(line, "--- ") {
			continue
		}
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
			n++
		}
	}
	return n
}

// NewFormatter builds the pipeline described by cfg. Sandbox diagnostics go
// to printer.
func NewFormatter(cfg config.Config, printer diag.Printer, logger *zap.Logger) (*Formatter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	linter, err := lint.New(cfg.Linter())
	if err != nil {
		return nil, fmt.Errorf("app: lint config: %w", err)
	}

	engines := format.Engines{
		format.DialectMarkdown:   mdfmt.New(cfg.MarkdownStyle()),
		format.DialectCommonMark: commonmark.New(),
	}
	service := format.NewService(engines, cfg.Format())

	runtime, err := sandbox.New(service, diag.NewSink(printer), cfg.Sandbox())
	if err != nil {
		return nil, fmt.Errorf("app: start sandbox: %w", err)
	}

	renderer := render.NewRenderer(cfg.Preview.Theme)
	logger.Debug("formatter ready",
		zap.String("dialect", cfg.Dialect),
		zap.Strings("plugins", service.Options().Plugins),
		zap.String("config", cfg.File),
	)
	return &Formatter{
		logger:   logger,
		runtime:  runtime,
		linter:   linter,
		renderer: renderer,
		preview:  httptransport.NewPreviewServer(cfg.Preview.Addr, renderer.Shell(), logger),
	}, nil
}

// Format returns content in canonical form.
func (f *Formatter) Format(ctx context.Context, content string) (string, error) {
	return f.runtime.FormatMarkdown(ctx, content)
}

// Check formats content and reports whether it was already canonical.
func (f *Formatter) Check(ctx context.Context, path, content string) (Report, error) {
	formatted, err := f.Format(ctx, content)
	if err != nil {
		return Report{}, err
	}
	report := Report{Path: path, Formatted: formatted == content, Output: formatted}
	if report.Formatted {
		return report, nil
	}

	report.Diff, err = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(content),
		B:        difflib.SplitLines(formatted),
		FromFile: path,
		ToFile:   path + " (formatted)",
		Context:  3,
	})
	if err != nil {
		return Report{}, fmt.Errorf("app: diff %s: %w", path, err)
	}
	return report, nil
}

// Lint returns the rule violations of content as written.
func (f *Formatter) Lint(ctx context.Context, path, content string) ([]lint.Violation, error) {
	vs, err := f.linter.Lint(ctx, content)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("linted", zap.String("path", path), zap.Int("violations", len(vs)))
	return vs, nil
}

// Preview formats content and pushes the rendered result to the browser,
// starting the preview server on first use.
func (f *Formatter) Preview(ctx context.Context, path, content string) error {
	if err := f.preview.Start(); err != nil {
		return fmt.Errorf("app: start preview: %w", err)
	}

	formatted, err := f.Format(ctx, content)
	if err != nil {
		return err
	}
	fragment, err := f.renderer.Fragment([]byte(formatted))
	if err != nil {
		return fmt.Errorf("app: render %s: %w", path, err)
	}
	return f.preview.Publish(contracts.RenderMessage{
		HTML:      fragment,
		Filename:  filepath.Base(path),
		Formatted: formatted == content,
	})
}

// PreviewURL returns the browser URL, empty before the first Preview.
func (f *Formatter) PreviewURL() string {
	return f.preview.URL()
}

// Close stops the preview server and releases the sandbox.
func (f *Formatter) Close() error {
	err := f.preview.Stop()
	if cerr := f.runtime.Close(); err == nil {
		err = cerr
	}
	return err
}
