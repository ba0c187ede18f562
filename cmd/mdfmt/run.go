package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"go-markdown-fmt/internal/app"
)

// ErrNeedsFormatting is returned in check mode when any input is not
// formatted.
var ErrNeedsFormatting = errors.New("mdfmt: some files need formatting")

// ErrLintViolations is returned in lint mode when any rule fails.
var ErrLintViolations = errors.New("mdfmt: lint violations found")

const (
	markdownPattern = "**/*.{md,markdown}"
	stdinPath       = "-"
	stdinName       = "<stdin>"
)

type runner struct {
	formatter *app.Formatter
	logger    *zap.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	check    bool
	showDiff bool
	lint     bool

	unformatted int
	violations  int
}

func (r *runner) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	for _, arg := range args {
		if arg == stdinPath {
			if err := r.stdinDocument(ctx); err != nil {
				return err
			}
			continue
		}
		paths, err := expand(arg)
		if err != nil {
			return err
		}
		for _, path := range paths {
			if err := r.file(ctx, path); err != nil {
				return err
			}
		}
	}
	if r.lint && r.violations > 0 {
		return fmt.Errorf("%w: %d", ErrLintViolations, r.violations)
	}
	if r.check && r.unformatted > 0 {
		return fmt.Errorf("%w: %d", ErrNeedsFormatting, r.unformatted)
	}
	return nil
}

// expand returns the Markdown files below a directory, or path itself.
func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	matches, err := doublestar.Glob(os.DirFS(path), markdownPattern)
	if err != nil {
		return nil, fmt.Errorf("mdfmt: scan %s: %w", path, err)
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(path, filepath.FromSlash(m))
	}
	return paths, nil
}

func (r *runner) file(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	content := string(data)
	if r.lint {
		return r.report(ctx, path, content)
	}

	report, err := r.formatter.Check(ctx, path, content)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	r.logger.Debug("checked", zap.String("path", path), zap.Bool("formatted", report.Formatted))
	if report.Formatted {
		return nil
	}
	r.unformatted++

	if r.showDiff {
		fmt.Fprint(r.stdout, report.Diff)
	}
	if r.check {
		if !r.showDiff {
			fmt.Fprintln(r.stdout, path)
		}
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(report.Output), info.Mode().Perm()); err != nil {
		return err
	}
	r.logger.Info("formatted", zap.String("path", path), zap.Int("changed_lines", report.ChangedLines()))
	return nil
}

func (r *runner) stdinDocument(ctx context.Context) error {
	data, err := io.ReadAll(r.stdin)
	if err != nil {
		return err
	}

	if r.lint {
		return r.report(ctx, stdinName, string(data))
	}

	report, err := r.formatter.Check(ctx, stdinName, string(data))
	if err != nil {
		return err
	}
	if !report.Formatted {
		r.unformatted++
	}

	if r.check {
		if report.Formatted {
			return nil
		}
		if r.showDiff {
			fmt.Fprint(r.stdout, report.Diff)
		} else {
			fmt.Fprintln(r.stdout, stdinName)
		}
		return nil
	}

	// stdout carries the document, so the diff goes to stderr.
	if r.showDiff {
		fmt.Fprint(r.stderr, report.Diff)
	}
	_, err = io.WriteString(r.stdout, report.Output)
	return err
}

// report prints one "path:line: RULE message" line per violation.
func (r *runner) report(ctx context.Context, path, content string) error {
	vs, err := r.formatter.Lint(ctx, path, content)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, v := range vs {
		fmt.Fprintf(r.stdout, "%s:%s\n", path, v)
	}
	r.violations += len(vs)
	return nil
}
