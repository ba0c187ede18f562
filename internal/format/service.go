// Package format is the single formatting entry point exposed to the sandbox.
//
// The service owns no formatting logic. It fixes the engine configuration at
// construction and hands every call to the injected Engine, returning whatever
// the engine returns.
package format

import (
	"context"
	"errors"
	"fmt"

	"go-markdown-fmt/internal/contracts"
)

// ErrUnsupportedParser is returned by Engines when no engine is registered
// for the requested parser.
var ErrUnsupportedParser = errors.New("format: unsupported parser")

// Engine formats document text with the given options.
type Engine interface {
	Format(ctx context.Context, text string, opts contracts.FormatOptions) (string, error)
}

// EngineFunc adapts an ordinary function to an Engine.
type EngineFunc func(ctx context.Context, text string, opts contracts.FormatOptions) (string, error)

// Format calls f.
func (f EngineFunc) Format(ctx context.Context, text string, opts contracts.FormatOptions) (string, error) {
	return f(ctx, text, opts)
}

// Engines dispatches to an engine by parser name.
type Engines map[Dialect]Engine

// Format calls the engine registered for opts.Parser.
func (e Engines) Format(ctx context.Context, text string, opts contracts.FormatOptions) (string, error) {
	engine, ok := e[Dialect(opts.Parser)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedParser, opts.Parser)
	}
	return engine.Format(ctx, text, opts)
}

// Service formats Markdown with a fixed configuration.
type Service struct {
	engine Engine
	config Config
}

// NewService returns a Service delegating to engine with cfg. Duplicate
// extensions are dropped; the first occurrence keeps its position.
func NewService(engine Engine, cfg Config) *Service {
	seen := make(map[ExtensionID]struct{}, len(cfg.Extensions))
	extensions := make([]ExtensionID, 0, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		extensions = append(extensions, ext)
	}
	cfg.Extensions = extensions
	return &Service{engine: engine, config: cfg}
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config {
	cfg := s.config
	cfg.Extensions = append([]ExtensionID(nil), s.config.Extensions...)
	return cfg
}

// Options returns the engine options used for every call. The slice is a
// fresh copy.
func (s *Service) Options() contracts.FormatOptions {
	plugins := make([]string, len(s.config.Extensions))
	for i, ext := range s.config.Extensions {
		plugins[i] = string(ext)
	}
	return contracts.FormatOptions{
		Parser:  string(s.config.Dialect),
		Plugins: plugins,
	}
}

// Format returns content reformatted by the engine. Engine errors are
// returned unchanged.
func (s *Service) Format(ctx context.Context, content string) (string, error) {
	return s.engine.Format(ctx, content, s.Options())
}
