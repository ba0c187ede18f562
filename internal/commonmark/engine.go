// Package commonmark formats plain CommonMark with the elvish md codec.
package commonmark

import (
	"context"
	"errors"
	"fmt"

	"src.elv.sh/pkg/md"

	"go-markdown-fmt/internal/contracts"
	"go-markdown-fmt/internal/format"
)

// Parser is the parser name served by Engine.
const Parser = string(format.DialectCommonMark)

var (
	// ErrUnsupportedParser is returned for a parser other than "commonmark".
	ErrUnsupportedParser = errors.New("commonmark: unsupported parser")
	// ErrUnknownPlugin is returned for any plugin; the dialect has none.
	ErrUnknownPlugin = errors.New("commonmark: unknown plugin")
)

// Engine implements format.Engine for the "commonmark" parser.
type Engine struct{}

// New returns an Engine.
func New() Engine { return Engine{} }

// Format implements format.Engine. The codec never fails; only the options
// and a done context are rejected.
func (Engine) Format(ctx context.Context, text string, opts contracts.FormatOptions) (string, error) {
	if opts.Parser != Parser {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedParser, opts.Parser)
	}
	if len(opts.Plugins) > 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlugin, opts.Plugins[0])
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var codec md.FmtCodec
	md.Render(text, &codec)
	return codec.String(), nil
}
