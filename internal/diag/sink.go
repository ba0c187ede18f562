// Package diag carries diagnostic output from sandboxed code to the host.
//
// The host owns the print primitive (a Printer). A Sink wraps it with the
// contract sandboxed call sites rely on: every value is written exactly once
// and handed back unchanged, so a log call can be used as an expression.
package diag

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Printer is the host's native print primitive. It writes one value and
// reports whether the write succeeded.
type Printer interface {
	Print(v any) error
}

// PrinterFunc adapts an ordinary function to a Printer.
type PrinterFunc func(v any) error

// Print calls f(v).
func (f PrinterFunc) Print(v any) error {
	return f(v)
}

// Sink forwards diagnostic values to a Printer.
type Sink struct {
	out Printer
}

// NewSink returns a Sink writing to out. A nil out discards.
func NewSink(out Printer) *Sink {
	if out == nil {
		out = Writer(io.Discard)
	}
	return &Sink{out: out}
}

// Log writes v to the printer and returns v unchanged. A printer failure is
// returned as-is.
func (s *Sink) Log(v any) (any, error) {
	if err := s.out.Print(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Writer returns a Printer that writes values to w with fmt.Fprint.
// Nothing is added around the value, not even a newline.
func Writer(w io.Writer) Printer {
	return PrinterFunc(func(v any) error {
		_, err := fmt.Fprint(w, v)
		return err
	})
}

// Logger returns a Printer that emits one info record per value.
func Logger(logger *zap.Logger) Printer {
	return PrinterFunc(func(v any) error {
		logger.Info(fmt.Sprint(v), zap.String("source", "sandbox"))
		return nil
	})
}
