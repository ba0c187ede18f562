package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-markdown-fmt/internal/diag"
)

type recorder struct {
	values []any
	err    error
}

func (r *recorder) Print(v any) error {
	if r.err != nil {
		return r.err
	}
	r.values = append(r.values, v)
	return nil
}

type fakeService struct {
	inputs []string
	out    string
	err    error
}

func (f *fakeService) Format(_ context.Context, content string) (string, error) {
	f.inputs = append(f.inputs, content)
	return f.out, f.err
}

func newRuntime(t *testing.T, svc Formatter, out diag.Printer, cfg Config) *Runtime {
	t.Helper()
	r, err := New(svc, diag.NewSink(out), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestConsoleLogReturnsSameValue(t *testing.T) {
	rec := &recorder{}
	r := newRuntime(t, &fakeService{}, rec, Config{})

	got, err := r.Execute(context.Background(), `var o = {a: 1}; console.log(o) === o`)
	require.NoError(t, err)
	assert.Equal(t, true, got)
	assert.Len(t, rec.values, 1)
}

func TestConsoleLogWritesOnce(t *testing.T) {
	rec := &recorder{}
	r := newRuntime(t, &fakeService{}, rec, Config{})

	_, err := r.Execute(context.Background(), `console.log("initialized")`)
	require.NoError(t, err)
	assert.Equal(t, []any{"initialized"}, rec.values)
}

func TestConsoleLogPrinterFailureIsThrown(t *testing.T) {
	errPrint := errors.New("stdout closed")
	r := newRuntime(t, &fakeService{}, &recorder{err: errPrint}, Config{})

	_, err := r.Execute(context.Background(), `console.log("x")`)
	require.Error(t, err)
	assert.ErrorIs(t, err, errPrint)

	caught, err := r.Execute(context.Background(), `
		var caught = false;
		try { console.log("x") } catch (e) { caught = true }
		caught`)
	require.NoError(t, err)
	assert.Equal(t, true, caught)
}

func TestInstallSinkLastWins(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	r := newRuntime(t, &fakeService{}, first, Config{})

	_, err := r.Execute(context.Background(), `console.log = function () {}`)
	require.NoError(t, err)
	require.NoError(t, r.InstallSink(diag.NewSink(second)))

	_, err = r.Execute(context.Background(), `console.log("after")`)
	require.NoError(t, err)
	assert.Empty(t, first.values)
	assert.Equal(t, []any{"after"}, second.values)
}

func TestInstallNilSinkDiscards(t *testing.T) {
	rec := &recorder{}
	r := newRuntime(t, &fakeService{}, rec, Config{})
	require.NoError(t, r.InstallSink(nil))

	got, err := r.Execute(context.Background(), `console.log("x")`)
	require.NoError(t, err)
	assert.Equal(t, "x", got)
	assert.Empty(t, rec.values)
}

func TestModuleGlobalsRemoved(t *testing.T) {
	r := newRuntime(t, &fakeService{}, &recorder{}, Config{})

	got, err := r.Execute(context.Background(),
		`[typeof require, typeof process, typeof module, typeof exports].join(",")`)
	require.NoError(t, err)
	assert.Equal(t, "undefined,undefined,undefined,undefined", got)
}

func TestFormatMarkdownResolves(t *testing.T) {
	svc := &fakeService{out: "# Title\n\nbody\n"}
	r := newRuntime(t, svc, &recorder{}, Config{})

	got, err := r.FormatMarkdown(context.Background(), "#Title\nbody")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody\n", got)
	assert.Equal(t, []string{"#Title\nbody"}, svc.inputs)
}

func TestFormatMarkdownRejectsWithServiceError(t *testing.T) {
	errEngine := errors.New("engine failed")
	r := newRuntime(t, &fakeService{err: errEngine}, &recorder{}, Config{})

	_, err := r.FormatMarkdown(context.Background(), "text")
	assert.Same(t, errEngine, err)
}

func TestFormatMarkdownThenJobsRun(t *testing.T) {
	r := newRuntime(t, &fakeService{out: "formatted"}, &recorder{}, Config{})

	_, err := r.Execute(context.Background(), `
		var result;
		format_markdown("raw").then(function (v) { result = v });`)
	require.NoError(t, err)

	got, err := r.Execute(context.Background(), `result`)
	require.NoError(t, err)
	assert.Equal(t, "formatted", got)
}

func TestFormatMarkdownRejectsNonString(t *testing.T) {
	svc := &fakeService{out: "unused"}
	r := newRuntime(t, svc, &recorder{}, Config{})

	_, err := r.Execute(context.Background(), `
		var typeError = false;
		format_markdown(42).catch(function (e) { typeError = e instanceof TypeError });`)
	require.NoError(t, err)

	got, err := r.Execute(context.Background(), `typeError`)
	require.NoError(t, err)
	assert.Equal(t, true, got)
	assert.Empty(t, svc.inputs)
}

func TestFormatMarkdownScriptRejection(t *testing.T) {
	r := newRuntime(t, &fakeService{}, &recorder{}, Config{})

	_, err := r.Execute(context.Background(), `format_markdown = function () { return Promise.reject("nope") }`)
	require.NoError(t, err)

	_, err = r.FormatMarkdown(context.Background(), "x")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "nope", rejected.Reason)
}

func TestFormatMarkdownPending(t *testing.T) {
	r := newRuntime(t, &fakeService{}, &recorder{}, Config{})

	_, err := r.Execute(context.Background(), `format_markdown = function () { return new Promise(function () {}) }`)
	require.NoError(t, err)

	_, err = r.FormatMarkdown(context.Background(), "x")
	assert.ErrorIs(t, err, ErrPending)
}

func TestFormatMarkdownWithoutEntryPoint(t *testing.T) {
	r := newRuntime(t, &fakeService{}, &recorder{}, Config{})

	_, err := r.Execute(context.Background(), `format_markdown = 1`)
	require.NoError(t, err)

	_, err = r.FormatMarkdown(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestExecuteTimeout(t *testing.T) {
	r := newRuntime(t, &fakeService{}, &recorder{}, Config{Timeout: 50 * time.Millisecond})

	_, err := r.Execute(context.Background(), `for (;;) {}`)
	assert.ErrorIs(t, err, ErrTimeout)

	got, err := r.Execute(context.Background(), `1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestExecuteContextCanceled(t *testing.T) {
	r := newRuntime(t, &fakeService{}, &recorder{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Execute(ctx, `for (;;) {}`)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = r.Execute(ctx, `1`)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClosedRuntime(t *testing.T) {
	r, err := New(&fakeService{}, nil, Config{})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.FormatMarkdown(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = r.Execute(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.InstallSink(diag.NewSink(&recorder{})), ErrClosed)
}
