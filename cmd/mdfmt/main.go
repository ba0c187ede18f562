package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go-markdown-fmt/internal/app"
	"go-markdown-fmt/internal/config"
	"go-markdown-fmt/internal/diag"
	"go-markdown-fmt/internal/logging"
)

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "mdfmt [paths...]",
		Short: "Format Markdown documents in place",
		Long: `mdfmt rewrites Markdown files in a canonical layout.

Directories are searched for *.md and *.markdown files. A path of "-" reads
standard input and writes the result to standard output. With --lint, files
are checked against markdownlint rules and never rewritten.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadWith(v, configPath)
			if err != nil {
				return err
			}

			logCfg := cfg.Logging()
			if v.GetBool("verbose") {
				logCfg.Level = "debug"
				logCfg.Development = true
			}
			logger := logging.Must(logCfg)
			defer func() { _ = logger.Sync() }()

			formatter, err := app.NewFormatter(cfg, diag.Logger(logger), logger)
			if err != nil {
				return err
			}
			defer func() { _ = formatter.Close() }()

			r := &runner{
				formatter: formatter,
				logger:    logger,
				stdin:     stdin,
				stdout:    stdout,
				stderr:    stderr,
				check:     v.GetBool("check"),
				showDiff:  v.GetBool("show-diff"),
				lint:      v.GetBool("lint"),
			}
			return r.run(cmd.Context(), args)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().Bool("check", false, "report files that are not formatted instead of rewriting them")
	cmd.Flags().Bool("show-diff", false, "print a unified diff for every file that changes")
	cmd.Flags().Bool("lint", false, "report markdownlint rule violations instead of formatting")
	cmd.Flags().StringP("config", "c", "", "config file (default: mdfmt.toml or .mdfmt.toml in ., config/, cfg/ or conf/)")
	cmd.Flags().BoolP("verbose", "v", false, "log every file to stderr")

	for _, name := range []string{"check", "show-diff", "lint", "verbose"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, ErrNeedsFormatting) && !errors.Is(err, ErrLintViolations) {
			fmt.Fprintln(os.Stderr, "mdfmt:", err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
