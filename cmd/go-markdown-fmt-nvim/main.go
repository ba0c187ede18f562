package main

import (
	"github.com/neovim/go-client/nvim/plugin"

	"go-markdown-fmt/internal/config"
	"go-markdown-fmt/internal/host"
	"go-markdown-fmt/internal/logging"
)

// Set up the connection to Neovim, register the formatter commands and keep
// serving requests. Logs go to stderr; stdout carries the RPC stream.
func main() {
	plugin.Main(func(p *plugin.Plugin) error {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		logger := logging.Must(cfg.Logging())
		logger.Info("registering handlers")
		return host.Register(p, cfg, logger)
	})
}
