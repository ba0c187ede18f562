// Package config loads mdfmt settings from TOML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"go-markdown-fmt/internal/format"
	"go-markdown-fmt/internal/lint"
	"go-markdown-fmt/internal/logging"
	"go-markdown-fmt/internal/mdfmt"
	"go-markdown-fmt/internal/sandbox"
)

// EnvPrefix prefixes environment overrides, e.g. MDFMT_STYLE_BOLD.
const EnvPrefix = "MDFMT"

// SearchDirs and FileNames are probed in order when no file is given.
var (
	SearchDirs = []string{".", "config", "cfg", "conf"}
	FileNames  = []string{"mdfmt.toml", ".mdfmt.toml"}
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

// Config is the complete mdfmt configuration.
type Config struct {
	Dialect string `mapstructure:"dialect" validate:"oneof=markdown commonmark"`
	// Extensions nil means the dialect defaults.
	Extensions []string      `mapstructure:"extensions" validate:"omitempty,dive,oneof=table strikethrough tasklist footnote frontmatter heading-space"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`

	Style   Style   `mapstructure:"style"`
	Lint    Lint    `mapstructure:"lint"`
	Preview Preview `mapstructure:"preview"`
	Log     Log     `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type Style struct {
	Headings              string `mapstructure:"headings" validate:"oneof=atx setext consistent"`
	UnorderedLists        string `mapstructure:"unordered_lists" validate:"oneof=dash asterisk plus consistent"`
	Bold                  string `mapstructure:"bold" validate:"oneof=asterisk underscore consistent"`
	SpacesAfterListMarker int    `mapstructure:"spaces_after_list_marker" validate:"min=1,max=4"`
	DefaultCodeLanguage   string `mapstructure:"default_code_language"`
}

type Lint struct {
	Disable     []string `mapstructure:"disable" validate:"omitempty,dive,len=5,startswith=MD"`
	AllowedHTML []string `mapstructure:"allowed_html"`
}

type Preview struct {
	Addr  string `mapstructure:"addr" validate:"required"`
	Theme string `mapstructure:"theme"`
}

type Log struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	style := mdfmt.DefaultStyle()
	return Config{
		Dialect: string(format.DialectMarkdown),
		Style: Style{
			Headings:              string(style.Headings),
			UnorderedLists:        string(style.UnorderedLists),
			Bold:                  string(style.Bold),
			SpacesAfterListMarker: style.SpacesAfterListMarker,
		},
		Preview: Preview{Addr: "127.0.0.1:0", Theme: "github"},
		Log:     Log{Level: "info"},
	}
}

// New returns a viper instance carrying the defaults and environment
// bindings. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	d := Default()
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("dialect", d.Dialect)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("style.headings", d.Style.Headings)
	v.SetDefault("style.unordered_lists", d.Style.UnorderedLists)
	v.SetDefault("style.bold", d.Style.Bold)
	v.SetDefault("style.spaces_after_list_marker", d.Style.SpacesAfterListMarker)
	v.SetDefault("style.default_code_language", d.Style.DefaultCodeLanguage)
	v.SetDefault("lint.disable", d.Lint.Disable)
	v.SetDefault("lint.allowed_html", d.Lint.AllowedHTML)
	v.SetDefault("preview.addr", d.Preview.Addr)
	v.SetDefault("preview.theme", d.Preview.Theme)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("extensions")
	return v
}

// Load reads path, or the first file found in SearchDirs when path is
// empty, on top of the defaults. No file at all is not an error.
func Load(path string) (Config, error) {
	return LoadWith(New(), path)
}

// LoadWith is Load with a caller-prepared viper instance.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	if path == "" {
		path = Find(".")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = path
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Find returns the first config file below root, or "".
func Find(root string) string {
	for _, dir := range SearchDirs {
		for _, name := range FileNames {
			path := filepath.Join(root, dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// Validate checks field values and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Dialect == string(format.DialectCommonMark) && len(c.Extensions) > 0 {
		return fmt.Errorf("%w: dialect commonmark takes no extensions", ErrInvalid)
	}
	return nil
}

// Format returns the format service configuration.
func (c Config) Format() format.Config {
	dialect := format.Dialect(c.Dialect)
	if c.Extensions == nil {
		return format.Config{Dialect: dialect, Extensions: format.DefaultExtensions(dialect)}
	}
	exts := make([]format.ExtensionID, len(c.Extensions))
	for i, e := range c.Extensions {
		exts[i] = format.ExtensionID(e)
	}
	return format.Config{Dialect: dialect, Extensions: exts}
}

// MarkdownStyle returns the layout style of the markdown engine.
func (c Config) MarkdownStyle() mdfmt.Style {
	return mdfmt.Style{
		Headings:              mdfmt.HeadingStyle(c.Style.Headings),
		UnorderedLists:        mdfmt.ListStyle(c.Style.UnorderedLists),
		Bold:                  mdfmt.BoldStyle(c.Style.Bold),
		SpacesAfterListMarker: c.Style.SpacesAfterListMarker,
		DefaultCodeLanguage:   c.Style.DefaultCodeLanguage,
	}
}

// Linter returns the lint configuration. Expectations follow the
// formatting style.
func (c Config) Linter() lint.Config {
	return lint.Config{
		Style:       c.MarkdownStyle(),
		Disable:     c.Lint.Disable,
		AllowedHTML: c.Lint.AllowedHTML,
	}
}

// Sandbox returns the sandbox runtime limits.
func (c Config) Sandbox() sandbox.Config {
	return sandbox.Config{Timeout: c.Timeout}
}

// Logging returns the logger configuration. Output always goes to stderr.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Development = c.Log.Development
	return cfg
}
