// Package config loads server configuration from the project's
// .rspec-lsp.yml file and from editor-supplied settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up in workspace roots.
const FileName = ".rspec-lsp.yml"

// Defaults for the rspec command line.
const (
	DefaultRSpecCommand  = "bundle exec rspec"
	DefaultFormatterPath = "ruby_lsp/ruby_lsp_rspec/rspec_formatter"
	DefaultFormatterName = "RubyLsp::RSpec::RSpecFormatter"
)

// ErrInvalidConfig is returned for configuration values that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds server configuration options.
type Config struct {
	// RSpecCommand replaces the default command. A custom command drops the
	// formatter arguments.
	RSpecCommand  string `yaml:"rspecCommand"`
	FormatterPath string `yaml:"formatterPath"`
	FormatterName string `yaml:"formatterName"`

	// SpecGlobs select the files indexed for helper declarations.
	SpecGlobs   []string `yaml:"specGlobs"`
	ExcludeDirs []string `yaml:"excludeDirs"`

	MaxFiles         int `yaml:"maxFiles"`
	IndexConcurrency int `yaml:"indexConcurrency"`

	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		FormatterPath:    DefaultFormatterPath,
		FormatterName:    DefaultFormatterName,
		SpecGlobs:        []string{"**/*_spec.rb", "**/spec_helper.rb", "**/rails_helper.rb"},
		ExcludeDirs:      []string{"vendor", "node_modules", "tmp", "log", "coverage"},
		MaxFiles:         10000,
		IndexConcurrency: 4,
		Watch:            true,
		WatchDebounce:    200 * time.Millisecond,
	}
}

// Load reads the configuration file at path on top of the defaults. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromRoot loads FileName from a workspace root.
func LoadFromRoot(root string) (*Config, error) {
	return Load(filepath.Join(root, FileName))
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.MaxFiles < 0 {
		return fmt.Errorf("%w: maxFiles must not be negative", ErrInvalidConfig)
	}
	if c.IndexConcurrency < 1 {
		return fmt.Errorf("%w: indexConcurrency must be at least 1", ErrInvalidConfig)
	}
	if len(c.SpecGlobs) == 0 {
		return fmt.Errorf("%w: specGlobs must not be empty", ErrInvalidConfig)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("%w: watchDebounce must not be negative", ErrInvalidConfig)
	}

	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.SpecGlobs = append([]string(nil), c.SpecGlobs...)
	clone.ExcludeDirs = append([]string(nil), c.ExcludeDirs...)

	return &clone
}

// CustomCommand reports whether the user replaced the rspec command.
func (c *Config) CustomCommand() bool {
	return c.RSpecCommand != ""
}

// Command returns the rspec command to run.
func (c *Config) Command() string {
	if c.CustomCommand() {
		return c.RSpecCommand
	}

	return DefaultRSpecCommand
}

// ApplySettings overlays editor settings, as sent in initializationOptions
// or workspace/didChangeConfiguration. Unknown keys are ignored. Settings
// arrive as decoded JSON, so numbers are float64.
func (c *Config) ApplySettings(settings map[string]any) error {
	if settings == nil {
		return nil
	}

	next := c.Clone()

	if v, ok := settings["rspecCommand"].(string); ok {
		next.RSpecCommand = v
	}
	if v, ok := settings["formatterPath"].(string); ok && v != "" {
		next.FormatterPath = v
	}
	if v, ok := settings["formatterName"].(string); ok && v != "" {
		next.FormatterName = v
	}
	if v, ok := settings["specGlobs"].([]any); ok {
		next.SpecGlobs = stringList(v)
	}
	if v, ok := settings["excludeDirs"].([]any); ok {
		next.ExcludeDirs = stringList(v)
	}
	if v, ok := settings["maxFiles"].(float64); ok {
		next.MaxFiles = int(v)
	}
	if v, ok := settings["indexConcurrency"].(float64); ok {
		next.IndexConcurrency = int(v)
	}
	if v, ok := settings["watch"].(bool); ok {
		next.Watch = v
	}

	if err := next.Validate(); err != nil {
		return err
	}

	*c = *next

	return nil
}

func stringList(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}
