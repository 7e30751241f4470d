package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

type Config struct {
	Roots []string `toml:"roots"`

	// IntrospectCompiled registers opaque compiled units as module stubs
	// instead of skipping them.
	IntrospectCompiled bool `toml:"introspect_compiled_modules"`
	// LoadOptionalExtensions enables the bundled idiom recognizers.
	LoadOptionalExtensions bool `toml:"load_optional_extensions"`

	Exclude []string `toml:"exclude"`
	Store   Store    `toml:"store"`
	Watch   Watch    `toml:"watch"`
	Output  Output   `toml:"output"`
	Metrics Metrics  `toml:"metrics"`
}

type Store struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// Load reads a TOML config file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			return &cfg, nil
		}
		return nil, err
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = "docgraph.db"
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "tree"
	}
	if strings.TrimSpace(cfg.Metrics.Address) == "" {
		cfg.Metrics.Address = "127.0.0.1:9190"
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Output.Format)) {
	case "tree", "json", "dot", "tsv":
	default:
		return fmt.Errorf("output.format must be one of: tree, json, dot, tsv")
	}
	if _, err := cfg.CompiledExcludes(); err != nil {
		return err
	}
	return nil
}

// CompiledExcludes compiles the exclude patterns.
func (c *Config) CompiledExcludes() ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(c.Exclude))
	for _, pattern := range c.Exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}
