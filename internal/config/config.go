// Package config loads agtrace's workspace configuration: which providers
// are enabled and which on-disk roots to scan for their session logs.
// Loading is read-only and happens once at startup — nothing in this
// package is ever mutated after Load returns, so it is always safe to
// share a *Config across goroutines without synchronization.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProviderConfig is one entry of the [[providers]] array in the TOML
// config file.
type ProviderConfig struct {
	Name string `toml:"name"`
	Root string `toml:"root"`
}

// Config is the parsed contents of an agtrace config file.
type Config struct {
	IndexPath string           `toml:"index_path"`
	Providers []ProviderConfig `toml:"providers"`
}

// DefaultIndexPath returns the default index database location,
// ~/.agtrace/index.db, used when a config file doesn't set index_path.
func DefaultIndexPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, ".agtrace", "index.db"), nil
}

// Load parses the TOML config file at path. A missing index_path is
// filled in with DefaultIndexPath's value rather than left empty.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}
	if cfg.IndexPath == "" {
		def, err := DefaultIndexPath()
		if err != nil {
			return cfg, err
		}
		cfg.IndexPath = def
	}
	return cfg, nil
}

// Roots returns every configured provider's log root, in declaration
// order.
func (c Config) Roots() []string {
	roots := make([]string, len(c.Providers))
	for i, p := range c.Providers {
		roots[i] = p.Root
	}
	return roots
}
