package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigPath honours ASTER_CONFIG before falling back to
// ~/.aster/config.toml.
func DefaultConfigPath() string {
	if p := os.Getenv("ASTER_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".aster", "config.toml")
	}
	return filepath.Join(home, ".aster", "config.toml")
}
