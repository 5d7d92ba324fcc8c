package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteScaffold when the file is present.
var ErrConfigExists = errors.New("config file already exists")

// Scaffold returns the config written by "makecv config init".
func Scaffold() Config {
	return Config{
		LookbackYears: DefaultLookbackYears,
		Output:        DefaultOutput,
		CacheDir:      DefaultCacheDir(),
		CacheTTL:      DefaultCacheTTL,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// WriteScaffold writes cfg as YAML to path, creating its directory. It
// refuses to overwrite an existing file.
func WriteScaffold(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Marshal encodes cfg as YAML. Durations are written in their string form.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}
