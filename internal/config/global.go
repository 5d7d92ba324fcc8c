package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "makecv"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// EnvPrefix prefixes environment overrides, e.g. MAKECV_ORCID.
	EnvPrefix = "MAKECV"
)

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/makecv/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// DefaultCacheDir returns the cache directory under XDG_CACHE_HOME.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, GlobalConfigDir)
}

// LoadDotEnv loads .env from the working directory if present.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("orcid", "")
	v.SetDefault("crossref_orcid", false)
	v.SetDefault("scopus_id", "")
	v.SetDefault("patents", "")
	v.SetDefault("s2_author_id", "")
	v.SetDefault("pdf_dir", "")
	v.SetDefault("scopus_api_key", "")
	v.SetDefault("patentsview_api_key", "")
	v.SetDefault("s2_api_key", "")
	v.SetDefault("crossref_mailto", "")
	v.SetDefault("lookback_years", DefaultLookbackYears)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("quiet", false)
	v.SetDefault("cache_dir", DefaultCacheDir())
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("metrics_file", "")
}

// Load reads the config file at path, or the global config file when path
// is empty, then applies MAKECV_* environment overrides. A missing file is
// not an error. The API keys also fall back to the unprefixed
// SCOPUS_API_KEY, PATENTSVIEW_API_KEY and S2_API_KEY variables, which a
// .env file typically sets.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = GlobalConfigPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ScopusAPIKey == "" {
		cfg.ScopusAPIKey = os.Getenv("SCOPUS_API_KEY")
	}
	if cfg.PatentsViewAPIKey == "" {
		cfg.PatentsViewAPIKey = os.Getenv("PATENTSVIEW_API_KEY")
	}
	if cfg.S2APIKey == "" {
		cfg.S2APIKey = os.Getenv("S2_API_KEY")
	}
	cfg.CacheDir = ExpandTilde(cfg.CacheDir)
	cfg.PDFDir = ExpandTilde(cfg.PDFDir)

	return &cfg, nil
}
