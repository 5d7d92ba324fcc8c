// Package config loads makecv settings from the global config file, the
// environment and a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds every setting a harvest run needs. Command-line flags
// override these values.
type Config struct {
	// Profiles
	ORCID         string `mapstructure:"orcid" yaml:"orcid" json:"orcid"`
	CrossrefORCID bool   `mapstructure:"crossref_orcid" yaml:"crossref_orcid" json:"crossref_orcid"`
	ScopusID      string `mapstructure:"scopus_id" yaml:"scopus_id" json:"scopus_id"`
	Patents       string `mapstructure:"patents" yaml:"patents" json:"patents"`
	S2AuthorID    string `mapstructure:"s2_author_id" yaml:"s2_author_id" json:"s2_author_id"`
	PDFDir        string `mapstructure:"pdf_dir" yaml:"pdf_dir" json:"pdf_dir"`

	// Credentials
	ScopusAPIKey      string `mapstructure:"scopus_api_key" yaml:"scopus_api_key" json:"scopus_api_key"`
	PatentsViewAPIKey string `mapstructure:"patentsview_api_key" yaml:"patentsview_api_key" json:"patentsview_api_key"`
	S2APIKey          string `mapstructure:"s2_api_key" yaml:"s2_api_key" json:"s2_api_key"`
	CrossrefMailto    string `mapstructure:"crossref_mailto" yaml:"crossref_mailto" json:"crossref_mailto"`

	// Run
	LookbackYears int    `mapstructure:"lookback_years" yaml:"lookback_years" json:"lookback_years"`
	Output        string `mapstructure:"output" yaml:"output" json:"output"`
	Quiet         bool   `mapstructure:"quiet" yaml:"quiet" json:"quiet"`

	// Cache
	CacheDir string        `mapstructure:"cache_dir" yaml:"cache_dir" json:"cache_dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl" json:"cache_ttl"`

	// Observability
	LogLevel    string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
}

const (
	// DefaultOutput is the file accepted entries are appended to.
	DefaultOutput = "scholarship_new.bib"
	// DefaultLookbackYears limits harvests to recent work.
	DefaultLookbackYears = 1
	// DefaultCacheTTL is how long API responses are reused.
	DefaultCacheTTL = 24 * time.Hour
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks values that would make a run fail later.
func (c *Config) Validate() error {
	var problems []string
	if c.LookbackYears < 0 {
		problems = append(problems, "lookback_years must not be negative")
	}
	if c.CacheTTL < 0 {
		problems = append(problems, "cache_ttl must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q must be console or json", c.LogFormat))
	}
	if c.ScopusID != "" && c.ScopusAPIKey == "" {
		problems = append(problems, "scopus_id is set but scopus_api_key is empty")
	}
	if c.Patents != "" && c.PatentsViewAPIKey == "" {
		problems = append(problems, "patents is set but patentsview_api_key is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// CachePath returns the SQLite cache file, or "" when caching is off.
func (c *Config) CachePath() string {
	if c.CacheDir == "" {
		return ""
	}
	return filepath.Join(c.CacheDir, "responses.db")
}

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	c.ScopusAPIKey = redact(c.ScopusAPIKey)
	c.PatentsViewAPIKey = redact(c.PatentsViewAPIKey)
	c.S2APIKey = redact(c.S2APIKey)
	return c
}

func redact(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
