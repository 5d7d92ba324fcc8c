package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/makecv/makecv/internal/cache"
	"github.com/makecv/makecv/internal/config"
	"github.com/makecv/makecv/internal/observability"
	"github.com/makecv/makecv/internal/sources"
	"github.com/makecv/makecv/internal/sources/crossref"
)

// mustLoadConfig loads .env and the config file, applies the global log
// flags, and exits on error.
func mustLoadConfig() *config.Config {
	if err := config.LoadDotEnv(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
}

// clients holds the shared HTTP plumbing for one command.
type clients struct {
	cache    *cache.DB
	cacheTTL time.Duration
	recorder sources.RequestRecorder
}

// openClients opens the response cache unless disabled. A cache that
// cannot be opened is logged and skipped.
func openClients(cfg *config.Config, useCache bool, recorder sources.RequestRecorder, logger zerolog.Logger) *clients {
	c := &clients{cacheTTL: cfg.CacheTTL, recorder: recorder}
	if !useCache || cfg.CachePath() == "" {
		return c
	}
	db, err := cache.Open(cfg.CachePath())
	if err != nil {
		logger.Warn().Err(err).Msg("response cache unavailable, continuing without it")
		return c
	}
	c.cache = db
	return c
}

func (c *clients) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

// httpConfig returns the client configuration for a source with the
// given request rate.
func (c *clients) httpConfig(rateLimit float64) sources.HTTPClientConfig {
	cfg := sources.HTTPClientConfig{
		RateLimit: rateLimit,
		CacheTTL:  c.cacheTTL,
		Recorder:  c.recorder,
	}
	if c.cache != nil {
		cfg.Cache = c.cache
	}
	return cfg
}

func (c *clients) crossref(mailto string) *crossref.Client {
	return crossref.NewClient(
		crossref.WithMailto(mailto),
		crossref.WithHTTPConfig(c.httpConfig(crossref.RateLimit)),
	)
}
