package config

import "time"

// Config is the v1 global CLI schema stored in ~/.aster/config.toml.
type Config struct {
	Version  int            `toml:"version" mapstructure:"version"`
	Registry RegistryConfig `toml:"registry" mapstructure:"registry"`
	Cache    CacheConfig    `toml:"cache" mapstructure:"cache"`
	Logging  LoggingConfig  `toml:"logging" mapstructure:"logging"`
	Security SecurityConfig `toml:"security" mapstructure:"security"`
}

type RegistryConfig struct {
	APIURLs       []string `toml:"api_urls" mapstructure:"api_urls"`
	Framework     string   `toml:"framework" mapstructure:"framework"`
	DefaultStyle  string   `toml:"default_style" mapstructure:"default_style"`
	Retries       int      `toml:"retries" mapstructure:"retries"`
	Backoff       string   `toml:"backoff" mapstructure:"backoff"`
	Timeout       string   `toml:"timeout" mapstructure:"timeout"`
	RemoteTimeout string   `toml:"remote_timeout" mapstructure:"remote_timeout"`
	GitHubRawURL  string   `toml:"github_raw_url" mapstructure:"github_raw_url"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Dir     string `toml:"dir" mapstructure:"dir"`
	TTL     string `toml:"ttl" mapstructure:"ttl"`
}

// SecurityConfig controls the scan applied to post-install hooks before
// they are executed.
type SecurityConfig struct {
	BlockSeverity string   `toml:"block_severity" mapstructure:"block_severity"`
	DisabledRules []string `toml:"disabled_rules" mapstructure:"disabled_rules"`
}

type LoggingConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
}

func (r RegistryConfig) BackoffDuration() time.Duration {
	return parseDuration(r.Backoff, defaultBackoff)
}

func (r RegistryConfig) TimeoutDuration() time.Duration {
	return parseDuration(r.Timeout, defaultTimeout)
}

func (r RegistryConfig) RemoteTimeoutDuration() time.Duration {
	return parseDuration(r.RemoteTimeout, defaultRemoteTimeout)
}

func (c CacheConfig) TTLDuration() time.Duration {
	return parseDuration(c.TTL, defaultCacheTTL)
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
