package config

import "strings"

func Normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	urls := make([]string, 0, len(cfg.Registry.APIURLs))
	for _, u := range cfg.Registry.APIURLs {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		urls = def.Registry.APIURLs
	}
	cfg.Registry.APIURLs = urls
	if cfg.Registry.Framework == "" {
		cfg.Registry.Framework = def.Registry.Framework
	}
	if cfg.Registry.DefaultStyle == "" {
		cfg.Registry.DefaultStyle = def.Registry.DefaultStyle
	}
	if cfg.Registry.Retries <= 0 {
		cfg.Registry.Retries = def.Registry.Retries
	}
	if cfg.Registry.Backoff == "" {
		cfg.Registry.Backoff = def.Registry.Backoff
	}
	if cfg.Registry.Timeout == "" {
		cfg.Registry.Timeout = def.Registry.Timeout
	}
	if cfg.Registry.RemoteTimeout == "" {
		cfg.Registry.RemoteTimeout = def.Registry.RemoteTimeout
	}
	if cfg.Registry.GitHubRawURL == "" {
		cfg.Registry.GitHubRawURL = def.Registry.GitHubRawURL
	}
	cfg.Registry.GitHubRawURL = strings.TrimRight(cfg.Registry.GitHubRawURL, "/")
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = def.Cache.Dir
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = def.Cache.TTL
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	cfg.Security.BlockSeverity = strings.ToLower(strings.TrimSpace(cfg.Security.BlockSeverity))
	if cfg.Security.BlockSeverity == "" {
		cfg.Security.BlockSeverity = def.Security.BlockSeverity
	}
	return cfg
}
