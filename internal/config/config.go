package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"aster/internal/fsutil"
)

// Load layers defaults, the TOML file at path (when present) and ASTER_*
// environment overrides.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v, DefaultConfig())
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("DOC_CONFIG_PARSE: %w", err)
		}
	}
	_ = v.BindEnv("registry.api_urls", "ASTER_API_URL")
	_ = v.BindEnv("logging.level", "ASTER_LOG_LEVEL")
	_ = v.BindEnv("cache.dir", "ASTER_CACHE_DIR")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("DOC_CONFIG_PARSE: %w", err)
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("version", def.Version)
	v.SetDefault("registry.api_urls", def.Registry.APIURLs)
	v.SetDefault("registry.framework", def.Registry.Framework)
	v.SetDefault("registry.default_style", def.Registry.DefaultStyle)
	v.SetDefault("registry.retries", def.Registry.Retries)
	v.SetDefault("registry.backoff", def.Registry.Backoff)
	v.SetDefault("registry.timeout", def.Registry.Timeout)
	v.SetDefault("registry.remote_timeout", def.Registry.RemoteTimeout)
	v.SetDefault("registry.github_raw_url", def.Registry.GitHubRawURL)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.dir", def.Cache.Dir)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("security.block_severity", def.Security.BlockSeverity)
}

func Encode(cfg Config) ([]byte, error) {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("DOC_CONFIG_ENCODE: %w", err)
	}
	return blob, nil
}

func Save(fs afero.Fs, path string, cfg Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	blob, err := Encode(cfg)
	if err != nil {
		return err
	}
	return fsutil.AtomicWrite(fs, path, blob, 0o644)
}
