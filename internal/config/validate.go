package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	logLevels  = []interface{}{"debug", "info", "warn", "error"}
	logFormats = []interface{}{"text", "json"}
	styles     = []interface{}{StyleNativewind, StyleStylesheet}
	severities = []interface{}{"low", "medium", "high", "critical"}
)

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("DOC_CONFIG_VERSION: unsupported version %d", cfg.Version)
	}
	err := validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Registry),
		validation.Field(&cfg.Cache),
		validation.Field(&cfg.Logging),
		validation.Field(&cfg.Security),
	)
	if err != nil {
		return fmt.Errorf("DOC_CONFIG_INVALID: %w", err)
	}
	return nil
}

func (r RegistryConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.APIURLs, validation.Required, validation.Each(validation.By(httpURL))),
		validation.Field(&r.Framework, validation.Required),
		validation.Field(&r.DefaultStyle, validation.Required, validation.In(styles...)),
		validation.Field(&r.Retries, validation.Min(1), validation.Max(10)),
		validation.Field(&r.Backoff, validation.By(duration)),
		validation.Field(&r.Timeout, validation.By(duration)),
		validation.Field(&r.RemoteTimeout, validation.By(duration)),
		validation.Field(&r.GitHubRawURL, validation.Required, validation.By(httpURL)),
	)
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.TTL, validation.Required, validation.By(duration)),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In(logLevels...)),
		validation.Field(&l.Format, validation.Required, validation.In(logFormats...)),
	)
}

func (s SecurityConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.BlockSeverity, validation.Required, validation.In(severities...)),
	)
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

func duration(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.New("must be a duration such as 10s or 168h")
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}
