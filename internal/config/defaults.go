package config

import "time"

const (
	SchemaVersion = 1

	StyleNativewind = "nativewind"
	StyleStylesheet = "stylesheet"

	DefaultAPIURL    = "https://aster.dev/api/r"
	DefaultFramework = "expo"
	DefaultGitHubRaw = "https://raw.githubusercontent.com"

	defaultBackoff       = time.Second
	defaultTimeout       = 10 * time.Second
	defaultRemoteTimeout = 15 * time.Second
	defaultCacheTTL      = 7 * 24 * time.Hour
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version: SchemaVersion,
		Registry: RegistryConfig{
			APIURLs:       []string{DefaultAPIURL},
			Framework:     DefaultFramework,
			DefaultStyle:  StyleNativewind,
			Retries:       2,
			Backoff:       defaultBackoff.String(),
			Timeout:       defaultTimeout.String(),
			RemoteTimeout: defaultRemoteTimeout.String(),
			GitHubRawURL:  DefaultGitHubRaw,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "~/.aster/cache",
			TTL:     defaultCacheTTL.String(),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Security: SecurityConfig{
			BlockSeverity: "high",
		},
	}
}
