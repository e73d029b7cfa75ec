// internal/workers/data-access/fetch-verified-signals/config.go
package fetchverifiedsignals

import "time"

type Config struct {
	Timeout      time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      15 * time.Second,
		CacheEnabled: true,
		CacheTTL:     2 * time.Minute,
	}
}
