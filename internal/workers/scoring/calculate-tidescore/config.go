// internal/workers/scoring/calculate-tidescore/config.go
package calculatetidescore

import "time"

type Config struct {
	Timeout      time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
	}
}
