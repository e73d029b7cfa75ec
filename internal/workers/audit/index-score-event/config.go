// internal/workers/audit/index-score-event/config.go
package indexscoreevent

import "time"

type Config struct {
	EventIndex string
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		EventIndex: "tidescore-events",
		Timeout:    15 * time.Second,
	}
}
