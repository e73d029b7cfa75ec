// internal/workers/scoring/validate-applicant-signals/config.go
package validateapplicantsignals

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
