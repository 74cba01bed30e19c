// internal/workers/claims/verify-claim/config.go
package verifyclaim

import (
	"time"

	"business-ranking-workers/internal/matching"
)

type Config struct {
	Timeout  time.Duration
	Matching matching.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		Matching: matching.DefaultConfig(),
	}
}
