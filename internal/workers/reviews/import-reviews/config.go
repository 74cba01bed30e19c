// internal/workers/reviews/import-reviews/config.go
package importreviews

import (
	"time"

	"business-ranking-workers/internal/dedup"
	"business-ranking-workers/internal/matching"
)

type Config struct {
	Timeout          time.Duration
	Matching         matching.Config
	ContentThreshold float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          120 * time.Second,
		Matching:         matching.DefaultConfig(),
		ContentThreshold: dedup.DefaultContentThreshold,
	}
}
