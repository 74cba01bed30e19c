// internal/workers/analytics/recompute-confidence/config.go
package recomputeconfidence

import (
	"time"

	"business-ranking-workers/internal/confidence"
)

type Config struct {
	Timeout    time.Duration
	Confidence confidence.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    120 * time.Second,
		Confidence: confidence.DefaultConfig(),
	}
}
