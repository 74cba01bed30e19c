// internal/workers/rankings/get-ranking/config.go
package getranking

import (
	"time"

	"business-ranking-workers/internal/repository"
)

type Config struct {
	Timeout        time.Duration
	CacheTTL       time.Duration
	CacheRetention time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		CacheTTL:       repository.DefaultRankingTTL,
		CacheRetention: repository.DefaultRankingRetention,
	}
}
