// internal/workers/rankings/compute-ranking/config.go
package computeranking

import (
	"time"

	"business-ranking-workers/internal/ranking"
	"business-ranking-workers/internal/repository"
)

type Config struct {
	Timeout        time.Duration
	Ranking        ranking.Config
	CacheTTL       time.Duration
	CacheRetention time.Duration
	EventsEnabled  bool
	TopicARN       string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        300 * time.Second,
		Ranking:        ranking.DefaultConfig(),
		CacheTTL:       repository.DefaultRankingTTL,
		CacheRetention: repository.DefaultRankingRetention,
	}
}
