package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: rankings
    user: ${TEST_DB_USER}
  redis:
    address: localhost:6379
  elasticsearch:
    url: http://localhost:9200
workers:
  compute-ranking:
    enabled: true
    max_jobs_active: 2
  get-ranking:
    enabled: false
scoring:
  ranking:
    parallelism: 4
    category_weights:
      plumbing:
        speed: 0.35
        value: 0.2
        quality: 0.25
        reliability: 0.2
    tier_bonus:
      power: 0.05
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_USER", "ranker")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "ranker", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Database.Elasticsearch.Addresses)
	assert.Equal(t, "businesses", cfg.Database.Elasticsearch.BusinessIndex)

	assert.Equal(t, 168, cfg.Scoring.Ranking.CacheTTLHours)
	assert.Equal(t, 336, cfg.Scoring.Ranking.RetentionHours)
	assert.Equal(t, 4, cfg.Scoring.Ranking.Parallelism)
	assert.InDelta(t, 0.35, cfg.Scoring.Ranking.CategoryWeights["plumbing"].Speed, 1e-9)
	assert.InDelta(t, 0.05, cfg.Scoring.Ranking.TierBonus["power"], 1e-9)

	ranking := cfg.Workers["compute-ranking"]
	assert.True(t, ranking.Enabled)
	assert.Equal(t, 2, ranking.MaxJobsActive)
	assert.Equal(t, 30000, ranking.Timeout)
	assert.Equal(t, 3, ranking.MaxRetries)

	assert.Equal(t, ":8080", cfg.Metrics.Address)
	assert.Equal(t, "configs/activity-registry.json", cfg.RegistryPath)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing broker",
			yaml:    "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "missing redis",
			yaml:    "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			wantErr: "database.redis.address is required",
		},
		{
			name: "category weights do not sum to one",
			yaml: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n" +
				"scoring:\n  ranking:\n    category_weights:\n      hvac:\n        speed: 0.5\n        value: 0.5\n        quality: 0.5\n        reliability: 0.5\n",
			wantErr: "category_weights.hvac must sum to 1",
		},
		{
			name: "inverted matching thresholds",
			yaml: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n" +
				"scoring:\n  matching:\n    auto_verify_threshold: 60\n    manual_review_threshold: 85\n",
			wantErr: "manual_review_threshold must be below auto_verify_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"get-ranking": {Enabled: false, MaxJobsActive: 1, Timeout: 1000, MaxRetries: 1},
	}}

	assert.False(t, GetWorkerConfig(cfg, "get-ranking").Enabled)
	assert.False(t, IsWorkerEnabled(cfg, "get-ranking"))

	fallback := GetWorkerConfig(cfg, "compute-ranking")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 5, fallback.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "compute-ranking"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "rankings", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rankings sslmode=disable", p.GetDSN())
}
