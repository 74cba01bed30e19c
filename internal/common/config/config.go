// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Scoring       ScoringConfig           `mapstructure:"scoring"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
	RegistryPath  string                  `mapstructure:"registry_path"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	URL           string   `mapstructure:"url"`
	BusinessIndex string   `mapstructure:"business_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Scoring ---

// ScoringConfig carries the tunable weight tables. Zero values fall back to
// the package defaults of matching, confidence and ranking.
type ScoringConfig struct {
	Matching   MatchingConfig   `mapstructure:"matching"`
	Confidence ConfidenceConfig `mapstructure:"confidence"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
}

type MatchingConfig struct {
	NameWeight             float64 `mapstructure:"name_weight"`
	AddressWeight          float64 `mapstructure:"address_weight"`
	PhoneWeight            float64 `mapstructure:"phone_weight"`
	AutoVerifyThreshold    int     `mapstructure:"auto_verify_threshold"`
	ManualReviewThreshold  int     `mapstructure:"manual_review_threshold"`
	FuzzyNameThreshold     float64 `mapstructure:"fuzzy_name_threshold"`
	DuplicateTextThreshold float64 `mapstructure:"duplicate_text_threshold"`
}

type ConfidenceConfig struct {
	ReviewCountWeight          float64 `mapstructure:"review_count_weight"`
	VerificationWeight         float64 `mapstructure:"verification_weight"`
	PerformanceMentionsWeight  float64 `mapstructure:"performance_mentions_weight"`
	SentimentConsistencyWeight float64 `mapstructure:"sentiment_consistency_weight"`
	RecencyWeight              float64 `mapstructure:"recency_weight"`
}

type RankingConfig struct {
	CacheTTLHours   int                      `mapstructure:"cache_ttl_hours"`
	RetentionHours  int                      `mapstructure:"retention_hours"`
	Parallelism     int                      `mapstructure:"parallelism"`
	CategoryWeights map[string]AspectWeights `mapstructure:"category_weights"`
	TierBonus       map[string]float64       `mapstructure:"tier_bonus"`
}

type AspectWeights struct {
	Speed       float64 `mapstructure:"speed"`
	Value       float64 `mapstructure:"value"`
	Quality     float64 `mapstructure:"quality"`
	Reliability float64 `mapstructure:"reliability"`
}

// NotificationConfig holds settings for SES claim mails and SNS ranking events.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	Events struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"events"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
