// internal/workers/rankings/compute-ranking/models.go
package computeranking

import (
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/ranking"
)

type Input struct {
	City         string   `json:"city"`
	Category     string   `json:"category"`
	RankingTypes []string `json:"rankingTypes,omitempty"` // defaults to every type
}

type Output struct {
	RunID          string           `json:"runId"`
	City           string           `json:"city"`
	Category       string           `json:"category"`
	CohortSize     int              `json:"cohortSize"`
	Summaries      []RankingSummary `json:"summaries"`
	IndexUpdated   bool             `json:"indexUpdated"`
	EventPublished bool             `json:"eventPublished"`
	ComputedAt     string           `json:"computedAt"` // ISO 8601
}

// RankingSummary reports one ranking type of the run together with the
// leaderboard written to the cache under Version.
type RankingSummary struct {
	RankingType   string                  `json:"rankingType"`
	Version       int64                   `json:"version"`
	Calculated    int                     `json:"calculated"`
	Skipped       int                     `json:"skipped"`
	Failed        int                     `json:"failed"`
	Outliers      int                     `json:"outliers"`
	TopBusinessID string                  `json:"topBusinessId,omitempty"`
	Errors        []ranking.BusinessError `json:"errors,omitempty"`
	Adjustments   []ranking.Adjustment    `json:"adjustments,omitempty"`
	Rankings      []models.RankedBusiness `json:"rankings"`
}

// RankingUpdatedEvent is published to SNS after the cache is replaced.
type RankingUpdatedEvent struct {
	EventType  string           `json:"eventType"`
	RunID      string           `json:"runId"`
	City       string           `json:"city"`
	Category   string           `json:"category"`
	Versions   map[string]int64 `json:"versions"`
	ComputedAt string           `json:"computedAt"`
}
