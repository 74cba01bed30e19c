// internal/workers/rankings/get-ranking/models.go
package getranking

import "business-ranking-workers/internal/models"

type Input struct {
	City        string `json:"city"`
	Category    string `json:"category"`
	RankingType string `json:"rankingType,omitempty"` // defaults to overall
	AllowStale  bool   `json:"allowStale"`
	Limit       int    `json:"limit,omitempty"`
}

type Output struct {
	Found          bool                    `json:"found"`
	Stale          bool                    `json:"stale"`
	NeedsRecompute bool                    `json:"needsRecompute"`
	RankingType    string                  `json:"rankingType"`
	Version        int64                   `json:"version,omitempty"`
	LastUpdated    string                  `json:"lastUpdated,omitempty"` // ISO 8601
	ExpiresAt      string                  `json:"expiresAt,omitempty"`   // ISO 8601
	Total          int                     `json:"total"`
	Rankings       []models.RankedBusiness `json:"rankings"`
}
