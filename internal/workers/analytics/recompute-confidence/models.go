// internal/workers/analytics/recompute-confidence/models.go
package recomputeconfidence

import "business-ranking-workers/internal/models"

// Input selects either one business or a whole city and category cohort.
type Input struct {
	BusinessID string `json:"businessId,omitempty"`
	City       string `json:"city,omitempty"`
	Category   string `json:"category,omitempty"`
}

type Output struct {
	Processed  int                       `json:"processed"`
	Updated    int                       `json:"updated"`
	Failed     int                       `json:"failed"`
	Reports    []models.ConfidenceReport `json:"reports"`
	Errors     []BusinessError           `json:"errors,omitempty"`
	ComputedAt string                    `json:"computedAt"` // ISO 8601
}

type BusinessError struct {
	BusinessID string `json:"businessId"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}
