// internal/workers/reviews/import-reviews/models.go
package importreviews

import (
	"time"

	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"
)

type Input struct {
	Reviews []ReviewInput `json:"reviews"`
	// SkipDuplicates defaults to true. False keeps near-identical reviews
	// from the same user; reused review ids are always skipped.
	SkipDuplicates *bool `json:"skipDuplicates,omitempty"`
}

// ReviewInput is one review as delivered by an external source.
type ReviewInput struct {
	ReviewID  string                     `json:"reviewId"`
	Business  matching.ReviewBusinessRef `json:"business"`
	Rating    int                        `json:"rating"`
	Comment   string                     `json:"comment"`
	UserName  string                     `json:"userName"`
	Source    string                     `json:"source"`
	Verified  bool                       `json:"verified"`
	CreatedAt *time.Time                 `json:"createdAt,omitempty"`
	Sentiment *models.Sentiment          `json:"sentiment,omitempty"`
	Mentions  models.Mentions            `json:"mentions"`
}

type Output struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Duplicates int              `json:"duplicates"`
	Imported   []ImportedReview `json:"imported"`
	Errors     []ItemError      `json:"errors,omitempty"`
}

type ImportedReview struct {
	ReviewID   string  `json:"reviewId"`
	BusinessID string  `json:"businessId"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
}

type ItemError struct {
	Index    int    `json:"index"`
	ReviewID string `json:"reviewId,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}
