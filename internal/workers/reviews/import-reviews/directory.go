// internal/workers/reviews/import-reviews/directory.go
package importreviews

import (
	"context"

	"business-ranking-workers/internal/common/logger"
	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/repository"
)

// CandidateSearcher narrows the fuzzy candidates through the search index.
type CandidateSearcher interface {
	SearchCandidates(ctx context.Context, ref matching.ReviewBusinessRef) ([]models.Business, error)
}

// batchDirectory serves attribution lookups for one import batch. Without a
// search index, or when the index fails, the full business scan is loaded
// once and reused for every review of the batch.
type batchDirectory struct {
	*repository.BusinessStore
	search CandidateSearcher
	logger logger.Logger

	scanned []models.Business
	loaded  bool
}

func (d *batchDirectory) ListCandidates(ctx context.Context, ref matching.ReviewBusinessRef) ([]models.Business, error) {
	if d.search != nil {
		candidates, err := d.search.SearchCandidates(ctx, ref)
		if err == nil {
			return candidates, nil
		}
		d.logger.Warn("candidate search failed, scanning businesses", map[string]interface{}{
			"error": err,
			"name":  ref.Name,
		})
	}

	if !d.loaded {
		scanned, err := d.BusinessStore.ListCandidates(ctx, ref)
		if err != nil {
			return nil, err
		}
		d.scanned, d.loaded = scanned, true
	}
	return d.scanned, nil
}
