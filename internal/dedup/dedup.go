// Package dedup decides whether an imported review is already known, either by
// its external id or by near-identical content from the same reviewer.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/similarity"
)

// DefaultContentThreshold is the comment similarity above which two reviews
// by the same user for the same business count as one.
const DefaultContentThreshold = 90.0

type Verdict string

const (
	Unique           Verdict = "unique"
	DuplicateID      Verdict = "duplicate_id"
	DuplicateContent Verdict = "duplicate_content"
)

func (v Verdict) Duplicate() bool {
	return v != Unique
}

type Store interface {
	ReviewExists(ctx context.Context, reviewID string) (bool, error)
	ListByBusiness(ctx context.Context, businessID string) ([]models.Review, error)
}

// Engine checks one import batch. It remembers accepted reviews so duplicates
// inside the batch are caught as well. Not safe for concurrent use.
type Engine struct {
	store     Store
	threshold float64
	idOnly    bool
	seen      map[string]struct{}
	existing  map[string][]models.Review
	batch     map[string][]models.Review
}

func NewEngine(store Store, threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultContentThreshold
	}
	return &Engine{
		store:     store,
		threshold: threshold,
		seen:      make(map[string]struct{}),
		existing:  make(map[string][]models.Review),
		batch:     make(map[string][]models.Review),
	}
}

// IDOnly turns off the content check. Reviews sharing an external id are
// still reported.
func (e *Engine) IDOnly() *Engine {
	e.idOnly = true
	return e
}

// Check classifies r, which must already be attributed to a business.
func (e *Engine) Check(ctx context.Context, r models.Review) (Verdict, error) {
	if _, ok := e.seen[r.ReviewID]; ok {
		return DuplicateID, nil
	}
	exists, err := e.store.ReviewExists(ctx, r.ReviewID)
	if err != nil {
		return "", fmt.Errorf("check review id %s: %w", r.ReviewID, err)
	}
	if exists {
		return DuplicateID, nil
	}
	if e.idOnly {
		return Unique, nil
	}

	prior, err := e.reviewsFor(ctx, r.BusinessID)
	if err != nil {
		return "", err
	}
	for _, set := range [][]models.Review{prior, e.batch[r.BusinessID]} {
		for i := range set {
			if IsContentDuplicate(&set[i], &r, e.threshold) {
				return DuplicateContent, nil
			}
		}
	}
	return Unique, nil
}

// Remember records an accepted review for the rest of the batch.
func (e *Engine) Remember(r models.Review) {
	e.seen[r.ReviewID] = struct{}{}
	e.batch[r.BusinessID] = append(e.batch[r.BusinessID], r)
}

func (e *Engine) reviewsFor(ctx context.Context, businessID string) ([]models.Review, error) {
	if prior, ok := e.existing[businessID]; ok {
		return prior, nil
	}
	prior, err := e.store.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("load reviews of business %s: %w", businessID, err)
	}
	e.existing[businessID] = prior
	return prior, nil
}

// IsContentDuplicate reports whether b repeats a: same business, same user
// name ignoring case and a comment similarity above threshold.
func IsContentDuplicate(a, b *models.Review, threshold float64) bool {
	if a.BusinessID != b.BusinessID {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(a.UserName), strings.TrimSpace(b.UserName)) {
		return false
	}
	return similarity.StringSimilarity(a.Comment, b.Comment) > threshold
}
