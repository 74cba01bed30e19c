// Package ranking builds per-cohort leaderboards from business performance
// scores, review recency and plan tier.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"business-ranking-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	tieBonusManyReviews = 0.02
	tieBonusVerified    = 0.02
	tieBonusFresh       = 0.01
	tieBonusMentions    = 0.02
	freshScoresWindow   = 7 * 24 * time.Hour
)

// Input is one business of the cohort together with its reviews.
type Input struct {
	Business models.Business
	Reviews  []models.Review
}

type BusinessError struct {
	BusinessID string `json:"businessId"`
	Error      string `json:"error"`
}

// Adjustment records an outlier pulled back towards the IQR fence.
type Adjustment struct {
	BusinessID string  `json:"businessId"`
	Original   float64 `json:"original"`
	Adjusted   float64 `json:"adjusted"`
	Bound      float64 `json:"bound"`
}

type RunSummary struct {
	RankingType models.RankingType      `json:"rankingType"`
	Calculated  int                     `json:"calculated"`
	Skipped     int                     `json:"skipped"`
	Failed      int                     `json:"failed"`
	Outliers    int                     `json:"outliers"`
	Errors      []BusinessError         `json:"errors,omitempty"`
	Adjustments []Adjustment            `json:"adjustments,omitempty"`
	Rankings    []models.RankedBusiness `json:"rankings"`
}

type scored struct {
	businessID  string
	score       float64
	analyzed    int
	mentionRate float64
	verified    bool
	fresh       bool
}

type outcome struct {
	scored  *scored
	skipped bool
	err     error
}

type Engine struct {
	cfg Config
	now func() time.Time
}

func NewEngine(cfg Config) *Engine {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &Engine{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of e that reads the time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	return &Engine{cfg: e.cfg, now: now}
}

// RankOverall scores every business of the cohort in parallel, dampens
// outliers, applies tie-break bonuses and returns the ordered leaderboard.
// A business that fails to score lands in the summary's error list and does
// not stop the run. The returned error is only set when ctx ends first.
func (e *Engine) RankOverall(ctx context.Context, cohort []Input) (*RunSummary, error) {
	now := e.now()
	results := make([]outcome, len(cohort))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for i := range cohort {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.scoreSafely(&cohort[i], now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &RunSummary{RankingType: models.RankingOverall}
	var entries []*scored
	for i, r := range results {
		switch {
		case r.err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, BusinessError{
				BusinessID: cohort[i].Business.ID,
				Error:      r.err.Error(),
			})
		case r.skipped:
			summary.Skipped++
		default:
			entries = append(entries, r.scored)
		}
	}

	summary.Adjustments = e.dampenOutliers(entries)
	summary.Outliers = len(summary.Adjustments)
	e.applyTieBreaks(entries)

	summary.Calculated = len(entries)
	summary.Rankings = order(entries)
	return summary, nil
}

// RankAspect orders the cohort by one aspect score boosted by plan tier.
// Businesses without that aspect are skipped.
func (e *Engine) RankAspect(cohort []Input, aspect models.Aspect) *RunSummary {
	summary := &RunSummary{RankingType: models.RankingType(aspect)}
	var entries []*scored

	for i := range cohort {
		b := &cohort[i].Business
		bonus, ok := e.cfg.tierBonus(b.PlanTier)
		if !ok {
			summary.Failed++
			summary.Errors = append(summary.Errors, BusinessError{
				BusinessID: b.ID,
				Error:      fmt.Sprintf("unknown plan tier %q", b.PlanTier),
			})
			continue
		}
		s := b.AspectScore(aspect)
		if s == nil || *s == 0 {
			summary.Skipped++
			continue
		}
		entries = append(entries, &scored{businessID: b.ID, score: float64(*s) * (1 + bonus)})
	}

	summary.Calculated = len(entries)
	summary.Rankings = order(entries)
	return summary
}

func (e *Engine) scoreSafely(in *Input, now time.Time) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("panic while scoring: %v", r)}
		}
	}()
	return e.score(in, now)
}

func (e *Engine) score(in *Input, now time.Time) outcome {
	b := &in.Business

	bonus, ok := e.cfg.tierBonus(b.PlanTier)
	if !ok {
		return outcome{err: fmt.Errorf("unknown plan tier %q", b.PlanTier)}
	}

	present := false
	for _, a := range models.Aspects {
		s := b.AspectScore(a)
		if s == nil {
			continue
		}
		if *s < 0 || *s > 100 {
			return outcome{err: fmt.Errorf("%s score %d out of range", a, *s)}
		}
		if *s > 0 {
			present = true
		}
	}
	if !present {
		return outcome{skipped: true}
	}

	analyzed := models.AnalyzedOnly(in.Reviews)
	performance := e.cfg.weightsFor(b.CategoryID).apply(b)

	out := &scored{
		businessID: b.ID,
		score:      performance * recencyMultiplier(analyzed, now) * (1 + bonus),
		analyzed:   len(analyzed),
		verified:   b.Verified,
		fresh:      b.ScoresUpdatedAt != nil && now.Sub(*b.ScoresUpdatedAt) <= freshScoresWindow,
	}
	if len(analyzed) > 0 {
		withMentions := 0
		for _, r := range analyzed {
			if r.Mentions.Count() > 0 {
				withMentions++
			}
		}
		out.mentionRate = float64(withMentions) / float64(len(analyzed))
	}
	return outcome{scored: out}
}

// recencyMultiplier averages the age weight of the analyzed reviews.
func recencyMultiplier(analyzed []models.Review, now time.Time) float64 {
	if len(analyzed) == 0 {
		return 1
	}
	var sum float64
	for _, r := range analyzed {
		days := now.Sub(r.CreatedAt).Hours() / 24
		switch {
		case days <= 30:
			sum += 1.0
		case days <= 90:
			sum += 0.85
		case days <= 180:
			sum += 0.7
		case days <= 365:
			sum += 0.5
		default:
			sum += 0.3
		}
	}
	return sum / float64(len(analyzed))
}

func (e *Engine) dampenOutliers(entries []*scored) []Adjustment {
	if len(entries) < 3 {
		return nil
	}
	scores := make([]float64, len(entries))
	for i, s := range entries {
		scores[i] = s.score
	}
	q1, q3 := quartiles(scores)
	iqr := q3 - q1
	lower, upper := q1-e.cfg.IQRMultiplier*iqr, q3+e.cfg.IQRMultiplier*iqr

	var adjustments []Adjustment
	for _, s := range entries {
		bound := upper
		if s.score >= lower && s.score <= upper {
			continue
		}
		if s.score < lower {
			bound = lower
		}
		adjusted := bound + e.cfg.OutlierDamping*(s.score-bound)
		adjustments = append(adjustments, Adjustment{
			BusinessID: s.businessID,
			Original:   s.score,
			Adjusted:   adjusted,
			Bound:      bound,
		})
		s.score = adjusted
	}
	return adjustments
}

// applyTieBreaks adds small bonuses to businesses whose score lies within
// TieThreshold of another. Proximity is judged on the scores before any
// bonus is added. Freshness follows the last scores refresh, never the
// ranking write-back, so a rerun over the same data keeps its order.
func (e *Engine) applyTieBreaks(entries []*scored) {
	base := make([]float64, len(entries))
	for i, s := range entries {
		base[i] = s.score
	}

	for i, s := range entries {
		tied := false
		for j := range base {
			if i != j && math.Abs(base[i]-base[j]) <= e.cfg.TieThreshold {
				tied = true
				break
			}
		}
		if !tied {
			continue
		}
		if s.analyzed > 20 {
			s.score += tieBonusManyReviews
		}
		if s.analyzed > 50 {
			s.score += tieBonusManyReviews
		}
		if s.verified {
			s.score += tieBonusVerified
		}
		if s.fresh {
			s.score += tieBonusFresh
		}
		if s.mentionRate > 0.5 {
			s.score += tieBonusMentions
		}
	}
}

// order sorts by score descending, then business id, and assigns ranks from 1.
func order(entries []*scored) []models.RankedBusiness {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].businessID < entries[j].businessID
	})

	out := make([]models.RankedBusiness, len(entries))
	for i, s := range entries {
		out[i] = models.RankedBusiness{
			BusinessID: s.businessID,
			Rank:       i + 1,
			Score:      math.Round(s.score*100) / 100,
		}
	}
	return out
}
