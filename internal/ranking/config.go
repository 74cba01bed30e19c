package ranking

import (
	"strings"

	"business-ranking-workers/internal/models"
)

// Weights split a business's performance score across the four aspects.
type Weights struct {
	Speed       float64
	Value       float64
	Quality     float64
	Reliability float64
}

func (w Weights) apply(b *models.Business) float64 {
	return w.Speed*value(b.SpeedScore) +
		w.Value*value(b.ValueScore) +
		w.Quality*value(b.QualityScore) +
		w.Reliability*value(b.ReliabilityScore)
}

// Config holds the ranking weights and tuning. Parallelism bounds concurrent
// per-business scoring. TieThreshold is the score distance within which
// tie-break bonuses apply. OutlierDamping is the share of an outlier's
// distance past the IQR fence that survives adjustment.
type Config struct {
	CategoryWeights map[string]Weights
	DefaultWeights  Weights
	TierBonus       map[models.PlanTier]float64
	Parallelism     int
	TieThreshold    float64
	IQRMultiplier   float64
	OutlierDamping  float64
}

func DefaultConfig() Config {
	return Config{
		CategoryWeights: map[string]Weights{
			"plumbing":    {Speed: 0.35, Value: 0.20, Quality: 0.25, Reliability: 0.20},
			"electrical":  {Speed: 0.20, Value: 0.20, Quality: 0.35, Reliability: 0.25},
			"hvac":        {Speed: 0.30, Value: 0.20, Quality: 0.20, Reliability: 0.30},
			"cleaning":    {Speed: 0.20, Value: 0.30, Quality: 0.30, Reliability: 0.20},
			"landscaping": {Speed: 0.15, Value: 0.35, Quality: 0.30, Reliability: 0.20},
		},
		DefaultWeights: Weights{Speed: 0.25, Value: 0.25, Quality: 0.25, Reliability: 0.25},
		TierBonus: map[models.PlanTier]float64{
			models.PlanFree:    0,
			models.PlanStarter: 0.02,
			models.PlanPro:     0.03,
			models.PlanPower:   0.05,
		},
		Parallelism:    8,
		TieThreshold:   0.1,
		IQRMultiplier:  1.5,
		OutlierDamping: 0.3,
	}
}

func (c Config) weightsFor(category string) Weights {
	if w, ok := c.CategoryWeights[strings.ToLower(strings.TrimSpace(category))]; ok {
		return w
	}
	return c.DefaultWeights
}

func (c Config) tierBonus(tier models.PlanTier) (float64, bool) {
	if tier == "" {
		tier = models.PlanFree
	}
	bonus, ok := c.TierBonus[tier]
	return bonus, ok
}

func value(p *int) float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}
