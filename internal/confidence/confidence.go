// Package confidence scores how much a business's performance data can be
// trusted, based on the volume, provenance and shape of its analyzed reviews.
package confidence

import (
	"math"
	"time"

	"business-ranking-workers/internal/models"
)

const (
	saturationReviews = 50
	recentWindow      = 30 * 24 * time.Hour
	moderateWindow    = 90 * 24 * time.Hour
)

type Config struct {
	ReviewCountWeight          float64
	VerificationWeight         float64
	PerformanceMentionsWeight  float64
	SentimentConsistencyWeight float64
	RecencyWeight              float64
}

func DefaultConfig() Config {
	return Config{
		ReviewCountWeight:          0.30,
		VerificationWeight:         0.20,
		PerformanceMentionsWeight:  0.25,
		SentimentConsistencyWeight: 0.15,
		RecencyWeight:              0.10,
	}
}

type Scorer struct {
	cfg Config
	now func() time.Time
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of s that reads the time from now.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	return &Scorer{cfg: s.cfg, now: now}
}

// Score builds the report for one business. Unanalyzed reviews are ignored;
// a business without analyzed reviews scores zero everywhere.
func (s *Scorer) Score(businessID string, reviews []models.Review) models.ConfidenceReport {
	analyzed := models.AnalyzedOnly(reviews)
	report := models.ConfidenceReport{BusinessID: businessID, AnalyzedReviews: len(analyzed)}
	if len(analyzed) == 0 {
		return report
	}

	now := s.now()
	report.ReviewCount = reviewCountScore(len(analyzed))
	report.Verification = verificationScore(analyzed)
	report.PerformanceMentions = mentionsScore(analyzed)
	report.SentimentConsistency = sentimentScore(analyzed)
	report.Recency = recencyScore(analyzed, now)

	overall := s.cfg.ReviewCountWeight*report.ReviewCount +
		s.cfg.VerificationWeight*report.Verification +
		s.cfg.PerformanceMentionsWeight*report.PerformanceMentions +
		s.cfg.SentimentConsistencyWeight*report.SentimentConsistency +
		s.cfg.RecencyWeight*report.Recency
	report.Confidence = int(math.Round(overall))
	return report
}

func reviewCountScore(n int) float64 {
	if n >= saturationReviews {
		return 100
	}
	return 100 * math.Log(float64(n+1)) / math.Log(saturationReviews+1)
}

func verificationScore(reviews []models.Review) float64 {
	var verified, gmb int
	for _, r := range reviews {
		if r.Verified {
			verified++
		}
		if r.Source == models.SourceGMBAPI {
			gmb++
		}
	}
	n := float64(len(reviews))
	return math.Min(100, 100*float64(verified)/n+20*float64(gmb)/n)
}

func mentionsScore(reviews []models.Review) float64 {
	var withAny, total int
	for _, r := range reviews {
		c := r.Mentions.Count()
		total += c
		if c > 0 {
			withAny++
		}
	}
	n := float64(len(reviews))
	return 70*float64(withAny)/n + math.Min(30, 15*float64(total)/n)
}

// sentimentOrder breaks ties when picking the dominant class.
var sentimentOrder = []models.SentimentClass{
	models.SentimentPositive,
	models.SentimentNeutral,
	models.SentimentNegative,
}

func sentimentScore(reviews []models.Review) float64 {
	counts := make(map[models.SentimentClass]int, len(sentimentOrder))
	for _, r := range reviews {
		counts[r.Sentiment.Classification]++
	}

	var dominant models.SentimentClass
	best := -1
	for _, c := range sentimentOrder {
		if counts[c] > best {
			dominant, best = c, counts[c]
		}
	}

	n := float64(len(reviews))
	frac := float64(best) / n
	score := 70 * frac
	if dominant == models.SentimentPositive && frac > 0.7 {
		score += 20
	}
	if distinct := len(counts); distinct >= 2 && distinct <= 3 {
		score += 10
	}
	return math.Min(100, score)
}

func recencyScore(reviews []models.Review, now time.Time) float64 {
	var recent, moderate int
	for _, r := range reviews {
		switch age := now.Sub(r.CreatedAt); {
		case age <= recentWindow:
			recent++
		case age <= moderateWindow:
			moderate++
		}
	}
	n := float64(len(reviews))
	return math.Min(100, 100*float64(recent)/n+50*float64(moderate)/n)
}
