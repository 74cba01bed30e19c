// internal/models/ranking.go
package models

import (
	"fmt"
	"time"
)

type RankingType string

const (
	RankingOverall     RankingType = "overall"
	RankingSpeed       RankingType = RankingType(AspectSpeed)
	RankingValue       RankingType = RankingType(AspectValue)
	RankingQuality     RankingType = RankingType(AspectQuality)
	RankingReliability RankingType = RankingType(AspectReliability)
)

var RankingTypes = []RankingType{RankingOverall, RankingSpeed, RankingValue, RankingQuality, RankingReliability}

func ParseRankingType(s string) (RankingType, error) {
	if s == "" {
		return RankingOverall, nil
	}
	for _, t := range RankingTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown ranking type %q", s)
}

// Aspect returns the aspect behind an aspect ranking; ok is false for overall.
func (t RankingType) Aspect() (Aspect, bool) {
	if t == RankingOverall {
		return "", false
	}
	return Aspect(t), true
}

// RankedBusiness is one leaderboard row. Array order equals rank order and
// Rank is stored redundantly.
type RankedBusiness struct {
	BusinessID string  `json:"businessId"`
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
}

// RankingCacheEntry is the versioned leaderboard for one cohort and type.
type RankingCacheEntry struct {
	City        string           `json:"city"`
	Category    string           `json:"category"`
	RankingType RankingType      `json:"rankingType"`
	Version     int64            `json:"version"`
	LastUpdated time.Time        `json:"lastUpdated"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Rankings    []RankedBusiness `json:"rankings"`
}

func (e *RankingCacheEntry) Stale(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ConfidenceReport is the breakdown behind a business's confidence score.
type ConfidenceReport struct {
	BusinessID           string  `json:"businessId"`
	AnalyzedReviews      int     `json:"analyzedReviews"`
	ReviewCount          float64 `json:"reviewCount"`
	Verification         float64 `json:"verification"`
	PerformanceMentions  float64 `json:"performanceMentions"`
	SentimentConsistency float64 `json:"sentimentConsistency"`
	Recency              float64 `json:"recency"`
	Confidence           int     `json:"confidence"`
}
