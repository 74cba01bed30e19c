// internal/models/business.go
package models

import "time"

type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanStarter PlanTier = "starter"
	PlanPro     PlanTier = "pro"
	PlanPower   PlanTier = "power"
)

func (t PlanTier) Valid() bool {
	switch t {
	case PlanFree, PlanStarter, PlanPro, PlanPower:
		return true
	}
	return false
}

// Business is a listed service business. Performance scores are written by
// the upstream analysis pipeline and stay nil until first computed.
type Business struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Address          string     `json:"address"`
	Phone            string     `json:"phone"`
	NormalizedPhone  string     `json:"normalizedPhone,omitempty"`
	ExternalPlaceID  string     `json:"externalPlaceId,omitempty"`
	City             string     `json:"city"`
	CategoryID       string     `json:"categoryId"`
	PlanTier         PlanTier   `json:"planTier"`
	Verified         bool       `json:"verified"`
	Claimed          bool       `json:"claimed"`
	ClaimOwnerID     *string    `json:"claimOwnerId,omitempty"`
	ClaimedAt        *time.Time `json:"claimedAt,omitempty"`
	SpeedScore       *int       `json:"speedScore"`
	ValueScore       *int       `json:"valueScore"`
	QualityScore     *int       `json:"qualityScore"`
	ReliabilityScore *int       `json:"reliabilityScore"`
	ConfidenceScore  *int       `json:"confidenceScore"`
	CityRanking      *int       `json:"cityRanking"`
	CategoryRanking  *int       `json:"categoryRanking"`
	RankingUpdatedAt *time.Time `json:"rankingUpdatedAt,omitempty"`
	ScoresUpdatedAt  *time.Time `json:"scoresUpdatedAt,omitempty"`
}

// Aspect names one of the four performance dimensions.
type Aspect string

const (
	AspectSpeed       Aspect = "speed"
	AspectValue       Aspect = "value"
	AspectQuality     Aspect = "quality"
	AspectReliability Aspect = "reliability"
)

var Aspects = []Aspect{AspectSpeed, AspectValue, AspectQuality, AspectReliability}

// AspectScore returns the stored score for a, nil if not computed.
func (b *Business) AspectScore(a Aspect) *int {
	switch a {
	case AspectSpeed:
		return b.SpeedScore
	case AspectValue:
		return b.ValueScore
	case AspectQuality:
		return b.QualityScore
	case AspectReliability:
		return b.ReliabilityScore
	}
	return nil
}
