// Package matching resolves business identity against noisy external records:
// verifying ownership claims against location candidates and attributing
// imported reviews to a listed business.
package matching

import (
	"fmt"
	"math"
	"time"

	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/similarity"
)

type Outcome string

const (
	OutcomeAutoVerified Outcome = "auto_verified"
	OutcomeManualReview Outcome = "manual_review"
	OutcomeRejected     Outcome = "rejected"
)

const reasonNoCandidates = "no candidates available"

// ClaimIdentity is what the platform knows about the claimed business.
type ClaimIdentity struct {
	BusinessName string
	Address      string
	Phone        string
}

func IdentityOf(b *models.Business) ClaimIdentity {
	return ClaimIdentity{BusinessName: b.Name, Address: b.Address, Phone: b.Phone}
}

type MatchResult struct {
	Outcome              Outcome
	Confidence           int
	RequiresManualReview bool
	Details              *models.VerificationDetails
	MatchedLocation      *models.LocationCandidate
	Reason               string
}

// Verification converts the result into the record stored on the claim.
func (r MatchResult) Verification(now time.Time) *models.GMBVerification {
	return &models.GMBVerification{
		MatchConfidence:      r.Confidence,
		RequiresManualReview: r.RequiresManualReview,
		VerificationDetails:  r.Details,
		MatchedLocation:      r.MatchedLocation,
		FailureReason:        r.Reason,
		VerifiedAt:           now,
	}
}

type Matcher struct {
	cfg Config
}

func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// MatchClaim scores every candidate and classifies the best one. On equal
// confidence the earlier candidate wins.
func (m *Matcher) MatchClaim(claim ClaimIdentity, candidates []models.LocationCandidate) MatchResult {
	if len(candidates) == 0 {
		return MatchResult{Outcome: OutcomeRejected, Reason: reasonNoCandidates}
	}

	best := -1
	var bestConfidence int
	var bestDetails models.VerificationDetails

	for i := range candidates {
		c := &candidates[i]
		details := models.VerificationDetails{
			NameMatch:    similarity.StringSimilarity(claim.BusinessName, c.LocationName),
			AddressMatch: similarity.AddressSimilarity(claim.Address, c.Address),
			PhoneMatch:   similarity.PhoneMatch(claim.Phone, c.PrimaryPhone),
		}
		phone := 0.0
		if details.PhoneMatch {
			phone = 100
		}
		confidence := int(math.Round(m.cfg.NameWeight*details.NameMatch +
			m.cfg.AddressWeight*details.AddressMatch +
			m.cfg.PhoneWeight*phone))

		if best < 0 || confidence > bestConfidence {
			best, bestConfidence, bestDetails = i, confidence, details
		}
	}

	bestDetails.NameMatch = math.Round(bestDetails.NameMatch)
	bestDetails.AddressMatch = math.Round(bestDetails.AddressMatch)
	location := candidates[best]

	result := MatchResult{
		Confidence:      bestConfidence,
		Details:         &bestDetails,
		MatchedLocation: &location,
	}

	switch {
	case bestConfidence >= m.cfg.AutoVerifyThreshold:
		result.Outcome = OutcomeAutoVerified
	case bestConfidence >= m.cfg.ManualReviewThreshold:
		result.Outcome = OutcomeManualReview
		result.RequiresManualReview = true
	default:
		result.Outcome = OutcomeRejected
		result.Reason = fmt.Sprintf("match confidence %d%% below threshold", bestConfidence)
	}
	return result
}
