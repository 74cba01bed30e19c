// internal/workers/claims/verify-claim/models.go
package verifyclaim

import "business-ranking-workers/internal/models"

type Input struct {
	ClaimID    string                     `json:"claimId"`
	Candidates []models.LocationCandidate `json:"candidates"`
}

const (
	OutcomeApproved          = "approved"
	OutcomeNeedsManualReview = "needs_manual_review"
	OutcomeRejected          = "rejected"
)

type Output struct {
	ClaimID              string                      `json:"claimId"`
	BusinessID           string                      `json:"businessId"`
	Outcome              string                      `json:"outcome"`
	MatchConfidence      int                         `json:"matchConfidence"`
	RequiresManualReview bool                        `json:"requiresManualReview"`
	VerificationDetails  *models.VerificationDetails `json:"verificationDetails,omitempty"`
	Reason               string                      `json:"reason,omitempty"`
	VerifiedAt           string                      `json:"verifiedAt"` // ISO 8601
}
