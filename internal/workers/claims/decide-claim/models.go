// internal/workers/claims/decide-claim/models.go
package decideclaim

const (
	DecisionApprove   = "approve"
	DecisionReject    = "reject"
	DecisionNeedsInfo = "needs_info"
)

type Input struct {
	ClaimID  string `json:"claimId"`
	Decision string `json:"decision"` // approve, reject or needs_info
	AdminID  string `json:"adminId"`
	Notes    string `json:"notes"`
}

type Output struct {
	ClaimID    string `json:"claimId"`
	BusinessID string `json:"businessId"`
	Status     string `json:"status"`
	DecidedBy  string `json:"decidedBy"`
	DecidedAt  string `json:"decidedAt"` // ISO 8601
}
