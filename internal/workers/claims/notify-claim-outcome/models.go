// internal/workers/claims/notify-claim-outcome/models.go
package notifyclaimoutcome

type Input struct {
	ClaimID string `json:"claimId"`
	Outcome string `json:"outcome"` // approved, needs_manual_review, needs_info or rejected
	Reason  string `json:"reason,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "skipped", "disabled"
	MessageID      string `json:"messageId,omitempty"`
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Outcomes
const (
	OutcomeApproved          = "approved"
	OutcomeNeedsManualReview = "needs_manual_review"
	OutcomeNeedsInfo         = "needs_info"
	OutcomeRejected          = "rejected"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)
