// internal/models/claim.go
package models

import "time"

type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimNeedsInfo ClaimStatus = "needs_info"
	ClaimApproved  ClaimStatus = "approved"
	ClaimRejected  ClaimStatus = "rejected"
)

// Open reports whether the claim can still be decided.
func (s ClaimStatus) Open() bool {
	return s == ClaimPending || s == ClaimNeedsInfo
}

type VerificationMethod string

const (
	VerificationDocuments VerificationMethod = "documents"
	VerificationGMBOAuth  VerificationMethod = "gmb_oauth"
	VerificationPending   VerificationMethod = "pending"
)

type VerificationDetails struct {
	NameMatch    float64 `json:"name_match"`
	AddressMatch float64 `json:"address_match"`
	PhoneMatch   bool    `json:"phone_match"`
}

// GMBVerification is persisted as JSON on the claim row.
type GMBVerification struct {
	MatchConfidence      int                  `json:"match_confidence"`
	RequiresManualReview bool                 `json:"requires_manual_review"`
	VerificationDetails  *VerificationDetails `json:"verification_details,omitempty"`
	MatchedLocation      *LocationCandidate   `json:"matched_location,omitempty"`
	FailureReason        string               `json:"failure_reason,omitempty"`
	VerifiedAt           time.Time            `json:"verified_at"`
}

type Claim struct {
	ID                 string             `json:"id"`
	BusinessID         string             `json:"businessId"`
	UserID             string             `json:"userId"`
	ContactEmail       string             `json:"contactEmail"`
	Status             ClaimStatus        `json:"status"`
	VerificationMethod VerificationMethod `json:"verificationMethod"`
	GMBVerification    *GMBVerification   `json:"gmbVerification,omitempty"`
	ReviewedBy         *string            `json:"reviewedBy,omitempty"`
	ReviewNotes        string             `json:"reviewNotes,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// PostalAddress is the structured address of an external location record.
type PostalAddress struct {
	AddressLines       []string `json:"addressLines"`
	Locality           string   `json:"locality"`
	AdministrativeArea string   `json:"administrativeArea"`
	PostalCode         string   `json:"postalCode"`
}

// LocationCandidate is an externally sourced business location a claim is
// matched against.
type LocationCandidate struct {
	PlaceID      string         `json:"placeId,omitempty"`
	LocationName string         `json:"locationName"`
	Address      *PostalAddress `json:"address,omitempty"`
	PrimaryPhone string         `json:"primaryPhone"`
}
