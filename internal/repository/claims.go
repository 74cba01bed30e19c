package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"business-ranking-workers/internal/common/database"
	"business-ranking-workers/internal/models"
)

type ClaimStore struct {
	db *sql.DB
}

func NewClaimStore(db *sql.DB) *ClaimStore {
	return &ClaimStore{db: db}
}

func (s *ClaimStore) GetClaim(ctx context.Context, id string) (*models.Claim, error) {
	var (
		c            models.Claim
		status       string
		method       string
		verification []byte
		reviewedBy   sql.NullString
		notes        sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, business_id, user_id, contact_email, status, verification_method,
		       gmb_verification, reviewed_by, review_notes, created_at, updated_at
		FROM claims WHERE id = $1`, id).Scan(
		&c.ID, &c.BusinessID, &c.UserID, &c.ContactEmail, &status, &method,
		&verification, &reviewedBy, &notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapError("claim_by_id", err)
	}

	c.Status = models.ClaimStatus(status)
	c.VerificationMethod = models.VerificationMethod(method)
	c.ReviewedBy = nullString(reviewedBy)
	c.ReviewNotes = notes.String
	if len(verification) > 0 {
		var v models.GMBVerification
		if err := json.Unmarshal(verification, &v); err != nil {
			return nil, fmt.Errorf("decode gmb_verification of claim %s: %w", id, err)
		}
		c.GMBVerification = &v
	}
	return &c, nil
}

// AttachVerification stores the match details and leaves the claim pending.
func (s *ClaimStore) AttachVerification(ctx context.Context, claimID string, v *models.GMBVerification, at time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode gmb_verification: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE claims SET gmb_verification = $1, status = 'pending', updated_at = $2
		WHERE id = $3 AND status IN ('pending', 'needs_info')`,
		string(payload), at, claimID)
	if err != nil {
		return database.WrapError("attach_verification", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: claim %s", ErrClaimNotOpen, claimID)
	}
	return nil
}

// Approval describes who approved a claim and why. An empty Method keeps the
// claim's current verification method.
type Approval struct {
	Verification *models.GMBVerification
	Method       models.VerificationMethod
	ReviewedBy   *string
	Notes        string
	At           time.Time
}

// ApproveClaim marks the claim approved and hands the business to the
// claimant in one transaction. The business update only applies while the
// business is unclaimed, so at most one claim per business is ever approved.
// Free and starter plans are lifted to pro.
func (s *ClaimStore) ApproveClaim(ctx context.Context, claim *models.Claim, a Approval) error {
	var payload interface{}
	if a.Verification != nil {
		raw, err := json.Marshal(a.Verification)
		if err != nil {
			return fmt.Errorf("encode gmb_verification: %w", err)
		}
		payload = string(raw)
	}
	var method interface{}
	if a.Method != "" {
		method = string(a.Method)
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE claims
			SET status = 'approved', gmb_verification = COALESCE($1, gmb_verification),
			    reviewed_by = $2, review_notes = $3, updated_at = $4,
			    verification_method = COALESCE($6, verification_method)
			WHERE id = $5 AND status IN ('pending', 'needs_info')`,
			payload, a.ReviewedBy, a.Notes, a.At, claim.ID, method)
		if err != nil {
			return database.WrapError("approve_claim", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: claim %s", ErrClaimNotOpen, claim.ID)
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE businesses
			SET claimed = true, verified = true, claimed_at = $1, claim_owner_id = $2,
			    plan_tier = CASE WHEN plan_tier IN ('free', 'starter') THEN 'pro' ELSE plan_tier END
			WHERE id = $3 AND claimed = false`,
			a.At, claim.UserID, claim.BusinessID)
		if err != nil {
			return database.WrapError("claim_business", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: business %s", ErrAlreadyClaimed, claim.BusinessID)
		}
		return nil
	})
}

// RejectWithVerification closes an open claim as rejected and keeps the match
// details that led there.
func (s *ClaimStore) RejectWithVerification(ctx context.Context, claimID string, v *models.GMBVerification, notes string, at time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode gmb_verification: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE claims SET status = 'rejected', gmb_verification = $1, review_notes = $2, updated_at = $3
		WHERE id = $4 AND status IN ('pending', 'needs_info')`,
		string(payload), notes, at, claimID)
	if err != nil {
		return database.WrapError("reject_claim", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: claim %s", ErrClaimNotOpen, claimID)
	}
	return nil
}

// UpdateStatus moves an open claim to a non-approved status.
func (s *ClaimStore) UpdateStatus(ctx context.Context, claimID string, status models.ClaimStatus, reviewedBy *string, notes string, at time.Time) error {
	if status == models.ClaimApproved {
		return fmt.Errorf("approve claims through ApproveClaim")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE claims SET status = $1, reviewed_by = $2, review_notes = $3, updated_at = $4
		WHERE id = $5 AND status IN ('pending', 'needs_info')`,
		string(status), reviewedBy, notes, at, claimID)
	if err != nil {
		return database.WrapError("update_claim_status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: claim %s", ErrClaimNotOpen, claimID)
	}
	return nil
}
