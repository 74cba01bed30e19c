package repository

import (
	"context"
	"testing"
	"time"

	"business-ranking-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var claimColumnNames = []string{
	"id", "business_id", "user_id", "contact_email", "status", "verification_method",
	"gmb_verification", "reviewed_by", "review_notes", "created_at", "updated_at",
}

func testClaim() *models.Claim {
	return &models.Claim{ID: "c-1", BusinessID: "b-1", UserID: "u-1", Status: models.ClaimPending}
}

func TestClaimStore_GetClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM claims WHERE id = \$1`).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(claimColumnNames).AddRow(
			"c-1", "b-1", "u-1", "owner@example.com", "pending", "gmb_oauth",
			[]byte(`{"match_confidence":72,"requires_manual_review":true,"verification_details":{"name_match":90,"address_match":55,"phone_match":true}}`),
			nil, nil, created, created,
		))

	c, err := NewClaimStore(db).GetClaim(context.Background(), "c-1")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, models.ClaimPending, c.Status)
	assert.Equal(t, models.VerificationGMBOAuth, c.VerificationMethod)
	assert.Nil(t, c.ReviewedBy)
	require.NotNil(t, c.GMBVerification)
	assert.Equal(t, 72, c.GMBVerification.MatchConfidence)
	assert.True(t, c.GMBVerification.VerificationDetails.PhoneMatch)
}

func TestClaimStore_GetClaimMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM claims WHERE id = \$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(claimColumnNames))

	c, err := NewClaimStore(db).GetClaim(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestClaimStore_ApproveClaim(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	approval := Approval{
		Verification: &models.GMBVerification{MatchConfidence: 92},
		Method:       models.VerificationGMBOAuth,
		At:           at,
	}

	t.Run("claim and business change together", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE claims SET status = 'approved'(.+)verification_method = COALESCE\(\$6, verification_method\)`).
			WithArgs(sqlmock.AnyArg(), nil, "", at, "c-1", "gmb_oauth").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE businesses SET claimed = true, verified = true(.+)WHERE id = \$3 AND claimed = false`).
			WithArgs(at, "u-1", "b-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewClaimStore(db).ApproveClaim(context.Background(), testClaim(), approval))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("business already claimed rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE claims SET status = 'approved'`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE businesses SET claimed = true`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = NewClaimStore(db).ApproveClaim(context.Background(), testClaim(), approval)
		assert.ErrorIs(t, err, ErrAlreadyClaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed claim rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE claims SET status = 'approved'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = NewClaimStore(db).ApproveClaim(context.Background(), testClaim(), approval)
		assert.ErrorIs(t, err, ErrClaimNotOpen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimStore_ApproveClaimKeepsMethodWhenUnset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	admin := "admin-1"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE claims SET status = 'approved'`).
		WithArgs(nil, "admin-1", "documents checked", at, "c-1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE businesses SET claimed = true`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewClaimStore(db).ApproveClaim(context.Background(), testClaim(), Approval{
		ReviewedBy: &admin,
		Notes:      "documents checked",
		At:         at,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimStore_RejectWithVerification(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v := &models.GMBVerification{MatchConfidence: 95, FailureReason: "business already claimed"}

	t.Run("stores the verification on the rejected claim", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE claims SET status = 'rejected', gmb_verification = \$1, review_notes = \$2`).
			WithArgs(`{"match_confidence":95,"requires_manual_review":false,"failure_reason":"business already claimed","verified_at":"0001-01-01T00:00:00Z"}`,
				"business already claimed", at, "c-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = NewClaimStore(db).RejectWithVerification(context.Background(), "c-1", v, "business already claimed", at)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed claim", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE claims SET status = 'rejected'`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = NewClaimStore(db).RejectWithVerification(context.Background(), "c-1", v, "business already claimed", at)
		assert.ErrorIs(t, err, ErrClaimNotOpen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimStore_AttachVerification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE claims SET gmb_verification = \$1, status = 'pending'`).
		WithArgs(sqlmock.AnyArg(), at, "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewClaimStore(db).AttachVerification(context.Background(), "c-1",
		&models.GMBVerification{MatchConfidence: 40, FailureReason: "match confidence 40% below threshold"}, at)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimStore_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewClaimStore(db)
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	admin := "admin-1"

	mock.ExpectExec(`UPDATE claims SET status = \$1`).
		WithArgs("rejected", &admin, "no proof", at, "c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, store.UpdateStatus(context.Background(), "c-1", models.ClaimRejected, &admin, "no proof", at))

	mock.ExpectExec(`UPDATE claims SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = store.UpdateStatus(context.Background(), "c-2", models.ClaimNeedsInfo, &admin, "", at)
	assert.ErrorIs(t, err, ErrClaimNotOpen)

	assert.Error(t, store.UpdateStatus(context.Background(), "c-1", models.ClaimApproved, &admin, "", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
