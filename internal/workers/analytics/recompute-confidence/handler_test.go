// internal/workers/analytics/recompute-confidence/handler_test.go
package recomputeconfidence

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

var businessColumns = []string{
	"id", "name", "address", "phone", "normalized_phone", "external_place_id",
	"city", "category_id", "plan_tier", "verified", "claimed", "claim_owner_id", "claimed_at",
	"speed_score", "value_score", "quality_score", "reliability_score", "confidence_score",
	"city_ranking", "category_ranking", "ranking_updated_at", "scores_updated_at",
}

var reviewColumns = []string{
	"id", "review_id", "business_id", "rating", "comment", "user_name", "source", "verified",
	"created_at", "sentiment", "mention_speed", "mention_value", "mention_quality", "mention_reliability",
}

func createTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	h.scorer = h.scorer.WithClock(func() time.Time { return fixedNow })
	return h, mock
}

func addBusiness(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	return rows.AddRow(
		id, "Business "+id, nil, nil, nil, nil,
		"austin", "plumbing", "free", false, false, nil, nil,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil,
	)
}

// fiveVerifiedReviews scores 74: count 45.57, verification 100, mentions 68,
// sentiment 90, recency 100.
func fiveVerifiedReviews(businessID string) *sqlmock.Rows {
	rows := sqlmock.NewRows(reviewColumns)
	for i := 0; i < 5; i++ {
		rows.AddRow(
			"id", "r", businessID, 5, "great", "user", "gmb_api", true,
			fixedNow.Add(-time.Duration(i+1)*24*time.Hour), "positive",
			false, false, i < 4, false,
		)
	}
	return rows
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_SingleBusiness(t *testing.T) {
	handler, mock := createTestHandler(t)

	mock.ExpectQuery(`FROM businesses WHERE id = \$1`).
		WithArgs("biz-001").
		WillReturnRows(addBusiness(sqlmock.NewRows(businessColumns), "biz-001"))
	mock.ExpectQuery(`FROM reviews WHERE business_id = ANY\(\$1\)`).
		WillReturnRows(fiveVerifiedReviews("biz-001"))
	mock.ExpectExec(`UPDATE businesses SET confidence_score = \$1`).
		WithArgs(74, "biz-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{BusinessID: "biz-001"})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Processed)
	assert.Equal(t, 1, output.Updated)
	require.Len(t, output.Reports, 1)
	assert.Equal(t, 74, output.Reports[0].Confidence)
	assert.Equal(t, 5, output.Reports[0].AnalyzedReviews)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Cohort(t *testing.T) {
	handler, mock := createTestHandler(t)

	rows := sqlmock.NewRows(businessColumns)
	addBusiness(rows, "biz-001")
	addBusiness(rows, "biz-002")
	addBusiness(rows, "biz-003")

	mock.ExpectQuery(`FROM businesses WHERE lower\(city\) = lower\(\$1\) AND lower\(category_id\) = lower\(\$2\)`).
		WithArgs("Austin", "Plumbing").
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM reviews WHERE business_id = ANY\(\$1\)`).
		WillReturnRows(fiveVerifiedReviews("biz-001"))
	mock.ExpectExec(`UPDATE businesses SET confidence_score = \$1`).
		WithArgs(74, "biz-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// No analyzed reviews scores zero.
	mock.ExpectExec(`UPDATE businesses SET confidence_score = \$1`).
		WithArgs(0, "biz-002").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Deleted between the cohort read and the update.
	mock.ExpectExec(`UPDATE businesses SET confidence_score = \$1`).
		WithArgs(0, "biz-003").
		WillReturnResult(sqlmock.NewResult(0, 0))

	output, err := handler.Execute(context.Background(), &Input{City: "Austin", Category: "Plumbing"})

	require.NoError(t, err)
	assert.Equal(t, 3, output.Processed)
	assert.Equal(t, 2, output.Updated)
	assert.Equal(t, 1, output.Failed)
	require.Len(t, output.Errors, 1)
	assert.Equal(t, "biz-003", output.Errors[0].BusinessID)
	assert.Equal(t, "BUSINESS_NOT_FOUND", output.Errors[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_BusinessNotFound(t *testing.T) {
	handler, mock := createTestHandler(t)

	mock.ExpectQuery(`FROM businesses WHERE id = \$1`).
		WithArgs("biz-404").
		WillReturnRows(sqlmock.NewRows(businessColumns))

	_, err := handler.Execute(context.Background(), &Input{BusinessID: "biz-404"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBusinessNotFound, apperrors.Normalize(err).Code)
}

func TestHandler_Execute_MissingSelector(t *testing.T) {
	handler, _ := createTestHandler(t)

	_, err := handler.Execute(context.Background(), &Input{City: "Austin"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.Normalize(err).Code)
}

func TestHandler_Execute_ReviewQueryFails(t *testing.T) {
	handler, mock := createTestHandler(t)

	mock.ExpectQuery(`FROM businesses WHERE id = \$1`).
		WillReturnRows(addBusiness(sqlmock.NewRows(businessColumns), "biz-001"))
	mock.ExpectQuery(`FROM reviews WHERE business_id = ANY\(\$1\)`).
		WillReturnError(errors.New("relation \"reviews\" does not exist"))

	_, err := handler.Execute(context.Background(), &Input{BusinessID: "biz-001"})

	require.Error(t, err)
	assert.True(t, apperrors.Normalize(err).Retryable)
}
