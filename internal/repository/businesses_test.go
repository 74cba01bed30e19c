package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var businessColumnNames = []string{
	"id", "name", "address", "phone", "normalized_phone", "external_place_id",
	"city", "category_id", "plan_tier", "verified", "claimed", "claim_owner_id", "claimed_at",
	"speed_score", "value_score", "quality_score", "reliability_score", "confidence_score",
	"city_ranking", "category_ranking", "ranking_updated_at", "scores_updated_at",
}

func businessRows() *sqlmock.Rows {
	return sqlmock.NewRows(businessColumnNames)
}

func addBusiness(rows *sqlmock.Rows, id, name string) *sqlmock.Rows {
	return rows.AddRow(
		id, name, "123 Main St", "(512) 555-0100", "5125550100", nil,
		"austin", "plumbing", "free", false, false, nil, nil,
		int64(80), nil, int64(70), nil, nil,
		nil, nil, nil, nil,
	)
}

func TestBusinessStore_FindByPlaceID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	claimedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE external_place_id = \$1`).
		WithArgs("place-1").
		WillReturnRows(businessRows().AddRow(
			"b-1", "Joe's Plumbing", "123 Main St", "(512) 555-0100", "5125550100", "place-1",
			"austin", "plumbing", "pro", true, true, "u-1", claimedAt,
			int64(80), int64(75), int64(70), int64(65), int64(74),
			int64(2), int64(2), claimedAt, claimedAt,
		))

	b, err := NewBusinessStore(db).FindByPlaceID(context.Background(), "place-1")
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, "b-1", b.ID)
	assert.Equal(t, models.PlanPro, b.PlanTier)
	assert.True(t, b.Claimed)
	require.NotNil(t, b.ClaimOwnerID)
	assert.Equal(t, "u-1", *b.ClaimOwnerID)
	assert.Equal(t, claimedAt, *b.ClaimedAt)
	assert.Equal(t, 65, *b.ReliabilityScore)
	assert.Equal(t, 74, *b.ConfidenceScore)
	assert.Equal(t, 2, *b.CategoryRanking)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessStore_NullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE id = \$1`).
		WithArgs("b-1").
		WillReturnRows(addBusiness(businessRows(), "b-1", "Joe's Plumbing"))

	b, err := NewBusinessStore(db).FindByID(context.Background(), "b-1")
	require.NoError(t, err)

	assert.Equal(t, 80, *b.SpeedScore)
	assert.Nil(t, b.ValueScore)
	assert.Nil(t, b.ConfidenceScore)
	assert.Nil(t, b.ClaimOwnerID)
	assert.Nil(t, b.RankingUpdatedAt)
	assert.Empty(t, b.ExternalPlaceID)
}

func TestBusinessStore_Miss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(businessRows())

	b, err := NewBusinessStore(db).FindByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, b)
}

func TestBusinessStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE normalized_phone = \$1`).
		WithArgs("5125550100").
		WillReturnError(context.DeadlineExceeded)

	_, err = NewBusinessStore(db).FindByNormalizedPhone(context.Background(), "5125550100")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeQueryTimeout, apperrors.Normalize(err).Code)
}

func TestBusinessStore_Lists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewBusinessStore(db)
	ctx := context.Background()

	rows := addBusiness(addBusiness(businessRows(), "b-1", "Joe's Plumbing"), "b-2", "Joe's Plumbing Too")
	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE normalized_phone = \$1 ORDER BY id`).
		WithArgs("5125550100").
		WillReturnRows(rows)

	byPhone, err := store.FindByNormalizedPhone(ctx, "5125550100")
	require.NoError(t, err)
	assert.Len(t, byPhone, 2)

	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE lower\(city\) = lower\(\$1\) AND lower\(category_id\) = lower\(\$2\)`).
		WithArgs("Austin", "plumbing").
		WillReturnRows(addBusiness(businessRows(), "b-1", "Joe's Plumbing"))

	cohort, err := store.ListCohort(ctx, "Austin", "plumbing")
	require.NoError(t, err)
	require.Len(t, cohort, 1)
	assert.Equal(t, "b-1", cohort[0].ID)

	mock.ExpectQuery(`SELECT (.+) FROM businesses ORDER BY id`).
		WillReturnRows(businessRows())

	all, err := store.ListCandidates(ctx, matching.ReviewBusinessRef{Name: "x"})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessStore_UpdateConfidence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewBusinessStore(db)

	mock.ExpectExec(`UPDATE businesses SET confidence_score = \$1`).
		WithArgs(74, "b-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, store.UpdateConfidence(context.Background(), "b-1", 74))

	mock.ExpectExec(`UPDATE businesses SET confidence_score = \$1`).
		WithArgs(10, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = store.UpdateConfidence(context.Background(), "gone", 10)
	assert.ErrorIs(t, err, ErrBusinessNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessStore_UpdateRankings(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rankings := []models.RankedBusiness{
		{BusinessID: "b-2", Rank: 1, Score: 81.5},
		{BusinessID: "b-1", Rank: 2, Score: 70},
	}
	clearStale := `UPDATE businesses SET city_ranking = NULL, category_ranking = NULL, ranking_updated_at = \$1 ` +
		`WHERE lower\(city\) = lower\(\$2\) AND lower\(category_id\) = lower\(\$3\) (.+) AND id <> ALL\(\$4\)`

	t.Run("writes every rank in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(clearStale).
			WithArgs(at, "Austin", "Plumbing", pq.Array([]string{"b-2", "b-1"})).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE businesses SET city_ranking = \$1, category_ranking = \$1`).
			WithArgs(1, at, "b-2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE businesses SET city_ranking = \$1, category_ranking = \$1`).
			WithArgs(2, at, "b-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewBusinessStore(db).UpdateRankings(context.Background(), "Austin", "Plumbing", rankings, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when clearing stale ranks fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(clearStale).
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err = NewBusinessStore(db).UpdateRankings(context.Background(), "Austin", "Plumbing", rankings, at)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, apperrors.Normalize(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when a rank write fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(clearStale).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE businesses SET city_ranking = \$1`).
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err = NewBusinessStore(db).UpdateRankings(context.Background(), "Austin", "Plumbing", rankings, at)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, apperrors.Normalize(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty run clears the whole cohort", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(clearStale).
			WithArgs(at, "Austin", "Plumbing", pq.Array([]string{})).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		assert.NoError(t, NewBusinessStore(db).UpdateRankings(context.Background(), "Austin", "Plumbing", nil, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
