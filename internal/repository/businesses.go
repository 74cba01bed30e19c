// Package repository holds the Postgres, Redis and Elasticsearch access used by
// the workers. Lookups return a nil value and a nil error on a miss.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"business-ranking-workers/internal/common/database"
	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"

	"github.com/lib/pq"
)

const businessColumns = `id, name, address, phone, normalized_phone, external_place_id,
	city, category_id, plan_tier, verified, claimed, claim_owner_id, claimed_at,
	speed_score, value_score, quality_score, reliability_score, confidence_score,
	city_ranking, category_ranking, ranking_updated_at, scores_updated_at`

type BusinessStore struct {
	db *sql.DB
}

func NewBusinessStore(db *sql.DB) *BusinessStore {
	return &BusinessStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBusiness(row rowScanner) (*models.Business, error) {
	var (
		b                                  models.Business
		address, phone, normPhone, placeID sql.NullString
		ownerID                            sql.NullString
		claimedAt, rankedAt, scoredAt      sql.NullTime
		speed, value, quality, reliability sql.NullInt64
		confidence, cityRank, categoryRank sql.NullInt64
		planTier                           string
	)
	err := row.Scan(
		&b.ID, &b.Name, &address, &phone, &normPhone, &placeID,
		&b.City, &b.CategoryID, &planTier, &b.Verified, &b.Claimed, &ownerID, &claimedAt,
		&speed, &value, &quality, &reliability, &confidence,
		&cityRank, &categoryRank, &rankedAt, &scoredAt,
	)
	if err != nil {
		return nil, err
	}

	b.Address = address.String
	b.Phone = phone.String
	b.NormalizedPhone = normPhone.String
	b.ExternalPlaceID = placeID.String
	b.PlanTier = models.PlanTier(planTier)
	b.ClaimOwnerID = nullString(ownerID)
	b.ClaimedAt = nullTime(claimedAt)
	b.SpeedScore = nullInt(speed)
	b.ValueScore = nullInt(value)
	b.QualityScore = nullInt(quality)
	b.ReliabilityScore = nullInt(reliability)
	b.ConfidenceScore = nullInt(confidence)
	b.CityRanking = nullInt(cityRank)
	b.CategoryRanking = nullInt(categoryRank)
	b.RankingUpdatedAt = nullTime(rankedAt)
	b.ScoresUpdatedAt = nullTime(scoredAt)
	return &b, nil
}

func (s *BusinessStore) queryOne(ctx context.Context, queryType, query string, args ...interface{}) (*models.Business, error) {
	b, err := scanBusiness(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.WrapError(queryType, err)
	}
	return b, nil
}

func (s *BusinessStore) queryMany(ctx context.Context, queryType, query string, args ...interface{}) ([]models.Business, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.WrapError(queryType, err)
	}
	defer rows.Close()

	var out []models.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, database.WrapError(queryType, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapError(queryType, err)
	}
	return out, nil
}

func (s *BusinessStore) FindByID(ctx context.Context, id string) (*models.Business, error) {
	return s.queryOne(ctx, "business_by_id",
		`SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id)
}

func (s *BusinessStore) FindByPlaceID(ctx context.Context, placeID string) (*models.Business, error) {
	return s.queryOne(ctx, "business_by_place_id",
		`SELECT `+businessColumns+` FROM businesses WHERE external_place_id = $1`, placeID)
}

// FindByNormalizedPhone uses the normalized_phone index. phone must already
// be reduced to digits.
func (s *BusinessStore) FindByNormalizedPhone(ctx context.Context, phone string) ([]models.Business, error) {
	return s.queryMany(ctx, "business_by_phone",
		`SELECT `+businessColumns+` FROM businesses WHERE normalized_phone = $1 ORDER BY id`, phone)
}

// ListCandidates scans the whole directory. It backs the fuzzy strategies when
// no search index is configured.
func (s *BusinessStore) ListCandidates(ctx context.Context, _ matching.ReviewBusinessRef) ([]models.Business, error) {
	return s.queryMany(ctx, "business_scan",
		`SELECT `+businessColumns+` FROM businesses ORDER BY id`)
}

// ListCohort returns every business of a city and category.
func (s *BusinessStore) ListCohort(ctx context.Context, city, category string) ([]models.Business, error) {
	return s.queryMany(ctx, "business_cohort",
		`SELECT `+businessColumns+` FROM businesses
		WHERE lower(city) = lower($1) AND lower(category_id) = lower($2)
		ORDER BY id`, city, category)
}

func (s *BusinessStore) UpdateConfidence(ctx context.Context, businessID string, confidence int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE businesses SET confidence_score = $1, updated_at = NOW() WHERE id = $2`,
		confidence, businessID)
	if err != nil {
		return database.WrapError("update_confidence", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
	}
	return nil
}

// UpdateRankings writes the cohort rank of every ranked business in one
// transaction. A business ranks the same within its city and its category
// because both are scoped to the same cohort. Cohort members missing from
// rankings lose their previous rank in the same transaction.
func (s *BusinessStore) UpdateRankings(ctx context.Context, city, category string, rankings []models.RankedBusiness, at time.Time) error {
	ids := make([]string, len(rankings))
	for i, r := range rankings {
		ids[i] = r.BusinessID
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE businesses SET city_ranking = NULL, category_ranking = NULL, ranking_updated_at = $1
			WHERE lower(city) = lower($2) AND lower(category_id) = lower($3)
			AND (city_ranking IS NOT NULL OR category_ranking IS NOT NULL)
			AND id <> ALL($4)`,
			at, city, category, pq.Array(ids))
		if err != nil {
			return database.WrapError("clear_rankings", err)
		}

		for _, r := range rankings {
			_, err := tx.ExecContext(ctx,
				`UPDATE businesses SET city_ranking = $1, category_ranking = $1, ranking_updated_at = $2 WHERE id = $3`,
				r.Rank, at, r.BusinessID)
			if err != nil {
				return database.WrapError("update_rankings", err)
			}
		}
		return nil
	})
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
