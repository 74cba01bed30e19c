package repository

import (
	"context"
	"database/sql"

	"business-ranking-workers/internal/common/database"
	"business-ranking-workers/internal/models"

	"github.com/lib/pq"
)

const reviewColumns = `id, review_id, business_id, rating, comment, user_name, source, verified,
	created_at, sentiment, mention_speed, mention_value, mention_quality, mention_reliability`

type ReviewStore struct {
	db *sql.DB
}

func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func scanReview(row rowScanner) (*models.Review, error) {
	var (
		r         models.Review
		comment   sql.NullString
		userName  sql.NullString
		source    string
		sentiment sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.ReviewID, &r.BusinessID, &r.Rating, &comment, &userName, &source, &r.Verified,
		&r.CreatedAt, &sentiment,
		&r.Mentions.Speed, &r.Mentions.Value, &r.Mentions.Quality, &r.Mentions.Reliability,
	)
	if err != nil {
		return nil, err
	}
	r.Comment = comment.String
	r.UserName = userName.String
	r.Source = models.ReviewSource(source)
	if sentiment.Valid && sentiment.String != "" {
		r.Sentiment = &models.Sentiment{Classification: models.SentimentClass(sentiment.String)}
	}
	return &r, nil
}

func (s *ReviewStore) ReviewExists(ctx context.Context, reviewID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE review_id = $1)`, reviewID).Scan(&exists)
	if err != nil {
		return false, database.WrapError("review_exists", err)
	}
	return exists, nil
}

func (s *ReviewStore) ListByBusiness(ctx context.Context, businessID string) ([]models.Review, error) {
	byBusiness, err := s.ListByBusinesses(ctx, []string{businessID})
	if err != nil {
		return nil, err
	}
	return byBusiness[businessID], nil
}

// ListByBusinesses loads the reviews of several businesses in one query,
// keyed by business id.
func (s *ReviewStore) ListByBusinesses(ctx context.Context, businessIDs []string) (map[string][]models.Review, error) {
	out := make(map[string][]models.Review, len(businessIDs))
	if len(businessIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE business_id = ANY($1) ORDER BY created_at DESC`,
		pq.Array(businessIDs))
	if err != nil {
		return nil, database.WrapError("reviews_by_business", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, database.WrapError("reviews_by_business", err)
		}
		out[r.BusinessID] = append(out[r.BusinessID], *r)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapError("reviews_by_business", err)
	}
	return out, nil
}

// Insert stores a new review. A concurrent import of the same external id
// loses the race and gets ErrDuplicateReview.
func (s *ReviewStore) Insert(ctx context.Context, r *models.Review) error {
	var sentiment sql.NullString
	if r.Sentiment != nil {
		sentiment = sql.NullString{String: string(r.Sentiment.Classification), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (review_id) DO NOTHING`,
		r.ID, r.ReviewID, r.BusinessID, r.Rating, r.Comment, r.UserName, string(r.Source), r.Verified,
		r.CreatedAt, sentiment,
		r.Mentions.Speed, r.Mentions.Value, r.Mentions.Quality, r.Mentions.Reliability,
	)
	if err != nil {
		return database.WrapError("insert_review", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateReview
	}
	return nil
}
