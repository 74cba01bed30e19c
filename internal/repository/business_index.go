package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const candidateLimit = 25

// businessDocument is the search read model of a business.
type businessDocument struct {
	Name             string     `json:"name"`
	Address          string     `json:"address,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	City             string     `json:"city"`
	Category         string     `json:"category"`
	PlanTier         string     `json:"planTier"`
	Verified         bool       `json:"verified"`
	Claimed          bool       `json:"claimed"`
	ConfidenceScore  *int       `json:"confidenceScore,omitempty"`
	CategoryRanking  *int       `json:"categoryRanking,omitempty"`
	RankingUpdatedAt *time.Time `json:"rankingUpdatedAt,omitempty"`
}

func documentOf(b *models.Business) businessDocument {
	return businessDocument{
		Name:             b.Name,
		Address:          b.Address,
		Phone:            b.Phone,
		City:             b.City,
		Category:         b.CategoryID,
		PlanTier:         string(b.PlanTier),
		Verified:         b.Verified,
		Claimed:          b.Claimed,
		ConfidenceScore:  b.ConfidenceScore,
		CategoryRanking:  b.CategoryRanking,
		RankingUpdatedAt: b.RankingUpdatedAt,
	}
}

// BusinessIndex keeps the Elasticsearch business index in step with Postgres
// and serves fuzzy candidate searches for review attribution.
type BusinessIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewBusinessIndex(client *elasticsearch.Client, index string) *BusinessIndex {
	return &BusinessIndex{client: client, index: index}
}

func (i *BusinessIndex) Index() string {
	return i.index
}

func (i *BusinessIndex) IndexBusiness(ctx context.Context, b *models.Business) error {
	body, err := json.Marshal(documentOf(b))
	if err != nil {
		return fmt.Errorf("encode business %s: %w", b.ID, err)
	}

	res, err := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: b.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchIndexFailedError(i.index, fmt.Errorf("index %s: %s", b.ID, res.Status()))
	}
	return nil
}

// BulkUpdateRankings writes rank, score and timestamp onto the indexed
// documents of a freshly ranked cohort.
func (i *BusinessIndex) BulkUpdateRankings(ctx context.Context, rankings []models.RankedBusiness, at time.Time) error {
	if len(rankings) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rankings {
		meta := map[string]interface{}{
			"update": map[string]interface{}{"_index": i.index, "_id": r.BusinessID},
		}
		doc := map[string]interface{}{
			"doc": map[string]interface{}{
				"categoryRanking":  r.Rank,
				"rankingScore":     r.Score,
				"rankingUpdatedAt": at.UTC(),
			},
		}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	res, err := esapi.BulkRequest{Body: &buf}.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchIndexFailedError(i.index, fmt.Errorf("bulk: %s", res.Status()))
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !result.Errors {
		return nil
	}

	var failed []string
	for _, item := range result.Items {
		for _, op := range item {
			// documents not indexed yet are picked up by the next index-business run
			if op.Status >= 300 && op.Status != 404 {
				failed = append(failed, op.ID)
			}
		}
	}
	if len(failed) > 0 {
		return apperrors.NewSearchIndexFailedError(i.index, fmt.Errorf("bulk update failed for %s", strings.Join(failed, ", ")))
	}
	return nil
}

// SearchCandidates returns the businesses whose name or address loosely
// match ref, best first.
func (i *BusinessIndex) SearchCandidates(ctx context.Context, ref matching.ReviewBusinessRef) ([]models.Business, error) {
	var should []interface{}
	if ref.Name != "" {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"name": map[string]interface{}{"query": ref.Name, "fuzziness": "AUTO", "boost": 3},
			},
		})
	}
	if ref.Address != "" {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"address": map[string]interface{}{"query": ref.Address},
			},
		})
	}
	if len(should) == 0 {
		return nil, nil
	}

	query := map[string]interface{}{
		"size": candidateLimit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"should": should, "minimum_should_match": 1},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewSearchIndexFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, apperrors.NewSearchIndexFailedError(i.index, fmt.Errorf("search: %s %s", res.Status(), msg))
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID     string           `json:"_id"`
				Source businessDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]models.Business, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		d := h.Source
		out = append(out, models.Business{
			ID:              h.ID,
			Name:            d.Name,
			Address:         d.Address,
			Phone:           d.Phone,
			City:            d.City,
			CategoryID:      d.Category,
			PlanTier:        models.PlanTier(d.PlanTier),
			Verified:        d.Verified,
			Claimed:         d.Claimed,
			ConfidenceScore: d.ConfidenceScore,
		})
	}
	return out, nil
}
