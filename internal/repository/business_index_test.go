package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeIndex(t *testing.T, handler http.HandlerFunc) *BusinessIndex {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewBusinessIndex(client, "businesses")
}

func TestBusinessIndex_IndexBusiness(t *testing.T) {
	var doc map[string]interface{}
	index := newFakeIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/businesses/_doc/b-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	confidence := 74
	err := index.IndexBusiness(context.Background(), &models.Business{
		ID: "b-1", Name: "Joe's Plumbing", City: "austin", CategoryID: "plumbing",
		PlanTier: models.PlanPro, Verified: true, ConfidenceScore: &confidence,
	})
	require.NoError(t, err)

	assert.Equal(t, "Joe's Plumbing", doc["name"])
	assert.Equal(t, "plumbing", doc["category"])
	assert.Equal(t, "pro", doc["planTier"])
	assert.Equal(t, float64(74), doc["confidenceScore"])
	assert.NotContains(t, doc, "categoryRanking")
}

func TestBusinessIndex_IndexBusinessError(t *testing.T) {
	index := newFakeIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := index.IndexBusiness(context.Background(), &models.Business{ID: "b-1"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSearchIndexFailed, apperrors.Normalize(err).Code)
}

func TestBusinessIndex_BulkUpdateRankings(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rankings := []models.RankedBusiness{
		{BusinessID: "b-2", Rank: 1, Score: 81.5},
		{BusinessID: "b-1", Rank: 2, Score: 70},
	}

	t.Run("sends one update per business", func(t *testing.T) {
		var lines []map[string]interface{}
		index := newFakeIndex(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/_bulk", r.URL.Path)
			scanner := bufio.NewScanner(r.Body)
			for scanner.Scan() {
				var line map[string]interface{}
				require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
				lines = append(lines, line)
			}
			_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
		})

		require.NoError(t, index.BulkUpdateRankings(context.Background(), rankings, at))
		require.Len(t, lines, 4)
		meta := lines[0]["update"].(map[string]interface{})
		assert.Equal(t, "b-2", meta["_id"])
		assert.Equal(t, "businesses", meta["_index"])
		doc := lines[1]["doc"].(map[string]interface{})
		assert.Equal(t, float64(1), doc["categoryRanking"])
		assert.Equal(t, 81.5, doc["rankingScore"])
	})

	t.Run("missing documents are tolerated", func(t *testing.T) {
		index := newFakeIndex(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			_, _ = w.Write([]byte(`{"errors":true,"items":[
				{"update":{"_id":"b-2","status":200}},
				{"update":{"_id":"b-1","status":404}}]}`))
		})

		assert.NoError(t, index.BulkUpdateRankings(context.Background(), rankings, at))
	})

	t.Run("other item failures are reported", func(t *testing.T) {
		index := newFakeIndex(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			_, _ = w.Write([]byte(`{"errors":true,"items":[
				{"update":{"_id":"b-2","status":429}},
				{"update":{"_id":"b-1","status":200}}]}`))
		})

		err := index.BulkUpdateRankings(context.Background(), rankings, at)
		require.Error(t, err)
		assert.Contains(t, apperrors.Normalize(err).Details, "b-2")
	})

	t.Run("no rankings makes no request", func(t *testing.T) {
		index := newFakeIndex(t, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s", r.URL.Path)
		})
		assert.NoError(t, index.BulkUpdateRankings(context.Background(), nil, at))
	})
}

func TestBusinessIndex_SearchCandidates(t *testing.T) {
	var query map[string]interface{}
	index := newFakeIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"b-3","_source":{"name":"Green Thumb Landscaping","address":"400 Congress Ave","city":"austin","category":"landscaping","planTier":"free"}},
			{"_id":"b-9","_source":{"name":"Green Team","city":"austin","category":"cleaning","planTier":"pro","verified":true}}
		]}}`))
	})

	got, err := index.SearchCandidates(context.Background(), matching.ReviewBusinessRef{Name: "Green Thumb", Address: "400 Congress"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "b-3", got[0].ID)
	assert.Equal(t, "landscaping", got[0].CategoryID)
	assert.Equal(t, "400 Congress Ave", got[0].Address)
	assert.True(t, got[1].Verified)

	assert.Equal(t, float64(candidateLimit), query["size"])
	should := query["query"].(map[string]interface{})["bool"].(map[string]interface{})["should"].([]interface{})
	assert.Len(t, should, 2)
}

func TestBusinessIndex_SearchCandidatesEmptyRef(t *testing.T) {
	index := newFakeIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	got, err := index.SearchCandidates(context.Background(), matching.ReviewBusinessRef{})
	assert.NoError(t, err)
	assert.Empty(t, got)
}
