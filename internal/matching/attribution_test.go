package matching

import (
	"context"
	"errors"
	"testing"

	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/similarity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDirectory struct {
	businesses []models.Business
	listCalls  int
	failWith   error
}

func (d *memDirectory) FindByPlaceID(_ context.Context, placeID string) (*models.Business, error) {
	if d.failWith != nil {
		return nil, d.failWith
	}
	for i := range d.businesses {
		if d.businesses[i].ExternalPlaceID == placeID {
			return &d.businesses[i], nil
		}
	}
	return nil, nil
}

func (d *memDirectory) FindByID(_ context.Context, id string) (*models.Business, error) {
	for i := range d.businesses {
		if d.businesses[i].ID == id {
			return &d.businesses[i], nil
		}
	}
	return nil, nil
}

func (d *memDirectory) FindByNormalizedPhone(_ context.Context, phone string) ([]models.Business, error) {
	var out []models.Business
	for _, b := range d.businesses {
		if similarity.NormalizePhone(b.Phone) == phone {
			out = append(out, b)
		}
	}
	return out, nil
}

func (d *memDirectory) ListCandidates(_ context.Context, _ ReviewBusinessRef) ([]models.Business, error) {
	d.listCalls++
	return d.businesses, nil
}

func testDirectory() *memDirectory {
	return &memDirectory{businesses: []models.Business{
		{ID: "b-1", Name: "Joe's Plumbing", Phone: "(512) 555-0100", Address: "123 Main St, Austin TX", ExternalPlaceID: "place-1"},
		{ID: "b-2", Name: "Sparky Electric LLC", Phone: "512-555-0200", Address: "9 Elm Road, Austin TX"},
		{ID: "b-3", Name: "Green Thumb Landscaping", Phone: "512-555-0300", Address: "400 Congress Avenue Suite 10, Austin TX 78701"},
	}}
}

func TestAttribute_Cascade(t *testing.T) {
	tests := []struct {
		name       string
		ref        ReviewBusinessRef
		businessID string
		strategy   Strategy
		confidence float64
	}{
		{
			name:       "place id wins over everything",
			ref:        ReviewBusinessRef{PlaceID: "place-1", BusinessID: "b-2", Name: "Sparky Electric LLC"},
			businessID: "b-1",
			strategy:   StrategyPlaceID,
			confidence: 100,
		},
		{
			name:       "unknown place id falls through to business id",
			ref:        ReviewBusinessRef{PlaceID: "place-404", BusinessID: "b-2"},
			businessID: "b-2",
			strategy:   StrategyBusinessID,
			confidence: 100,
		},
		{
			name:       "normalized name and phone",
			ref:        ReviewBusinessRef{Name: "SPARKY ELECTRIC, LLC", Phone: "(512) 555 0200"},
			businessID: "b-2",
			strategy:   StrategyNamePhone,
			confidence: 95,
		},
		{
			name:       "fuzzy name above threshold",
			ref:        ReviewBusinessRef{Name: "Green Thumb Landscapng"},
			businessID: "b-3",
			strategy:   StrategyFuzzyName,
			confidence: 100 * 22.0 / 23.0,
		},
		{
			name:       "address containment",
			ref:        ReviewBusinessRef{Name: "GT Lawn Care", Address: "400 Congress Ave"},
			businessID: "b-3",
			strategy:   StrategyAddress,
			confidence: 80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAttributor(testDirectory(), DefaultConfig())

			got, err := a.Attribute(context.Background(), tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.businessID, got.Business.ID)
			assert.Equal(t, tt.strategy, got.Strategy)
			assert.InDelta(t, tt.confidence, got.Confidence, 0.001)
		})
	}
}

func TestAttribute_PhoneWithDifferentNameIsNotExact(t *testing.T) {
	dir := testDirectory()
	a := NewAttributor(dir, DefaultConfig())

	_, err := a.Attribute(context.Background(), ReviewBusinessRef{Name: "Totally Different Co", Phone: "5125550100"})

	assert.ErrorIs(t, err, ErrNoBusinessMatch)
	assert.Equal(t, 1, dir.listCalls)
}

func TestAttribute_NoMatchCarriesName(t *testing.T) {
	a := NewAttributor(testDirectory(), DefaultConfig())

	_, err := a.Attribute(context.Background(), ReviewBusinessRef{Name: "Nobody Knows Inc", Address: "1 Nowhere Lane, Boise"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBusinessMatch))
	var nm *NoMatchError
	require.True(t, errors.As(err, &nm))
	assert.Equal(t, "Nobody Knows Inc", nm.Name)
}

func TestAttribute_FuzzyThresholdIsExclusive(t *testing.T) {
	dir := &memDirectory{businesses: []models.Business{{ID: "b-1", Name: "abcdefghijklmnopqrst"}}}
	a := NewAttributor(dir, DefaultConfig())

	// exactly 85 does not qualify
	_, err := a.Attribute(context.Background(), ReviewBusinessRef{Name: "abcdefghijklmnopqxyz"})
	assert.ErrorIs(t, err, ErrNoBusinessMatch)

	got, err := a.Attribute(context.Background(), ReviewBusinessRef{Name: "abcdefghijklmnopqryz"})
	require.NoError(t, err)
	assert.Equal(t, StrategyFuzzyName, got.Strategy)
	assert.InDelta(t, 90, got.Confidence, 0.001)
}

func TestAttribute_EmptyRefSkipsScan(t *testing.T) {
	dir := testDirectory()
	_, err := NewAttributor(dir, DefaultConfig()).Attribute(context.Background(), ReviewBusinessRef{})

	assert.ErrorIs(t, err, ErrNoBusinessMatch)
	assert.Equal(t, 0, dir.listCalls)
}

func TestAttribute_DirectoryError(t *testing.T) {
	dir := testDirectory()
	dir.failWith = errors.New("connection reset")

	_, err := NewAttributor(dir, DefaultConfig()).Attribute(context.Background(), ReviewBusinessRef{PlaceID: "place-1"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoBusinessMatch)
	assert.Contains(t, err.Error(), "connection reset")
}
