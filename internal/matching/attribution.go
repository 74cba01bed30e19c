package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/similarity"
)

type Strategy string

const (
	StrategyPlaceID    Strategy = "place_id"
	StrategyBusinessID Strategy = "business_id"
	StrategyNamePhone  Strategy = "name_phone"
	StrategyFuzzyName  Strategy = "fuzzy_name"
	StrategyAddress    Strategy = "address"
)

const (
	exactConfidence     = 100
	namePhoneConfidence = 95
	addressConfidence   = 80
)

var ErrNoBusinessMatch = errors.New("BUSINESS_NOT_FOUND")

// NoMatchError is returned when every strategy fails. It carries the name
// the import tried to resolve.
type NoMatchError struct {
	Name string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no business matches %q", e.Name)
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoBusinessMatch
}

// Directory looks up listed businesses. Lookups return a nil business and a
// nil error on a miss.
type Directory interface {
	FindByPlaceID(ctx context.Context, placeID string) (*models.Business, error)
	FindByID(ctx context.Context, id string) (*models.Business, error)
	FindByNormalizedPhone(ctx context.Context, phone string) ([]models.Business, error)
	// ListCandidates returns the businesses considered by the fuzzy name and
	// address strategies.
	ListCandidates(ctx context.Context, ref ReviewBusinessRef) ([]models.Business, error)
}

// ReviewBusinessRef is the business description carried by an imported review.
type ReviewBusinessRef struct {
	PlaceID    string `json:"placeId,omitempty"`
	BusinessID string `json:"businessId,omitempty"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
}

type Attribution struct {
	Business   *models.Business
	Strategy   Strategy
	Confidence float64
}

type Attributor struct {
	dir Directory
	cfg Config
}

func NewAttributor(dir Directory, cfg Config) *Attributor {
	return &Attributor{dir: dir, cfg: cfg}
}

// Attribute runs the strategies from most to least exact and returns the
// first hit.
func (a *Attributor) Attribute(ctx context.Context, ref ReviewBusinessRef) (*Attribution, error) {
	if ref.PlaceID != "" {
		b, err := a.dir.FindByPlaceID(ctx, ref.PlaceID)
		if err != nil {
			return nil, fmt.Errorf("lookup by place id: %w", err)
		}
		if b != nil {
			return &Attribution{Business: b, Strategy: StrategyPlaceID, Confidence: exactConfidence}, nil
		}
	}

	if ref.BusinessID != "" {
		b, err := a.dir.FindByID(ctx, ref.BusinessID)
		if err != nil {
			return nil, fmt.Errorf("lookup by business id: %w", err)
		}
		if b != nil {
			return &Attribution{Business: b, Strategy: StrategyBusinessID, Confidence: exactConfidence}, nil
		}
	}

	name := similarity.NormalizeName(ref.Name)
	if phone := similarity.NormalizePhone(ref.Phone); phone != "" && name != "" {
		matches, err := a.dir.FindByNormalizedPhone(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("lookup by phone: %w", err)
		}
		for i := range matches {
			if similarity.NormalizeName(matches[i].Name) == name {
				return &Attribution{Business: &matches[i], Strategy: StrategyNamePhone, Confidence: namePhoneConfidence}, nil
			}
		}
	}

	address := similarity.NormalizeAddress(ref.Address)
	if name == "" && address == "" {
		return nil, &NoMatchError{Name: ref.Name}
	}

	candidates, err := a.dir.ListCandidates(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	if name != "" {
		best, bestScore := -1, 0.0
		for i := range candidates {
			score := similarity.StringSimilarity(name, similarity.NormalizeName(candidates[i].Name))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 && bestScore > a.cfg.FuzzyNameThreshold {
			return &Attribution{Business: &candidates[best], Strategy: StrategyFuzzyName, Confidence: bestScore}, nil
		}
	}

	if address != "" {
		for i := range candidates {
			other := similarity.NormalizeAddress(candidates[i].Address)
			if other == "" {
				continue
			}
			if strings.Contains(other, address) || strings.Contains(address, other) {
				return &Attribution{Business: &candidates[i], Strategy: StrategyAddress, Confidence: addressConfidence}, nil
			}
		}
	}

	return nil, &NoMatchError{Name: ref.Name}
}
