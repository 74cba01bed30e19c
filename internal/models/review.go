// internal/models/review.go
package models

import "time"

type ReviewSource string

const (
	SourceGMBAPI         ReviewSource = "gmb_api"
	SourceYelpImport     ReviewSource = "yelp_import"
	SourceFacebookImport ReviewSource = "facebook_import"
	SourceManual         ReviewSource = "manual"
	SourceDirect         ReviewSource = "direct"
)

func (s ReviewSource) Valid() bool {
	switch s {
	case SourceGMBAPI, SourceYelpImport, SourceFacebookImport, SourceManual, SourceDirect:
		return true
	}
	return false
}

type SentimentClass string

const (
	SentimentPositive SentimentClass = "positive"
	SentimentNeutral  SentimentClass = "neutral"
	SentimentNegative SentimentClass = "negative"
)

func (c SentimentClass) Valid() bool {
	switch c {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

type Sentiment struct {
	Classification SentimentClass `json:"classification"`
}

// Mentions are the classifier's flags for reviews that call out an aspect.
type Mentions struct {
	Speed       bool `json:"speed"`
	Value       bool `json:"value"`
	Quality     bool `json:"quality"`
	Reliability bool `json:"reliability"`
}

func (m Mentions) Count() int {
	n := 0
	for _, v := range []bool{m.Speed, m.Value, m.Quality, m.Reliability} {
		if v {
			n++
		}
	}
	return n
}

type Review struct {
	ID         string       `json:"id"`
	ReviewID   string       `json:"reviewId"`
	BusinessID string       `json:"businessId"`
	Rating     int          `json:"rating"`
	Comment    string       `json:"comment"`
	UserName   string       `json:"userName"`
	Source     ReviewSource `json:"source"`
	Verified   bool         `json:"verified"`
	CreatedAt  time.Time    `json:"createdAt"`
	Sentiment  *Sentiment   `json:"sentiment,omitempty"`
	Mentions   Mentions     `json:"mentions"`
}

// Analyzed reports whether the classifier has annotated the review.
// Unanalyzed reviews take no part in confidence or ranking.
func (r *Review) Analyzed() bool {
	return r.Sentiment != nil && r.Sentiment.Classification.Valid()
}

// AnalyzedOnly filters reviews down to the analyzed ones.
func AnalyzedOnly(reviews []Review) []Review {
	out := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Analyzed() {
			out = append(out, r)
		}
	}
	return out
}
