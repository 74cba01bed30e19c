package matching

// Config holds the claim matching weights and thresholds. Weights apply to
// 0-100 sub-scores and should sum to 1.
type Config struct {
	NameWeight            float64
	AddressWeight         float64
	PhoneWeight           float64
	AutoVerifyThreshold   int
	ManualReviewThreshold int
	FuzzyNameThreshold    float64
}

func DefaultConfig() Config {
	return Config{
		NameWeight:            0.50,
		AddressWeight:         0.35,
		PhoneWeight:           0.15,
		AutoVerifyThreshold:   85,
		ManualReviewThreshold: 60,
		FuzzyNameThreshold:    85,
	}
}
