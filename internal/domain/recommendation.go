package domain

// Candidate is one entry of a ranked list returned by the scoring service.
// Score is nil when the service ranked without a query vector.
type Candidate struct {
	ID    string   `json:"id"`
	Score *float64 `json:"score,omitempty"`
}

type ScoredListing struct {
	Listing
	SimilarityScore *float64 `json:"similarityScore,omitempty"`
}

type RecommendationMeta struct {
	CacheHit    bool   `json:"cache_hit"`
	GeneratedAt string `json:"generated_at"`
	TotalCount  int    `json:"total_count"`
}

type RecommendationResult struct {
	Recommendations []ScoredListing
	Source          string
	CacheHit        bool
	// Degraded is set when the scoring service was unreachable and the
	// recommendations are a recency-sorted substitute.
	Degraded bool
	// NoSafeMatches is set when interactions produced candidates but every
	// one of them was removed by the price-ratio or similarity constraints
	// and fallback-on-filtered is disabled.
	NoSafeMatches bool
}
