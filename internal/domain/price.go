package domain

// ModelStatus mirrors the pricing service's GET /model-status payload. It is
// owned by the remote service and only ever read here.
type ModelStatus struct {
	IsTrained     bool     `json:"is_trained"`
	TrainingCount int      `json:"training_count"`
	ModelType     string   `json:"model_type"`
	FeatureNames  []string `json:"feature_names"`
	LastTrained   string   `json:"last_trained,omitempty"`
}

// TrainingRow is one historical listing prepared for model training. Rows are
// built per training call and discarded once the call returns.
type TrainingRow struct {
	AreaSqFt  float64 `json:"area_sqft"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms int     `json:"bathrooms"`
	City      string  `json:"city"`
	Type      string  `json:"type"`
	AgeYears  int     `json:"age_years"`
	Price     float64 `json:"price"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type PricePrediction struct {
	PredictedPrice float64    `json:"predicted_price"`
	PriceRange     PriceRange `json:"price_range"`
	Confidence     float64    `json:"confidence_score"`
}
