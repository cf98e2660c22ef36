package domain

import "time"

const (
	TypeRent = "rent"
	TypeSale = "sale"
)

type Listing struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Price         float64   `json:"price"`
	DiscountPrice float64   `json:"discountPrice,omitempty"`
	Bedrooms      int       `json:"bedrooms"`
	Bathrooms     int       `json:"bathrooms"`
	AreaSqFt      float64   `json:"areaSqFt,omitempty"`
	Address       string    `json:"address"`
	City          string    `json:"city,omitempty"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EffectivePrice is the price buyers actually see: the discount price when one
// is set and positive, the regular price otherwise.
func (l Listing) EffectivePrice() float64 {
	if l.DiscountPrice > 0 {
		return l.DiscountPrice
	}
	return l.Price
}

// LastSearch is the visitor's most recent declared search query. It is only
// consulted when the visitor has no favorites or recently viewed listings.
type LastSearch struct {
	Budget   float64 `json:"budget,omitempty"`
	City     string  `json:"city,omitempty"`
	Bedrooms int     `json:"bedrooms,omitempty"`
	AreaMin  float64 `json:"areaMin,omitempty"`
	AreaMax  float64 `json:"areaMax,omitempty"`
}
