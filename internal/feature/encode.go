package feature

import (
	"strings"

	"github.com/proplens/property-recommendation-service/internal/domain"
)

const unknownCity = "unknown"

// ExtractCity pulls the city token out of a free-text address. Addresses are
// assumed to follow the "street, city, state" convention, so the second-to-last
// non-empty comma segment wins when at least two segments exist.
func ExtractCity(address string) string {
	parts := strings.Split(address, ",")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	switch {
	case len(segments) >= 2:
		return segments[len(segments)-2]
	case len(segments) == 1:
		return segments[0]
	default:
		return unknownCity
	}
}

// ListingCity resolves a listing's city: the explicit field when set, else the
// address-derived token.
func ListingCity(l domain.Listing) string {
	if l.City != "" {
		return l.City
	}
	return ExtractCity(l.Address)
}

// Vocabulary maps categorical values to normalized ordinal codes. Values are
// registered case-insensitively in first-seen order, and each code is the
// value's position divided by max(1, n-1) so codes span [0,1]. A vocabulary is
// built once per request from the catalog snapshot and reused for every
// scoring call in that request, keeping codes stable within the request.
type Vocabulary struct {
	index map[string]int
	size  int
}

func NewVocabulary(values []string) *Vocabulary {
	v := &Vocabulary{index: make(map[string]int)}
	for _, raw := range values {
		key := strings.ToLower(strings.TrimSpace(raw))
		if _, seen := v.index[key]; !seen {
			v.index[key] = v.size
			v.size++
		}
	}
	return v
}

func (v *Vocabulary) Len() int { return v.size }

// Code returns the normalized ordinal for val, or 0 for values the vocabulary
// has never seen.
func (v *Vocabulary) Code(val string) float64 {
	idx, ok := v.index[strings.ToLower(strings.TrimSpace(val))]
	if !ok {
		return 0
	}
	div := v.size - 1
	if div < 1 {
		div = 1
	}
	return float64(idx) / float64(div)
}

// HashCode is the stable categorical encoding shared with the pricing service:
// the sum of the value's character codes mod 100, over 100. Empty values
// encode to 0.5. Unlike Vocabulary codes it does not depend on the batch.
func HashCode(val string) float64 {
	if val == "" {
		return 0.5
	}
	sum := 0
	for _, r := range val {
		sum += int(r)
	}
	return float64(sum%100) / 100.0
}

// TypeCode is the hard binary split used on the price path, where a single
// property has no batch to encode against.
func TypeCode(propertyType string) float64 {
	switch strings.ToLower(strings.TrimSpace(propertyType)) {
	case domain.TypeRent:
		return 0.0
	case domain.TypeSale:
		return 1.0
	default:
		return 0.5
	}
}
