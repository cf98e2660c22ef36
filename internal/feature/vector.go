package feature

import (
	"time"

	"github.com/proplens/property-recommendation-service/internal/domain"
)

// Component order inside a feature vector.
const (
	idxPrice = iota
	idxCity
	idxArea
	idxBedrooms
	idxBathrooms
	idxType
	vectorLen
)

const bedroomAreaHeuristic = 400

// Weights is the fixed importance table applied to each normalized component,
// ordered by descending business priority.
type Weights struct {
	Price     float64
	City      float64
	Area      float64
	Bedrooms  float64
	Bathrooms float64
	Type      float64
}

func DefaultWeights() Weights {
	return Weights{
		Price:     15.0,
		City:      12.0,
		Area:      8.0,
		Bedrooms:  4.0,
		Bathrooms: 4.0,
		Type:      2.0,
	}
}

// Vector is one listing's weighted feature encoding, carrying the source id
// and creation time needed for cold-start recency filtering.
type Vector struct {
	ID        string
	CreatedAt time.Time
	Values    []float64
}

// Batch holds the vectors for one catalog snapshot together with the
// normalization context they were built under, so query vectors derived from
// a last search are comparable with the listing vectors.
type Batch struct {
	Vectors []Vector

	weights            Weights
	priceLo, priceHi   float64
	areaLo, areaHi     float64
	bedLo, bedHi       float64
	cities             *Vocabulary
	types              *Vocabulary
	byID               map[string]int
}

type Builder struct {
	weights Weights
}

func NewBuilder(w Weights) *Builder {
	return &Builder{weights: w}
}

// EffectiveArea is the area signal for a listing: the recorded area when
// present, else bedrooms x 400 as a rough floor-space proxy.
func EffectiveArea(l domain.Listing) float64 {
	if l.AreaSqFt > 0 {
		return l.AreaSqFt
	}
	return float64(l.Bedrooms) * bedroomAreaHeuristic
}

// Build converts a catalog snapshot into one weighted vector per listing.
// Every numeric component is min-max normalized within the snapshot and the
// categorical components use a snapshot-wide vocabulary, so all vectors of
// one request are mutually comparable.
func (b *Builder) Build(listings []domain.Listing) *Batch {
	n := len(listings)
	prices := make([]float64, n)
	areas := make([]float64, n)
	bedrooms := make([]float64, n)
	bathrooms := make([]float64, n)
	cityNames := make([]string, n)
	typeNames := make([]string, n)

	for i, l := range listings {
		prices[i] = l.EffectivePrice()
		areas[i] = EffectiveArea(l)
		bedrooms[i] = float64(l.Bedrooms)
		bathrooms[i] = float64(l.Bathrooms)
		cityNames[i] = ListingCity(l)
		typeNames[i] = l.Type
	}

	batch := &Batch{
		weights: b.weights,
		cities:  NewVocabulary(cityNames),
		types:   NewVocabulary(typeNames),
		byID:    make(map[string]int, n),
	}
	if n > 0 {
		batch.priceLo, batch.priceHi = minMax(prices)
		batch.areaLo, batch.areaHi = minMax(areas)
		batch.bedLo, batch.bedHi = minMax(bedrooms)
	}

	normPrice := Normalize(prices)
	normArea := Normalize(areas)
	normBedrooms := Normalize(bedrooms)
	normBathrooms := Normalize(bathrooms)

	batch.Vectors = make([]Vector, n)
	for i, l := range listings {
		values := make([]float64, vectorLen)
		values[idxPrice] = normPrice[i] * b.weights.Price
		values[idxCity] = batch.cities.Code(cityNames[i]) * b.weights.City
		values[idxArea] = normArea[i] * b.weights.Area
		values[idxBedrooms] = normBedrooms[i] * b.weights.Bedrooms
		values[idxBathrooms] = normBathrooms[i] * b.weights.Bathrooms
		values[idxType] = batch.types.Code(typeNames[i]) * b.weights.Type

		batch.Vectors[i] = Vector{ID: l.ID, CreatedAt: l.CreatedAt, Values: values}
		batch.byID[l.ID] = i
	}

	return batch
}

// VectorByID returns the vector built for the given listing id.
func (b *Batch) VectorByID(id string) (Vector, bool) {
	idx, ok := b.byID[id]
	if !ok {
		return Vector{}, false
	}
	return b.Vectors[idx], true
}

// SearchVector derives a query vector from a declared search, normalized
// against the same snapshot context as the listing vectors. Fields the
// visitor left out stay at the zero component.
func (b *Batch) SearchVector(q domain.LastSearch) []float64 {
	values := make([]float64, vectorLen)
	if q.Budget > 0 {
		values[idxPrice] = scale(q.Budget, b.priceLo, b.priceHi) * b.weights.Price
	}
	if q.City != "" {
		values[idxCity] = b.cities.Code(q.City) * b.weights.City
	}
	if q.AreaMin > 0 || q.AreaMax > 0 {
		values[idxArea] = scale(searchArea(q), b.areaLo, b.areaHi) * b.weights.Area
	}
	if q.Bedrooms > 0 {
		values[idxBedrooms] = scale(float64(q.Bedrooms), b.bedLo, b.bedHi) * b.weights.Bedrooms
	}
	return values
}

// searchArea collapses an area range to its midpoint; a half-open range uses
// the declared bound.
func searchArea(q domain.LastSearch) float64 {
	switch {
	case q.AreaMin > 0 && q.AreaMax > 0:
		return (q.AreaMin + q.AreaMax) / 2
	case q.AreaMax > 0:
		return q.AreaMax
	default:
		return q.AreaMin
	}
}
