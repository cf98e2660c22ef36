package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/proplens/property-recommendation-service/internal/ai"
	"github.com/proplens/property-recommendation-service/internal/config"
	"github.com/proplens/property-recommendation-service/internal/domain"
	"github.com/proplens/property-recommendation-service/internal/feature"
	"github.com/proplens/property-recommendation-service/internal/logger"
)

const minCandidateFetch = 20

// Scorer is the outbound ranking dependency, satisfied by ai.Client.
type Scorer interface {
	Recommend(ctx context.Context, req ai.RecommendRequest) ([]domain.Candidate, error)
}

// Source records which signal produced a recommendation set.
type Source string

const (
	SourceNone         Source = "none"
	SourceInteractions Source = "interactions"
	SourceLastSearch   Source = "last_search"
	SourceColdStart    Source = "cold_start"
	// SourceFiltered means interactions returned candidates but the hard
	// constraints removed all of them and fallback-on-filtered is off.
	SourceFiltered Source = "filtered"
)

type Input struct {
	Listings   []domain.Listing
	Favorites  []string
	Recent     []string
	LastSearch *domain.LastSearch
	TopN       int
}

type Result struct {
	Candidates []domain.Candidate
	Source     Source
}

// Engine fuses per-interaction candidate lists into one diverse result.
// Interactions are scored sequentially, one at a time, which bounds the
// concurrent load placed on the scoring service.
type Engine struct {
	scorer  Scorer
	builder *feature.Builder
	cfg     config.RecommendConfig
	log     logger.Logger
	now     func() time.Time
}

func NewEngine(scorer Scorer, cfg config.RecommendConfig, log logger.Logger) *Engine {
	return &Engine{
		scorer:  scorer,
		builder: feature.NewBuilder(feature.DefaultWeights()),
		cfg:     cfg,
		log:     log.WithFields(map[string]interface{}{"component": "fusion-engine"}),
		now:     time.Now,
	}
}

// Recommend walks the signal ladder: per-interaction candidate collection and
// round-robin fusion, then the last-search query, then cold start. A visitor
// with no signal at all gets an empty result so new accounts never see an
// identical static top-N.
func (e *Engine) Recommend(ctx context.Context, in Input) (*Result, error) {
	interactions := make([]string, 0, len(in.Favorites)+len(in.Recent))
	interactions = append(interactions, in.Favorites...)
	interactions = append(interactions, in.Recent...)

	if len(interactions) == 0 && in.LastSearch == nil {
		return &Result{Source: SourceNone}, nil
	}

	batch := e.builder.Build(in.Listings)
	byID := make(map[string]domain.Listing, len(in.Listings))
	for _, l := range in.Listings {
		byID[l.ID] = l
	}

	seen := make(map[string]struct{}, len(interactions))
	for _, id := range interactions {
		seen[id] = struct{}{}
	}

	var groups [][]domain.Candidate
	sawRaw := false
	for _, id := range interactions {
		source, ok := byID[id]
		if !ok {
			e.log.Warn("interaction references unknown listing", map[string]interface{}{"listingId": id})
			continue
		}
		vec, ok := batch.VectorByID(id)
		if !ok {
			continue
		}

		raw, err := e.scorer.Recommend(ctx, ai.RecommendRequest{
			Properties: toProperties(batch.Vectors),
			UserVector: vec.Values,
			TopN:       candidateFetchCount(in.TopN),
		})
		if err != nil {
			return nil, fmt.Errorf("score interaction %s: %w", id, err)
		}
		if len(raw) > 0 {
			sawRaw = true
		}

		filtered := e.applyHardConstraints(raw, source, seen, byID)
		if len(filtered) > 0 {
			groups = append(groups, filtered)
		}
	}

	if merged := roundRobinMerge(groups, in.TopN); len(merged) > 0 {
		return &Result{Candidates: merged, Source: SourceInteractions}, nil
	}

	if sawRaw && !e.cfg.FallbackOnFiltered {
		return &Result{Source: SourceFiltered}, nil
	}

	if in.LastSearch != nil {
		return e.fromLastSearch(ctx, batch, *in.LastSearch, in.TopN)
	}

	return e.coldStart(ctx, batch, in.TopN)
}

// candidateFetchCount oversamples each interaction so the hard filters have
// room to discard weak matches.
func candidateFetchCount(topN int) int {
	n := topN * 5
	if n < minCandidateFetch {
		return minCandidateFetch
	}
	return n
}

// applyHardConstraints drops candidates the visitor already knows, weak
// matches below the similarity floor, and anything priced outside the ratio
// bounds of the source interaction. Service ranking order is preserved.
func (e *Engine) applyHardConstraints(raw []domain.Candidate, source domain.Listing, seen map[string]struct{}, byID map[string]domain.Listing) []domain.Candidate {
	srcPrice := source.EffectivePrice()
	out := make([]domain.Candidate, 0, len(raw))
	for _, cand := range raw {
		if _, known := seen[cand.ID]; known {
			continue
		}
		if cand.Score == nil || *cand.Score < e.cfg.SimilarityFloor {
			continue
		}
		listing, ok := byID[cand.ID]
		if !ok {
			continue
		}
		if srcPrice > 0 {
			price := listing.EffectivePrice()
			if price < srcPrice*e.cfg.PriceRatioMin || price > srcPrice*e.cfg.PriceRatioMax {
				continue
			}
		}
		out = append(out, cand)
	}
	return out
}

// roundRobinMerge interleaves one not-yet-emitted candidate per live group
// per round, in group order, skipping exhausted groups, until limit results
// are produced or every group runs dry. Duplicates across groups are emitted
// once, by the first group that reaches them.
func roundRobinMerge(groups [][]domain.Candidate, limit int) []domain.Candidate {
	cursors := make([]int, len(groups))
	emitted := make(map[string]struct{})
	out := make([]domain.Candidate, 0, limit)

	for len(out) < limit {
		progressed := false
		for gi, group := range groups {
			if len(out) >= limit {
				break
			}
			for cursors[gi] < len(group) {
				cand := group[cursors[gi]]
				cursors[gi]++
				if _, dup := emitted[cand.ID]; dup {
					continue
				}
				emitted[cand.ID] = struct{}{}
				out = append(out, cand)
				progressed = true
				break
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

// fromLastSearch derives one query vector from the visitor's declared search
// and requests topN directly. No hard filtering applies on this path.
func (e *Engine) fromLastSearch(ctx context.Context, batch *feature.Batch, q domain.LastSearch, topN int) (*Result, error) {
	cands, err := e.scorer.Recommend(ctx, ai.RecommendRequest{
		Properties: toProperties(batch.Vectors),
		UserVector: batch.SearchVector(q),
		TopN:       topN,
	})
	if err != nil {
		return nil, fmt.Errorf("score last search: %w", err)
	}
	return &Result{Candidates: cands, Source: SourceLastSearch}, nil
}

// coldStart prefers listings old enough that visitors have had a chance to
// react to them, falling back to the full pool, and lets the service apply
// its default ranking by sending no query vector.
func (e *Engine) coldStart(ctx context.Context, batch *feature.Batch, topN int) (*Result, error) {
	cutoff := e.now().Add(-e.cfg.ColdStartMinAge)
	aged := make([]feature.Vector, 0, len(batch.Vectors))
	for _, v := range batch.Vectors {
		if v.CreatedAt.Before(cutoff) {
			aged = append(aged, v)
		}
	}
	pool := aged
	if len(pool) == 0 {
		pool = batch.Vectors
	}
	if len(pool) == 0 {
		return &Result{Source: SourceColdStart}, nil
	}

	cands, err := e.scorer.Recommend(ctx, ai.RecommendRequest{
		Properties: toProperties(pool),
		UserVector: nil,
		TopN:       topN,
	})
	if err != nil {
		return nil, fmt.Errorf("score cold start: %w", err)
	}
	return &Result{Candidates: cands, Source: SourceColdStart}, nil
}

func toProperties(vectors []feature.Vector) []ai.Property {
	props := make([]ai.Property, len(vectors))
	for i, v := range vectors {
		props[i] = ai.Property{
			ID:        v.ID,
			Vector:    v.Values,
			CreatedAt: v.CreatedAt.UnixMilli(),
		}
	}
	return props
}
