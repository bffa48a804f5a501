package analysis

import (
	"sort"

	"github.com/aulianza/mindsignal/internal/config"
	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
)

// Recommender is a pure lookup over the static content catalog. Stateless;
// nothing is cached across requests because the inputs vary per check-in.
type Recommender struct {
	catalog []config.CatalogEntry
}

func NewRecommender(catalog []config.CatalogEntry) *Recommender {
	return &Recommender{catalog: catalog}
}

// Recommend scores every catalog entry against the assessment's tags (both
// aggregated and annotated) and the tier, and returns matches ordered by
// relevance. Ties keep catalog insertion order, so output is deterministic.
func (r *Recommender) Recommend(a *domain.CompositeAssessment, tier domain.RiskTier) []domain.Recommendation {
	type scored struct {
		rec domain.Recommendation
		idx int
	}
	var matches []scored

	for i, entry := range r.catalog {
		score := r.score(entry, a, tier)
		if score <= 0 {
			continue
		}
		matches = append(matches, scored{
			rec: domain.Recommendation{ContentID: entry.ContentID, Relevance: score},
			idx: i,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rec.Relevance != matches[j].rec.Relevance {
			return matches[i].rec.Relevance > matches[j].rec.Relevance
		}
		return matches[i].idx < matches[j].idx
	})

	out := make([]domain.Recommendation, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.rec)
	}
	return out
}

// score: tier match is worth the entry's base relevance, each tag match adds
// a smaller boost. An entry with no tier list and no tag list never matches.
func (r *Recommender) score(e config.CatalogEntry, a *domain.CompositeAssessment, tier domain.RiskTier) float64 {
	tierMatch := false
	for _, t := range e.Tiers {
		if domain.TierFromString(t) == tier {
			tierMatch = true
			break
		}
	}
	tagHits := 0
	for _, tag := range e.Tags {
		if a.HasTag(tag) {
			tagHits++
		}
	}

	if !tierMatch && tagHits == 0 {
		return 0
	}
	score := 0.0
	if tierMatch {
		score += e.Relevance
	}
	score += 0.1 * float64(tagHits) * e.Relevance
	return score
}
