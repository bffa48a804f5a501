package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulianza/mindsignal/internal/config"
	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
)

func testCatalog() []config.CatalogEntry {
	return []config.CatalogEntry{
		{ContentID: "hotline", Tags: []string{"self-harm"}, Tiers: []string{"critical"}, Relevance: 1.0},
		{ContentID: "counselor", Tiers: []string{"high", "critical"}, Relevance: 0.9},
		{ContentID: "grounding", Tags: []string{"anxiety"}, Tiers: []string{"moderate", "high"}, Relevance: 0.8},
		{ContentID: "breathing", Tags: []string{"anxiety", "stress"}, Relevance: 0.8},
	}
}

func TestRecommendScoresAndOrders(t *testing.T) {
	r := NewRecommender(testCatalog())

	a := domain.CompositeAssessment{
		TagWeights: map[string]float64{"anxiety": 0.6},
	}
	got := r.Recommend(&a, domain.TierHigh)

	// grounding: tier hit (0.8) + one tag hit (0.08) = 0.88
	// counselor: tier hit = 0.9
	// breathing: tag hit only = 0.08
	require.Len(t, got, 3)
	assert.Equal(t, "counselor", got[0].ContentID)
	assert.Equal(t, "grounding", got[1].ContentID)
	assert.Equal(t, "breathing", got[2].ContentID)
	assert.InDelta(t, 0.88, got[1].Relevance, 1e-9)
}

func TestRecommendTieKeepsCatalogOrder(t *testing.T) {
	r := NewRecommender([]config.CatalogEntry{
		{ContentID: "first", Tiers: []string{"low"}, Relevance: 0.5},
		{ContentID: "second", Tiers: []string{"low"}, Relevance: 0.5},
	})

	a := domain.CompositeAssessment{}
	got := r.Recommend(&a, domain.TierLow)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ContentID)
	assert.Equal(t, "second", got[1].ContentID)
}

func TestRecommendNoMatches(t *testing.T) {
	r := NewRecommender(testCatalog())

	a := domain.CompositeAssessment{}
	assert.Empty(t, r.Recommend(&a, domain.TierLow))
}

func TestRecommendDeterministic(t *testing.T) {
	r := NewRecommender(config.DefaultCatalog())

	a := domain.CompositeAssessment{
		TagWeights:  map[string]float64{"anxiety": 0.5, "fatigue": 0.4},
		Annotations: []string{domain.TagLowConfidence},
	}

	want := r.Recommend(&a, domain.TierModerate)
	for i := 0; i < 10; i++ {
		require.Equal(t, want, r.Recommend(&a, domain.TierModerate))
	}
}
