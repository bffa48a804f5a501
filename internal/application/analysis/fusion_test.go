package analysis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulianza/mindsignal/internal/config"
	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
)

func TestFuseSingleModality(t *testing.T) {
	f := NewFuser(config.DefaultPolicy())

	finding := domain.ModalityFinding{
		Modality:   domain.ModalityText,
		Valence:    -0.8,
		Arousal:    0.5,
		Tags:       []string{"sadness"},
		Confidence: 0.9,
	}

	out := f.Fuse([]domain.ModalityFinding{finding}, nil)

	// With a single contributing modality the weighted means reduce to the
	// finding's own scores, and coverage is complete so the overall
	// confidence equals the finding's confidence.
	assert.InDelta(t, -0.8, out.Valence, 1e-9)
	assert.InDelta(t, 0.5, out.Arousal, 1e-9)
	assert.InDelta(t, 0.9, out.Confidence, 1e-9)
	assert.Equal(t, []domain.Modality{domain.ModalityText}, out.Contributed)
	assert.Empty(t, out.Missing)

	// Tag weight carries the reliability prior.
	assert.InDelta(t, 0.9*1.0, out.TagWeights["sadness"], 1e-9)

	// One finding is below the minimum, so the result says so.
	assert.True(t, out.HasTag(domain.TagLowConfidence))
}

func TestFuseOrderIndependent(t *testing.T) {
	f := NewFuser(config.DefaultPolicy())

	findings := []domain.ModalityFinding{
		{Modality: domain.ModalityText, Valence: -0.6, Arousal: 0.7, Tags: []string{"anxiety"}, Confidence: 0.8},
		{Modality: domain.ModalityVoice, Valence: -0.4, Arousal: 0.6, Tags: []string{"anxiety", "fatigue"}, Confidence: 0.7},
		{Modality: domain.ModalityFacial, Valence: -0.2, Arousal: 0.5, Confidence: 0.6},
	}
	missing := []domain.Modality{domain.ModalityDrawing, domain.ModalityNarrative}

	want := f.Fuse(findings, missing)

	// Bit-for-bit equality across permutations of both inputs: findings
	// arrive in fan-out completion order, so even the float accumulation
	// order must not leak into the result.
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]domain.ModalityFinding(nil), findings...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		miss := append([]domain.Modality(nil), missing...)
		rng.Shuffle(len(miss), func(a, b int) { miss[a], miss[b] = miss[b], miss[a] })
		got := f.Fuse(shuffled, miss)
		require.Equal(t, want, got, "fusion must be order independent")
	}
}

func TestFuseMissingModalitiesCostConfidence(t *testing.T) {
	f := NewFuser(config.DefaultPolicy())

	finding := domain.ModalityFinding{
		Modality: domain.ModalityText, Valence: -0.5, Arousal: 0.5, Confidence: 1.0,
	}
	out := f.Fuse([]domain.ModalityFinding{finding}, []domain.Modality{domain.ModalityVoice})

	// Voice was requested but failed, so even a fully confident text
	// finding cannot claim full coverage: 1.0 / (1.0 + 0.9).
	assert.InDelta(t, 1.0/1.9, out.Confidence, 1e-9)
	assert.Equal(t, []domain.Modality{domain.ModalityVoice}, out.Missing)
}

func TestFuseConflictDampsValence(t *testing.T) {
	p := config.DefaultPolicy()
	f := NewFuser(p)

	findings := []domain.ModalityFinding{
		{Modality: domain.ModalityText, Valence: -0.8, Arousal: 0.7, Confidence: 0.9},
		{Modality: domain.ModalityFacial, Valence: 0.6, Arousal: 0.4, Confidence: 0.9},
	}

	out := f.Fuse(findings, nil)

	// Naive weighted mean would be -0.2; both findings cross the
	// high-confidence bar with opposite signs, so the result is pulled
	// toward zero and flagged.
	naive := (0.9*1.0*-0.8 + 0.9*0.75*0.6) / (0.9*1.0 + 0.9*0.75)
	assert.InDelta(t, naive*p.ConflictDamping, out.Valence, 1e-9)
	assert.True(t, out.HasTag(domain.TagConflictingSignals))
	assert.False(t, out.HasTag(domain.TagLowConfidence))
}

func TestFuseNoConflictWhenOneSideUnsure(t *testing.T) {
	f := NewFuser(config.DefaultPolicy())

	findings := []domain.ModalityFinding{
		{Modality: domain.ModalityText, Valence: -0.8, Arousal: 0.7, Confidence: 0.9},
		{Modality: domain.ModalityFacial, Valence: 0.6, Arousal: 0.4, Confidence: 0.3},
	}

	out := f.Fuse(findings, nil)
	assert.False(t, out.HasTag(domain.TagConflictingSignals))
}

func TestFuseTagNoiseFloor(t *testing.T) {
	f := NewFuser(config.DefaultPolicy())

	findings := []domain.ModalityFinding{
		// "stress" aggregates to 0.2*1.0 = 0.2, below the 0.3 floor.
		{Modality: domain.ModalityText, Valence: -0.1, Arousal: 0.3, Tags: []string{"stress"}, Confidence: 0.2},
		// "self-harm" aggregates to 0.2*0.6 = 0.12 but is a crisis
		// indicator and must survive regardless.
		{Modality: domain.ModalityNarrative, Valence: -0.3, Arousal: 0.4, Tags: []string{"self-harm"}, Confidence: 0.2},
	}

	out := f.Fuse(findings, nil)

	_, hasStress := out.TagWeights["stress"]
	assert.False(t, hasStress, "sub-floor tag should be dropped")
	_, hasCrisis := out.TagWeights["self-harm"]
	assert.True(t, hasCrisis, "crisis tag must never be dropped")
}
