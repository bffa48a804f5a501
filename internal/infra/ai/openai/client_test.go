package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulianza/mindsignal/internal/domain/inference"
)

func TestParseInterpretation(t *testing.T) {
	got, err := parseInterpretation(`
		{"valence": -0.75, "arousal": 0.6, "tags": ["hopelessness"], "confidence": 0.85}
	`)
	require.NoError(t, err)
	assert.Equal(t, inference.Interpretation{
		Valence: -0.75, Arousal: 0.6, Tags: []string{"hopelessness"}, Confidence: 0.85,
	}, got)
}

func TestParseInterpretationFailsClosed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "I sense the student is doing fine today."},
		{"empty", ""},
		{"valence out of range", `{"valence": -3.0, "arousal": 0.5, "confidence": 0.5}`},
		{"arousal out of range", `{"valence": 0.0, "arousal": 1.5, "confidence": 0.5}`},
		{"confidence out of range", `{"valence": 0.0, "arousal": 0.5, "confidence": 7}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseInterpretation(tc.raw)
			assert.ErrorIs(t, err, inference.ErrMalformedOutput)
		})
	}
}
