package inference

import (
	"context"

	"github.com/aulianza/mindsignal/internal/domain/analysis"
)

// Request is one interpretation call for one modality. Exactly one of Text
// or PayloadURL is set: text modalities go inline, binary modalities are
// staged and passed by URL.
type Request struct {
	Modality   analysis.Modality
	Text       string
	PayloadURL string
}

// Interpretation is the collaborator's parsed output before normalization.
type Interpretation struct {
	Valence    float64  `json:"valence"`
	Arousal    float64  `json:"arousal"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

// Client is the inference collaborator port. One call per modality per
// request; the caller owns the timeout via ctx.
type Client interface {
	Interpret(ctx context.Context, req Request) (Interpretation, error)
}
