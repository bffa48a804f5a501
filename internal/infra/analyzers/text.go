package analyzers

import (
	"context"
	"strings"

	"github.com/aulianza/mindsignal/internal/domain/analysis"
	"github.com/aulianza/mindsignal/internal/domain/inference"
)

// Text rates the free-form check-in message.
type Text struct {
	base
}

func (a *Text) Analyze(ctx context.Context, req *analysis.AnalysisRequest) (analysis.ModalityFinding, error) {
	if strings.TrimSpace(req.Text) == "" {
		return analysis.ModalityFinding{}, a.invalid("empty text input")
	}
	return a.call(ctx, inference.Request{Modality: a.modality, Text: req.Text})
}

// Narrative rates the projective story-completion exercise. Same transport
// as Text; the prompt tells the collaborator to treat it as projective
// material and stay conservative.
type Narrative struct {
	base
}

func (a *Narrative) Analyze(ctx context.Context, req *analysis.AnalysisRequest) (analysis.ModalityFinding, error) {
	if strings.TrimSpace(req.Narrative) == "" {
		return analysis.ModalityFinding{}, a.invalid("empty narrative input")
	}
	return a.call(ctx, inference.Request{Modality: a.modality, Text: req.Narrative})
}
