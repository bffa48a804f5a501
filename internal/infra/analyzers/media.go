package analyzers

import (
	"context"

	"github.com/aulianza/mindsignal/internal/domain/analysis"
	"github.com/aulianza/mindsignal/internal/domain/inference"
)

// Voice rates a recorded voice clip. The clip is staged so the collaborator
// can fetch it by URL, and removed as soon as the call returns.
type Voice struct {
	base
	media analysis.MediaStore
}

func (a *Voice) Analyze(ctx context.Context, req *analysis.AnalysisRequest) (analysis.ModalityFinding, error) {
	if req.Voice == nil || len(req.Voice.Data) == 0 {
		return analysis.ModalityFinding{}, a.invalid("empty voice clip")
	}
	if req.Voice.Duration <= 0 {
		return analysis.ModalityFinding{}, a.invalid("voice clip without duration")
	}

	url, cleanup, err := stage(ctx, a.media, "voice", ".ogg", "audio/ogg", req.Voice.Data)
	if err != nil {
		return analysis.ModalityFinding{}, a.fail(err)
	}
	defer cleanup()

	return a.call(ctx, inference.Request{Modality: a.modality, PayloadURL: url})
}

// Facial rates a facial photo through the vision path.
type Facial struct {
	base
	media analysis.MediaStore
}

func (a *Facial) Analyze(ctx context.Context, req *analysis.AnalysisRequest) (analysis.ModalityFinding, error) {
	if len(req.FacialImage) == 0 {
		return analysis.ModalityFinding{}, a.invalid("empty facial image")
	}

	url, cleanup, err := stage(ctx, a.media, "facial", ".jpg", "image/jpeg", req.FacialImage)
	if err != nil {
		return analysis.ModalityFinding{}, a.fail(err)
	}
	defer cleanup()

	return a.call(ctx, inference.Request{Modality: a.modality, PayloadURL: url})
}

// Drawing rates a free drawing through the vision path.
type Drawing struct {
	base
	media analysis.MediaStore
}

func (a *Drawing) Analyze(ctx context.Context, req *analysis.AnalysisRequest) (analysis.ModalityFinding, error) {
	if len(req.Drawing) == 0 {
		return analysis.ModalityFinding{}, a.invalid("empty drawing")
	}

	url, cleanup, err := stage(ctx, a.media, "drawing", ".png", "image/png", req.Drawing)
	if err != nil {
		return analysis.ModalityFinding{}, a.fail(err)
	}
	defer cleanup()

	return a.call(ctx, inference.Request{Modality: a.modality, PayloadURL: url})
}
