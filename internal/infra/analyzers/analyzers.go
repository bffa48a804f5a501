package analyzers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aulianza/mindsignal/internal/config"
	"github.com/aulianza/mindsignal/internal/domain/analysis"
	"github.com/aulianza/mindsignal/internal/domain/inference"
)

// New wires the five modality adapters over one inference client. The media
// store is only touched by the binary modalities.
func New(client inference.Client, media analysis.MediaStore, p config.Policy) map[analysis.Modality]analysis.Analyzer {
	timeout := func(m analysis.Modality) time.Duration {
		if d, ok := p.AnalyzerTimeouts[m]; ok {
			return d.Std()
		}
		return 10 * time.Second
	}
	return map[analysis.Modality]analysis.Analyzer{
		analysis.ModalityText:      &Text{base{analysis.ModalityText, client, timeout(analysis.ModalityText)}},
		analysis.ModalityVoice:     &Voice{base{analysis.ModalityVoice, client, timeout(analysis.ModalityVoice)}, media},
		analysis.ModalityFacial:    &Facial{base{analysis.ModalityFacial, client, timeout(analysis.ModalityFacial)}, media},
		analysis.ModalityNarrative: &Narrative{base{analysis.ModalityNarrative, client, timeout(analysis.ModalityNarrative)}},
		analysis.ModalityDrawing:   &Drawing{base{analysis.ModalityDrawing, client, timeout(analysis.ModalityDrawing)}, media},
	}
}

// base holds what every adapter shares: the collaborator port, the modality
// tag and its timeout.
type base struct {
	modality analysis.Modality
	client   inference.Client
	timeout  time.Duration
}

func (b *base) Modality() analysis.Modality { return b.modality }

// call performs the single outbound inference call under the per-modality
// timeout and normalizes the outcome. This is every adapter's one
// suspension point.
func (b *base) call(ctx context.Context, req inference.Request) (analysis.ModalityFinding, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	interp, err := b.client.Interpret(ctx, req)
	if err != nil {
		return analysis.ModalityFinding{}, b.fail(err)
	}
	return b.normalize(interp), nil
}

func (b *base) fail(err error) error {
	reason := analysis.ReasonUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		reason = analysis.ReasonTimeout
	case errors.Is(err, inference.ErrMalformedOutput):
		reason = analysis.ReasonMalformedOutput
	}
	return &analysis.AnalyzerError{Modality: b.modality, Reason: reason, Err: err}
}

func (b *base) invalid(msg string) error {
	return &analysis.AnalyzerError{
		Modality: b.modality,
		Reason:   analysis.ReasonInputInvalid,
		Err:      errors.New(msg),
	}
}

// normalize clamps scores into their documented ranges and canonicalizes
// tags to lowercase kebab-case without duplicates.
func (b *base) normalize(in inference.Interpretation) analysis.ModalityFinding {
	f := analysis.ModalityFinding{
		Modality:   b.modality,
		Valence:    clamp(in.Valence, -1, 1),
		Arousal:    clamp(in.Arousal, 0, 1),
		Confidence: clamp(in.Confidence, 0, 1),
	}
	seen := map[string]bool{}
	for _, t := range in.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.ReplaceAll(t, " ", "-")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		f.Tags = append(f.Tags, t)
	}
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stage puts a binary payload into the media store for the duration of the
// inference call. The returned cleanup runs on a fresh context so removal
// still happens when the request deadline already expired; raw media never
// outlives the analysis.
func stage(ctx context.Context, media analysis.MediaStore, prefix, ext, contentType string, data []byte) (string, func(), error) {
	key := fmt.Sprintf("staging/%s/%s%s", prefix, uuid.New().String(), ext)
	url, err := media.Stage(ctx, key, data, contentType)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = media.Remove(rctx, key)
	}
	return url, cleanup, nil
}
