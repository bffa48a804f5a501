package analysis

import (
	"sort"

	"github.com/aulianza/mindsignal/internal/config"
	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
)

// Fuser combines per-modality findings into one CompositeAssessment.
// All weighting is commutative, so input order never matters.
type Fuser struct {
	policy config.Policy
	crisis map[string]bool
}

func NewFuser(p config.Policy) *Fuser {
	crisis := make(map[string]bool, len(p.CrisisTags))
	for _, t := range p.CrisisTags {
		crisis[t] = true
	}
	return &Fuser{policy: p, crisis: crisis}
}

// Fuse builds the composite from the findings that succeeded plus the set of
// requested-but-missing modalities. Weight per finding = confidence x the
// modality's reliability prior. Overall confidence is weighted coverage:
// weight actually used over the weight available had every requested
// modality succeeded at confidence 1.0, so missing modalities cost
// confidence instead of being silently ignored.
func (f *Fuser) Fuse(findings []domain.ModalityFinding, missing []domain.Modality) domain.CompositeAssessment {
	// Accumulate in modality order, not caller order: float addition is not
	// associative, so summing in fan-out completion order would make the
	// fused scores permutation-dependent in the last ulp.
	findings = append([]domain.ModalityFinding(nil), findings...)
	sort.Slice(findings, func(i, j int) bool { return findings[i].Modality < findings[j].Modality })
	miss := append([]domain.Modality(nil), missing...)
	sort.Slice(miss, func(i, j int) bool { return miss[i] < miss[j] })

	out := domain.CompositeAssessment{
		TagWeights: map[string]float64{},
		Missing:    miss,
	}

	var valenceSum, arousalSum, weightSum float64
	maxWeight := 0.0
	for _, m := range miss {
		maxWeight += f.prior(m)
	}

	for _, fd := range findings {
		w := fd.Confidence * f.prior(fd.Modality)
		valenceSum += w * fd.Valence
		arousalSum += w * fd.Arousal
		weightSum += w
		maxWeight += f.prior(fd.Modality)
		out.Contributed = append(out.Contributed, fd.Modality)

		for _, tag := range fd.Tags {
			out.TagWeights[tag] += w
		}
	}

	if weightSum > 0 {
		out.Valence = valenceSum / weightSum
		out.Arousal = arousalSum / weightSum
	}
	if maxWeight > 0 {
		out.Confidence = weightSum / maxWeight
	}

	// Noise floor on aggregated tags. Crisis indicators are exempt: the
	// tier override must fire even on a single low-confidence finding.
	for tag, w := range out.TagWeights {
		if w < f.policy.TagMinWeight && !f.crisis[tag] {
			delete(out.TagWeights, tag)
		}
	}

	if f.conflicting(findings) {
		out.Valence *= f.policy.ConflictDamping
		out.Annotations = append(out.Annotations, domain.TagConflictingSignals)
	}

	// Underflow or weak coverage: proceed, but say so.
	if len(findings) < f.policy.MinFindings || out.Confidence < f.policy.LowConfidenceFloor {
		out.Annotations = append(out.Annotations, domain.TagLowConfidence)
	}

	return out
}

// conflicting reports whether two confident findings disagree in valence
// sign. Averaging those naively reads as calm; damping toward zero plus the
// conflicting-signals tag keeps the disagreement visible downstream.
func (f *Fuser) conflicting(findings []domain.ModalityFinding) bool {
	var pos, neg bool
	for _, fd := range findings {
		if fd.Confidence < f.policy.HighConfidence {
			continue
		}
		switch {
		case fd.Valence > 0:
			pos = true
		case fd.Valence < 0:
			neg = true
		}
	}
	return pos && neg
}

func (f *Fuser) prior(m domain.Modality) float64 {
	if p, ok := f.policy.ReliabilityPriors[m]; ok {
		return p
	}
	return 0.5
}
