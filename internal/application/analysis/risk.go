package analysis

import (
	"github.com/aulianza/mindsignal/internal/config"
	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
)

// Classifier maps a CompositeAssessment to a RiskTier. The table is total:
// every reachable (valence, arousal, confidence, tags) combination lands in
// exactly one branch, and repeated evaluation is deterministic.
type Classifier struct {
	policy config.Policy
	crisis map[string]bool
}

func NewClassifier(p config.Policy) *Classifier {
	crisis := make(map[string]bool, len(p.CrisisTags))
	for _, t := range p.CrisisTags {
		crisis[t] = true
	}
	return &Classifier{policy: p, crisis: crisis}
}

// Classify returns the tier plus any annotations the verdict itself adds
// (the assessment is not mutated here). Ordering of the rules:
//
//  1. crisis tag present            -> Critical, unconditionally
//  2. valence low AND arousal high  -> High if confidence is usable,
//     otherwise Moderate + low-confidence
//  3. valence low OR arousal high,
//     or conflicting signals        -> Moderate
//  4. everything else               -> Low
//
// The crisis override wins over every numeric threshold: a false negative
// there is the one outcome this table must never produce.
func (c *Classifier) Classify(a *domain.CompositeAssessment) (domain.RiskTier, []string) {
	for tag := range a.TagWeights {
		if c.crisis[tag] {
			return domain.TierCritical, nil
		}
	}

	lowValence := a.Valence <= c.policy.ValenceLow
	highArousal := a.Arousal >= c.policy.ArousalHigh

	if lowValence && highArousal {
		if a.Confidence >= c.policy.ConfidenceFloor {
			return domain.TierHigh, nil
		}
		// Numeric pattern matches High but the evidence is too thin to
		// assert it; downgrade rather than alarm on weak signal.
		return domain.TierModerate, []string{domain.TagLowConfidence}
	}

	if lowValence || highArousal || a.HasTag(domain.TagConflictingSignals) {
		return domain.TierModerate, nil
	}

	return domain.TierLow, nil
}
