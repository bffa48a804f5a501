package analysis

import (
	"time"
)

// ID tipe untuk Analysis
type AnalysisID string

// Modality enum
type Modality string

const (
	ModalityText      Modality = "text"
	ModalityVoice     Modality = "voice"
	ModalityFacial    Modality = "facial"
	ModalityNarrative Modality = "narrative"
	ModalityDrawing   Modality = "drawing"
)

// AllModalities in catalog order.
var AllModalities = []Modality{
	ModalityText,
	ModalityVoice,
	ModalityFacial,
	ModalityNarrative,
	ModalityDrawing,
}

// RiskTier ordered enum: Low < Moderate < High < Critical
type RiskTier int

const (
	TierLow RiskTier = iota
	TierModerate
	TierHigh
	TierCritical
)

func (t RiskTier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierHigh:
		return "high"
	case TierModerate:
		return "moderate"
	default:
		return "low"
	}
}

// TierFromString parses a stored tier label. Unknown labels map to low.
func TierFromString(s string) RiskTier {
	switch s {
	case "critical":
		return TierCritical
	case "high":
		return TierHigh
	case "moderate":
		return TierModerate
	default:
		return TierLow
	}
}

// VoiceClip raw audio plus its duration. Payload is never persisted.
type VoiceClip struct {
	Data     []byte
	Duration time.Duration
}

// AnalysisRequest carries the optional modality slots of one check-in.
// At least one slot must be present.
type AnalysisRequest struct {
	SubjectID   string
	TenantID    string
	SubmittedAt time.Time

	Text        string
	Voice       *VoiceClip
	FacialImage []byte
	Narrative   string
	Drawing     []byte
}

// Present lists the modalities that actually carry input, in catalog order.
func (r *AnalysisRequest) Present() []Modality {
	var out []Modality
	if r.Text != "" {
		out = append(out, ModalityText)
	}
	if r.Voice != nil && len(r.Voice.Data) > 0 {
		out = append(out, ModalityVoice)
	}
	if len(r.FacialImage) > 0 {
		out = append(out, ModalityFacial)
	}
	if r.Narrative != "" {
		out = append(out, ModalityNarrative)
	}
	if len(r.Drawing) > 0 {
		out = append(out, ModalityDrawing)
	}
	return out
}

// ModalityFinding is one analyzer's interpretation of one modality.
// Immutable once handed to the fusion engine.
type ModalityFinding struct {
	Modality   Modality `json:"modality"`
	Valence    float64  `json:"valence"` // [-1, 1]
	Arousal    float64  `json:"arousal"` // [0, 1]
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"` // [0, 1]
}

// Annotation tags added by the pipeline itself, not by analyzers.
const (
	TagConflictingSignals = "conflicting-signals"
	TagLowConfidence      = "low-confidence"
)

// CompositeAssessment is the fused view over all usable findings.
// Created once per request; downstream stages only read it.
type CompositeAssessment struct {
	Valence     float64            `json:"valence"`
	Arousal     float64            `json:"arousal"`
	TagWeights  map[string]float64 `json:"tag_weights"`
	Confidence  float64            `json:"confidence"`
	Contributed []Modality         `json:"contributed"`
	Missing     []Modality         `json:"missing"`
	Annotations []string           `json:"annotations,omitempty"`
}

// HasTag reports whether a tag survived aggregation or was annotated.
func (a *CompositeAssessment) HasTag(tag string) bool {
	if _, ok := a.TagWeights[tag]; ok {
		return true
	}
	for _, t := range a.Annotations {
		if t == tag {
			return true
		}
	}
	return false
}

// Recommendation is one ranked content suggestion.
type Recommendation struct {
	ContentID string  `json:"content_id"`
	Relevance float64 `json:"relevance"`
}

// ModalityOutcome records what happened to one requested modality.
type ModalityOutcome struct {
	Modality Modality      `json:"modality"`
	OK       bool          `json:"ok"`
	Reason   FailureReason `json:"reason,omitempty"`
}

// Aggregate Root: AnalysisResult, the full outcome of one check-in.
type AnalysisResult struct {
	ID            AnalysisID          `json:"id"`
	TenantID      string              `json:"tenant_id"`
	SubjectID     string              `json:"subject_id"`
	SubmittedAt   time.Time           `json:"submitted_at"`
	Assessment    CompositeAssessment `json:"assessment"`
	Tier          RiskTier            `json:"-"`
	TierLabel     string              `json:"tier"`
	Recommended   []Recommendation    `json:"recommended"`
	Outcomes      []ModalityOutcome   `json:"outcomes"`
	Escalated     bool                `json:"escalated"`
	TriageEntryID string              `json:"triage_entry_id,omitempty"`
	DurationMS    int64               `json:"duration_ms"`
}
