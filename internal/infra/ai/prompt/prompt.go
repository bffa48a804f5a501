package prompt

import (
	"fmt"

	"github.com/aulianza/mindsignal/internal/domain/analysis"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
// The collaborator must emit exactly the interpretation shape; anything else
// is treated as malformed and the modality fails closed.
func GetSystemPrompt() string {
	return `You are a clinical-adjacent emotional signal rater supporting a student wellness service. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object following the schema below.
- valence is a float in [-1, 1]: -1 most negative affect, 1 most positive.
- arousal is a float in [0, 1]: 0 calm/flat, 1 highly activated.
- tags is a short array of lowercase kebab-case emotional indicators (e.g. "anxiety", "hopelessness", "self-harm", "suicidal-ideation").
- confidence is a float in [0, 1] reflecting how much signal the input actually carries.
- Never invent signal: if the input is near-empty or ambiguous, lower confidence instead of guessing.
- Flag any self-harm, suicidal or abuse indicator with its tag even at low confidence.

Schema (example with empty values):
{
  "valence": 0.0,
  "arousal": 0.0,
  "tags": [],
  "confidence": 0.0
}`
}

// GetUserPrompt builds the per-modality user message. Text modalities carry
// their content inline; binary modalities are referenced by staged URL.
func GetUserPrompt(m analysis.Modality, text, payloadURL string) string {
	switch m {
	case analysis.ModalityText:
		return fmt.Sprintf("Rate the emotional state expressed in this check-in message and respond with the JSON per schema.\n\nMessage:\n%s", text)
	case analysis.ModalityNarrative:
		return fmt.Sprintf("This is a projective narrative exercise (story completion). Rate the emotional state it projects and respond with the JSON per schema. Projective material is indirect; be conservative with confidence.\n\nNarrative:\n%s", text)
	case analysis.ModalityVoice:
		return fmt.Sprintf("Rate the emotional state carried by the voice recording at this URL (tone, pace, prosody, content) and respond with the JSON per schema. URL: %s", payloadURL)
	case analysis.ModalityFacial:
		return "Rate the emotional state expressed in the attached facial photo and respond with the JSON per schema."
	case analysis.ModalityDrawing:
		return "This is a free drawing from a wellness exercise. Rate the emotional state it suggests and respond with the JSON per schema. Drawings are highly subjective; be conservative with confidence."
	default:
		return "Rate the emotional state of the input and respond with the JSON per schema."
	}
}
