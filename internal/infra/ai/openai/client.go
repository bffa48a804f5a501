package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/aulianza/mindsignal/internal/domain/analysis"
	"github.com/aulianza/mindsignal/internal/domain/inference"
	"github.com/aulianza/mindsignal/internal/infra/ai/prompt"
)

const maxTokens = 1024

type Client struct {
	*openai.Client
	Model       string
	VisionModel string
}

func NewClient(apiKey, model, visionModel string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model, VisionModel: visionModel}
}

// Interpret runs one interpretation call for one modality. Image-bearing
// modalities go through the vision model with the staged URL as an image
// part; everything else is a plain chat completion. The response must parse
// into the interpretation schema or the call fails with ErrMalformedOutput.
func (c *Client) Interpret(ctx context.Context, req inference.Request) (inference.Interpretation, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	ccr := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
		},
	}

	switch req.Modality {
	case analysis.ModalityFacial, analysis.ModalityDrawing:
		if c.VisionModel != "" {
			ccr.Model = c.VisionModel
		}
		ccr.Messages = append(ccr.Messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt(req.Modality, "", "")},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: req.PayloadURL}},
			},
		})
	default:
		ccr.Messages = append(ccr.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt.GetUserPrompt(req.Modality, req.Text, req.PayloadURL),
		})
	}

	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(ccr.Model, "o1") || strings.HasPrefix(ccr.Model, "o3") || strings.HasPrefix(ccr.Model, "o4") || strings.HasPrefix(ccr.Model, "gpt-5") {
		ccr.MaxCompletionTokens = maxTokens
	} else {
		ccr.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, ccr)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return inference.Interpretation{}, inference.ErrQuotaExceeded
		}
		return inference.Interpretation{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return inference.Interpretation{}, inference.ErrMalformedOutput
	}

	return parseInterpretation(resp.Choices[0].Message.Content)
}

// parseInterpretation fails closed: an unparseable or out-of-range payload
// is malformed output, never a fabricated finding.
func parseInterpretation(raw string) (inference.Interpretation, error) {
	var out inference.Interpretation
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return inference.Interpretation{}, fmt.Errorf("%w: %v", inference.ErrMalformedOutput, err)
	}
	if out.Valence < -1 || out.Valence > 1 ||
		out.Arousal < 0 || out.Arousal > 1 ||
		out.Confidence < 0 || out.Confidence > 1 {
		return inference.Interpretation{}, fmt.Errorf("%w: values out of range", inference.ErrMalformedOutput)
	}
	return out, nil
}
