// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reasoner

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiBackend is a thin wrapper around the official genai client.
type GeminiBackend struct {
	cli   *genai.Client
	model string
}

// NewGeminiBackend creates a Gemini-backed oracle for the given model.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiBackend{cli: cli, model: model}, nil
}

// Invoke sends the prompt as a single content part with the persona folded in
// as a system instruction.
func (b *GeminiBackend) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	var cfg *genai.GenerateContentConfig
	if prompt.Persona != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.Persona, genai.RoleUser),
		}
	}

	resp, err := b.cli.Models.GenerateContent(ctx, b.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt.UserText()}}}},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini API returned no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
