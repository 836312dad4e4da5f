// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/summa-engine/internal/httputil"
)

// openaiAPIBase is the chat-completions endpoint. Declared as a var so tests
// can substitute an httptest server.
var openaiAPIBase = "https://api.openai.com/v1/chat/completions"

// OpenAIBackend calls an OpenAI-compatible chat-completions API.
type OpenAIBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

// Invoke sends the prompt as a system+user message pair and returns the first
// choice's content.
func (b *OpenAIBackend) Invoke(ctx context.Context, prompt Prompt) (string, error) {
	reqBody := openaiRequest{
		Model: b.Model,
		Messages: []openaiMessage{
			{Role: "system", Content: prompt.Persona},
			{Role: "user", Content: prompt.UserText()},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIBase, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling chat completions API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat completions API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding chat completions response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completions API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
