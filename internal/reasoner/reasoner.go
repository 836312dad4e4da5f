// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reasoner adapts generative-model APIs to the single call-and-receive
// contract the pipeline needs: prompt in, free-form text out.
package reasoner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Prompt is one reasoner invocation. Persona is a system-style preamble;
// Description carries the rendered task; ExpectedOutput describes the shape
// the caller will try to parse.
type Prompt struct {
	Persona        string
	Description    string
	ExpectedOutput string
}

// UserText joins the task description and the expected-output instructions
// into the user-visible message body.
func (p Prompt) UserText() string {
	if strings.TrimSpace(p.ExpectedOutput) == "" {
		return p.Description
	}
	return p.Description + "\n\nExpected output:\n" + p.ExpectedOutput
}

// Oracle is the capability the pipeline depends on. Implementations are
// non-deterministic and may return malformed output; the stage runner owns
// parsing and retries.
type Oracle interface {
	Invoke(ctx context.Context, prompt Prompt) (string, error)
}

// Credentials holds the per-provider API keys the CLI surface resolves from
// the environment or the secrets directory.
type Credentials struct {
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string
}

// New selects a backend from the model identifier prefix: "claude-" models go
// to the Anthropic Messages API, "gemini-" models to the Gemini API, and
// everything else to an OpenAI-compatible chat-completions endpoint.
func New(ctx context.Context, model string, creds Credentials, client *http.Client) (Oracle, error) {
	switch {
	case strings.HasPrefix(model, "claude-"):
		if creds.AnthropicKey == "" {
			return nil, fmt.Errorf("model %q requires an Anthropic API key", model)
		}
		return &AnthropicBackend{APIKey: creds.AnthropicKey, Model: model, Client: client}, nil
	case strings.HasPrefix(model, "gemini-"):
		if creds.GeminiKey == "" {
			return nil, fmt.Errorf("model %q requires a Gemini API key", model)
		}
		return NewGeminiBackend(ctx, creds.GeminiKey, model)
	default:
		if creds.OpenAIKey == "" {
			return nil, fmt.Errorf("model %q requires an OpenAI API key", model)
		}
		return &OpenAIBackend{APIKey: creds.OpenAIKey, Model: model, Client: client}, nil
	}
}
