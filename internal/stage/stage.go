// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stage executes one reasoner invocation per pipeline stage: prompt
// rendering, oracle call, JSON extraction, and exactly one retry that feeds
// the first failure's message back into the prompt.
package stage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/summa-engine/internal/jsonutil"
	"github.com/pdiddy/summa-engine/internal/prompt"
	"github.com/pdiddy/summa-engine/internal/reasoner"
)

// Failure is the tagged error a stage raises after its retry also failed. The
// controller converts it into the partial-failure payload.
type Failure struct {
	Stage          string
	Message        string
	RetryAttempted bool
}

func (f *Failure) Error() string {
	return f.Stage + ": " + f.Message
}

// Runner executes reasoner-backed stages against a prompt library.
type Runner struct {
	Oracle   reasoner.Oracle
	Library  *prompt.Library
	Progress io.Writer
}

// RunJSON runs the named stage with one retry. The agent name selects the
// persona and the "<agent>_task" templates; stageName labels failures (the
// diversity retry reuses the generator's agent under its own stage name).
func (r *Runner) RunJSON(ctx context.Context, stageName, agentName string, inputs map[string]string) (map[string]any, error) {
	return r.runWithRetry(ctx, stageName, func(retryErr string) (map[string]any, error) {
		return r.jsonOnce(ctx, stageName, agentName, inputs, retryErr)
	})
}

// RunComposer runs the final rendering stage with one retry. Unlike RunJSON it
// tolerates plain-text output: anything that is not a JSON object with a
// non-empty "summa_rendering" string is wrapped as one.
func (r *Runner) RunComposer(ctx context.Context, stageName, agentName string, inputs map[string]string) (map[string]any, error) {
	return r.runWithRetry(ctx, stageName, func(retryErr string) (map[string]any, error) {
		return r.ComposerOnce(ctx, agentName, inputs, retryErr)
	})
}

// runWithRetry calls once with no retry context, and on failure once more with
// the first failure's message. A second failure becomes a Failure error.
func (r *Runner) runWithRetry(ctx context.Context, stageName string, once func(retryErr string) (map[string]any, error)) (map[string]any, error) {
	out, err := once("")
	if err == nil {
		return out, nil
	}

	fmt.Fprintf(r.Progress, "stage %s: retrying after failure: %v\n", stageName, err)
	out, retryErr := once(err.Error())
	if retryErr == nil {
		return out, nil
	}
	return nil, &Failure{Stage: stageName, Message: retryErr.Error(), RetryAttempted: true}
}

// jsonOnce performs a single invocation and strict JSON-object extraction.
func (r *Runner) jsonOnce(ctx context.Context, stageName, agentName string, inputs map[string]string, retryErr string) (map[string]any, error) {
	raw, err := r.invoke(ctx, stageName, agentName, inputs, retryErr)
	if err != nil {
		return nil, err
	}
	return jsonutil.ExtractObject(raw)
}

// ComposerOnce performs a single composer invocation without the retry wrapper.
// The contract validator uses it for its one targeted re-render.
func (r *Runner) ComposerOnce(ctx context.Context, agentName string, inputs map[string]string, retryErr string) (map[string]any, error) {
	raw, err := r.invoke(ctx, "summa_composer", agentName, inputs, retryErr)
	if err != nil {
		return nil, err
	}

	if parsed, parseErr := jsonutil.ExtractObject(raw); parseErr == nil {
		if rendering, ok := parsed["summa_rendering"].(string); ok && strings.TrimSpace(rendering) != "" {
			return parsed, nil
		}
	}

	// The composer returned raw Summa text instead of JSON. Use it directly.
	cleaned := jsonutil.StripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("summa composer returned empty output")
	}
	return map[string]any{"summa_rendering": cleaned}, nil
}

// invoke renders the stage templates and calls the oracle.
func (r *Runner) invoke(ctx context.Context, stageName, agentName string, inputs map[string]string, retryErr string) (string, error) {
	agent, ok := r.Library.Agents[agentName]
	if !ok {
		return "", fmt.Errorf("no agent config for %q", agentName)
	}
	task, ok := r.Library.Tasks[agentName+"_task"]
	if !ok {
		return "", fmt.Errorf("no task config for %q", agentName+"_task")
	}

	description := prompt.Render(task.Description, inputs)
	expected := prompt.Render(task.ExpectedOutput, inputs)

	if retryErr != "" {
		description += "\n\nRetry context:\nPrevious attempt failed with: " + retryErr +
			"\nYou must return strict JSON only, with no surrounding prose."
	}

	fmt.Fprintf(r.Progress, "stage %s: invoking reasoner\n", stageName)
	return r.Oracle.Invoke(ctx, reasoner.Prompt{
		Persona:        agent.Persona(),
		Description:    description,
		ExpectedOutput: expected,
	})
}

// RequireNonEmptyString extracts a required non-empty string field from a
// stage output object.
func RequireNonEmptyString(payload map[string]any, key string) (string, error) {
	value, ok := payload[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("field %q must be a non-empty string", key)
	}
	return strings.TrimSpace(value), nil
}
