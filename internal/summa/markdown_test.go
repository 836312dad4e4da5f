// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summa

import (
	"strings"
	"testing"

	"github.com/pdiddy/summa-engine/pkg/types"
)

func TestToMarkdownFinalPayload(t *testing.T) {
	payload := types.Payload{
		Question: "why tides",
		Domain:   "oceanography",
		Hypotheses: []types.Hypothesis{
			{ID: "h1", Title: "Lunar pull", Scores: types.Scores{Overall: 3.6}},
			{ID: "h2", Title: "Solar pull", Scores: types.Scores{Overall: 2.4}},
		},
		RankedHypothesisIDs: []string{"h1", "h2"},
		SummaRendering:      "Question: why tides\n...",
	}

	got := ToMarkdown(payload)
	for _, want := range []string{
		"Question: why tides",
		"Domain: oceanography",
		"Ranked hypotheses:",
		"1. h1 - Lunar pull (overall=3.6)",
		"2. h2 - Solar pull (overall=2.4)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Pipeline error:") {
		t.Errorf("final payload should not render an error block:\n%s", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("markdown must end with a newline")
	}
}

func TestToMarkdownPartialFailure(t *testing.T) {
	payload := types.Payload{
		Question: "why tides",
		Domain:   "oceanography",
		Error: &types.PipelineError{
			Stage:          "critic",
			Message:        "critic output did not provide any usable hypotheses",
			RetryAttempted: true,
		},
	}

	got := ToMarkdown(payload)
	for _, want := range []string{
		"No Summa rendering produced.",
		"Pipeline error:",
		"- stage: critic",
		"- message: critic output did not provide any usable hypotheses",
		"- retry_attempted: true",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
}
