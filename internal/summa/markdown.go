// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summa

import (
	"fmt"
	"strings"

	"github.com/pdiddy/summa-engine/pkg/types"
)

// ToMarkdown renders a payload as a plain-text report for terminals and
// saved run files.
func ToMarkdown(payload types.Payload) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Question: %s", payload.Question))
	lines = append(lines, fmt.Sprintf("Domain: %s", payload.Domain))
	lines = append(lines, "")

	byID := make(map[string]types.Hypothesis, len(payload.Hypotheses))
	for _, h := range payload.Hypotheses {
		if h.ID != "" {
			byID[h.ID] = h
		}
	}
	if len(payload.RankedHypothesisIDs) > 0 {
		lines = append(lines, "Ranked hypotheses:")
		for idx, id := range payload.RankedHypothesisIDs {
			h := byID[id]
			lines = append(lines, fmt.Sprintf("%d. %s - %s (overall=%g)", idx+1, id, h.Title, h.Scores.Overall))
		}
		lines = append(lines, "")
	}

	if rendering := strings.TrimSpace(payload.SummaRendering); rendering != "" {
		lines = append(lines, rendering)
	} else {
		lines = append(lines, "No Summa rendering produced.")
	}

	if payload.Error != nil {
		lines = append(lines, "")
		lines = append(lines, "Pipeline error:")
		lines = append(lines, fmt.Sprintf("- stage: %s", payload.Error.Stage))
		lines = append(lines, fmt.Sprintf("- message: %s", payload.Error.Message))
		lines = append(lines, fmt.Sprintf("- retry_attempted: %t", payload.Error.RetryAttempted))
	}

	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
