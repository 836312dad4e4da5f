// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"strings"

	"github.com/pdiddy/summa-engine/pkg/types"
)

// hypothesisFromMap builds a canonical hypothesis from one raw item, filling
// every required field with a fallback when the reasoner omitted it.
func hypothesisFromMap(item map[string]any, id string, catalog []types.Paper) types.Hypothesis {
	citations := SanitizeCitations(item["citations"], catalog)
	if len(citations) == 0 {
		citations = FallbackCitations(catalog)
	}

	return types.Hypothesis{
		ID:                     id,
		Title:                  asText(item["title"], "Hypothesis "+id),
		Statement:              asText(item["statement"], "No statement provided."),
		NoveltyRationale:       asText(item["novelty_rationale"], "Novelty rationale unavailable."),
		PlausibilityRationale:  asText(item["plausibility_rationale"], "Plausibility rationale unavailable."),
		TestabilityRationale:   asText(item["testability_rationale"], "Testability rationale unavailable."),
		FalsifiablePredictions: textList(item["falsifiable_predictions"], "Prediction not provided."),
		MinimalExperiments:     textList(item["minimal_experiments"], "Experiment plan not provided."),
		Citations:              citations,
		Objections:             EnsureObjections(item["objections"]),
		Replies:                EnsureReplies(item["replies"]),
	}
}

// GeneratorHypotheses normalizes the generator stage output into at most five
// canonical hypotheses. Non-object list items are dropped; missing or
// colliding ids are replaced with synthesized "h<n>" ids from a running
// counter.
func GeneratorHypotheses(payload map[string]any, catalog []types.Paper) ([]types.Hypothesis, error) {
	raw, ok := payload["hypotheses"].([]any)
	if !ok {
		return nil, fmt.Errorf("generator output must include a hypotheses array")
	}

	var normalized []types.Hypothesis
	seen := make(map[string]bool)
	counter := 1
	for _, entry := range raw {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		id := asText(item["id"], fmt.Sprintf("h%d", counter))
		for seen[id] {
			counter++
			id = fmt.Sprintf("h%d", counter)
		}
		seen[id] = true
		counter++

		normalized = append(normalized, hypothesisFromMap(item, id, catalog))
	}

	if len(normalized) > maxHypotheses {
		normalized = normalized[:maxHypotheses]
	}
	return normalized, nil
}

// CriticHypotheses normalizes the critic stage output. When the critic
// returned no usable hypothesis list the previous hypotheses pass through
// unchanged; otherwise each hypothesis is rebuilt, keeping only items with a
// unique non-empty id. The triplet invariant holds on the way out either way.
func CriticHypotheses(payload map[string]any, fallback []types.Hypothesis, catalog []types.Paper) ([]types.Hypothesis, error) {
	raw, ok := payload["hypotheses"].([]any)

	var hypotheses []types.Hypothesis
	if !ok || len(raw) == 0 {
		hypotheses = EnsureTriplets(fallback)
	} else {
		seen := make(map[string]bool)
		for _, entry := range raw {
			item, itemOK := entry.(map[string]any)
			if !itemOK {
				continue
			}
			id, idOK := item["id"].(string)
			id = strings.TrimSpace(id)
			if !idOK || id == "" || seen[id] {
				continue
			}
			seen[id] = true
			hypotheses = append(hypotheses, hypothesisFromMap(item, id, catalog))
		}
	}

	if len(hypotheses) == 0 {
		return nil, fmt.Errorf("critic output did not provide any usable hypotheses")
	}
	if len(hypotheses) > maxHypotheses {
		hypotheses = hypotheses[:maxHypotheses]
	}
	return hypotheses, nil
}
