// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summa validates and, when necessary, synthesizes the scholastic
// disputation text that closes a pipeline run.
package summa

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/summa-engine/internal/normalize"
	"github.com/pdiddy/summa-engine/pkg/types"
)

var blockSeparator = regexp.MustCompile(`\n\s*---\s*\n`)

// requiredMarkers must each appear (case-insensitive) in every article block.
var requiredMarkers = []string{
	"question:",
	"objections:",
	"on the contrary",
	"i answer that",
	"replies to objections",
}

// EnsureRendering returns the composer's rendering when it passes structural
// validation, otherwise a deterministic rendering synthesized from the ranked
// hypotheses.
func EnsureRendering(rawRendering, question string, hypotheses []types.Hypothesis, rankedIDs []string, top int) string {
	cleaned := strings.TrimSpace(rawRendering)
	targetBlocks := len(rankedIDs)
	if top < targetBlocks {
		targetBlocks = top
	}
	if targetBlocks < 1 {
		targetBlocks = 1
	}
	if IsValidRendering(cleaned, targetBlocks) {
		return cleaned
	}
	return BuildRendering(question, hypotheses, rankedIDs, top)
}

// IsValidRendering checks that the rendering splits into at least
// expectedBlocks article blocks and that each examined block carries every
// scholastic marker, all three enumerators, and keeps "On the contrary" and
// "I answer that" on separate lines.
func IsValidRendering(rendering string, expectedBlocks int) bool {
	if rendering == "" {
		return false
	}

	blocks := splitBlocks(rendering)
	if len(blocks) < expectedBlocks {
		return false
	}
	blocks = blocks[:expectedBlocks]

	for _, block := range blocks {
		lowered := strings.ToLower(block)
		for _, marker := range requiredMarkers {
			if !strings.Contains(lowered, marker) {
				return false
			}
		}
		for _, token := range []string{"1.", "2.", "3."} {
			if !strings.Contains(block, token) {
				return false
			}
		}
		for _, line := range strings.Split(block, "\n") {
			lineLower := strings.ToLower(line)
			if strings.Contains(lineLower, "on the contrary") && strings.Contains(lineLower, "i answer that") {
				return false
			}
		}
	}
	return true
}

// BuildRendering synthesizes disputation blocks for the top ranked
// hypotheses. The result depends only on its inputs.
func BuildRendering(question string, hypotheses []types.Hypothesis, rankedIDs []string, top int) string {
	byID := make(map[string]types.Hypothesis, len(hypotheses))
	for _, h := range hypotheses {
		if h.ID != "" {
			byID[h.ID] = h
		}
	}

	limit := top
	if limit > len(rankedIDs) {
		limit = len(rankedIDs)
	}
	var selected []string
	for _, id := range rankedIDs[:limit] {
		if _, ok := byID[id]; ok {
			selected = append(selected, id)
		}
	}
	if len(selected) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(selected))
	for index, id := range selected {
		h := byID[id]
		competitorID := pickCompetitorID(rankedIDs, index)
		var competitor *types.Hypothesis
		if competitorID != "" {
			if c, ok := byID[competitorID]; ok {
				competitor = &c
			}
		}

		var lines []string
		lines = append(lines, fmt.Sprintf("Question: %s", question))
		lines = append(lines, "")
		lines = append(lines, "Objections:")
		for _, objection := range normalize.FillObjections(h.Objections) {
			lines = append(lines, fmt.Sprintf("%d. %s", objection.Number, objection.Text))
		}
		lines = append(lines, "")
		lines = append(lines, "On the contrary...")
		lines = append(lines, composeOnTheContrary(h, competitor))
		lines = append(lines, "")
		lines = append(lines, "I answer that...")
		lines = append(lines, nonEmpty(h.Statement, "No thesis stated."))
		lines = append(lines, "")
		lines = append(lines, "Replies to objections:")
		for _, reply := range normalize.FillReplies(h.Replies) {
			lines = append(lines, fmt.Sprintf("Reply to Objection %d. %s", reply.ObjectionNumber, reply.Text))
		}
		blocks = append(blocks, strings.TrimSpace(strings.Join(lines, "\n")))
	}

	if len(blocks) == 1 {
		return blocks[0]
	}
	return strings.Join(blocks, "\n---\n")
}

// TopHypotheses returns the first top ranked hypotheses in ranked order.
func TopHypotheses(hypotheses []types.Hypothesis, rankedIDs []string, top int) []types.Hypothesis {
	byID := make(map[string]types.Hypothesis, len(hypotheses))
	for _, h := range hypotheses {
		byID[h.ID] = h
	}
	limit := top
	if limit > len(rankedIDs) {
		limit = len(rankedIDs)
	}
	var selected []types.Hypothesis
	for _, id := range rankedIDs[:limit] {
		if h, ok := byID[id]; ok {
			selected = append(selected, h)
		}
	}
	return selected
}

// pickCompetitorID is the counter-position used in "On the contrary": the
// runner-up when writing about the winner, the winner otherwise.
func pickCompetitorID(rankedIDs []string, selectedIndex int) string {
	if selectedIndex == 0 {
		if len(rankedIDs) > 1 {
			return rankedIDs[1]
		}
		return ""
	}
	if len(rankedIDs) > 0 {
		return rankedIDs[0]
	}
	return ""
}

func composeOnTheContrary(h types.Hypothesis, competitor *types.Hypothesis) string {
	if competitor != nil {
		statement := nonEmpty(competitor.Statement, "a competing hypothesis claims otherwise")
		return fmt.Sprintf("On the contrary, one may hold that %s", statement)
	}
	strongest := normalize.FillObjections(h.Objections)[0].Text
	return fmt.Sprintf("On the contrary, the strongest objection states that %s", strongest)
}

func splitBlocks(rendering string) []string {
	raw := blockSeparator.Split(strings.TrimSpace(rendering), -1)
	var blocks []string
	for _, block := range raw {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			blocks = append(blocks, trimmed)
		}
	}
	return blocks
}

func nonEmpty(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
